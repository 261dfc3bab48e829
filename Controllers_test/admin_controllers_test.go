package Controllers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pvaldez/pizza-express/controllers"
	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/storage"
	"github.com/pvaldez/pizza-express/utils"
)

func setupAdminRouter(db *gorm.DB, kv storage.KV, userID uint) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", models.RoleAdmin)
		c.Next()
	})
	adminCtrl := controllers.NewAdminController(db, kv)
	r.GET("/admin/stats", adminCtrl.GetDashboardStats)
	r.GET("/admin/preferences", adminCtrl.GetPreferences)
	r.PUT("/admin/preferences", adminCtrl.SavePreferences)
	return r
}

func TestDashboardStats(t *testing.T) {
	db := setupTestDB(t)
	kv := storage.NewMemoryKV()
	r := setupAdminRouter(db, kv, 1)

	charged := models.Order{
		OrderToken:    utils.NewOrderToken(),
		CustomerInfo:  models.CustomerInfo{FirstName: "A", Phone: "555"},
		Items:         models.CartItems{{ID: "a", Price: 11.99, Quantity: 1}},
		Subtotal:      11.99, Tax: 0.99, Tip: 1.50, Total: 14.48,
		Status:        "completed",
		PaymentStatus: models.PaymentCharged,
		CreatedAt:     time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&charged).Error)

	pending := charged
	pending.ID = 0
	pending.OrderToken = utils.NewOrderToken()
	pending.Status = "preparing"
	pending.PaymentStatus = models.PaymentAuthorized
	require.NoError(t, db.Create(&pending).Error)

	// Cancelled after charge: excluded from revenue.
	cancelled := charged
	cancelled.ID = 0
	cancelled.OrderToken = utils.NewOrderToken()
	cancelled.Status = "cancelled"
	require.NoError(t, db.Create(&cancelled).Error)

	w := doJSON(t, r, "GET", "/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, float64(3), data["total_orders"])
	assert.InDelta(t, 14.48, data["revenue"].(float64), 0.001)
	assert.InDelta(t, 1.50, data["tips"].(float64), 0.001)
	assert.Equal(t, float64(3), data["today_orders"])

	byStatus := data["by_status"].(map[string]interface{})
	assert.Equal(t, float64(1), byStatus["completed"])
	assert.Equal(t, float64(1), byStatus["preparing"])
	assert.Equal(t, float64(1), byStatus["cancelled"])

	// A good read refreshes the offline snapshot.
	cache := storage.NewOrderCache(kv)
	assert.Len(t, cache.Load(context.Background()), 3)
}

func TestDashboardStatsTodayStartsAtLocalMidnight(t *testing.T) {
	db := setupTestDB(t)
	r := setupAdminRouter(db, storage.NewMemoryKV(), 1)

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	mk := func(created time.Time) models.Order {
		return models.Order{
			OrderToken:    utils.NewOrderToken(),
			CustomerInfo:  models.CustomerInfo{FirstName: "A", Phone: "555"},
			Items:         models.CartItems{{ID: "a", Price: 11.99, Quantity: 1}},
			Subtotal:      11.99, Tax: 0.99, Total: 12.98,
			Status:        "confirmed",
			PaymentStatus: models.PaymentAuthorized,
			CreatedAt:     created, UpdatedAt: created,
		}
	}

	earlyToday := mk(midnight.Add(time.Minute))
	require.NoError(t, db.Create(&earlyToday).Error)
	lateYesterday := mk(midnight.Add(-time.Minute))
	require.NoError(t, db.Create(&lateYesterday).Error)

	w := doJSON(t, r, "GET", "/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["total_orders"])
	assert.Equal(t, float64(1), data["today_orders"])
}

func TestDashboardStatsFallsBackToCache(t *testing.T) {
	db := setupTestDB(t)
	kv := storage.NewMemoryKV()

	cache := storage.NewOrderCache(kv)
	require.NoError(t, cache.Store(context.Background(), []models.Order{
		{ID: 1, Status: "ready", PaymentStatus: models.PaymentCharged, Total: 20, CreatedAt: time.Now()},
	}))

	// Break the database so the handler has to answer from the snapshot.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	r := setupAdminRouter(db, kv, 1)
	w := doJSON(t, r, "GET", "/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, float64(1), data["total_orders"])
	assert.InDelta(t, 20.0, data["revenue"].(float64), 0.001)
}

func TestDashboardStatsNoCacheNoDatabase(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	r := setupAdminRouter(db, storage.NewMemoryKV(), 1)
	w := doJSON(t, r, "GET", "/admin/stats", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPreferencesRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	kv := storage.NewMemoryKV()
	r := setupAdminRouter(db, kv, 7)

	// Empty object when nothing is stored.
	w := doJSON(t, r, "GET", "/admin/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":true,"message":"Preferences","data":{}}`, w.Body.String())

	w = doJSON(t, r, "PUT", "/admin/preferences", map[string]interface{}{
		"sound_alerts": true, "default_filter": "preparing",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "GET", "/admin/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["sound_alerts"])
	assert.Equal(t, "preparing", data["default_filter"])

	// Preferences are per user.
	other := setupAdminRouter(db, kv, 8)
	w = doJSON(t, other, "GET", "/admin/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{}, decodeData(t, w))
}
