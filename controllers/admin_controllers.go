package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/storage"
	"github.com/pvaldez/pizza-express/tracker"
	"github.com/pvaldez/pizza-express/utils"
)

type AdminController struct {
	DB    *gorm.DB
	KV    storage.KV
	Cache *storage.OrderCache
}

func NewAdminController(db *gorm.DB, kv storage.KV) *AdminController {
	return &AdminController{
		DB:    db,
		KV:    kv,
		Cache: storage.NewOrderCache(kv),
	}
}

// GetDashboardStats aggregates order counts by status, revenue and today's
// volume for the admin dashboard. On a database failure it answers from the
// cached order snapshot (at most 24h old) instead of going dark.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	var orders []models.Order
	if err := ac.DB.Order("created_at DESC").Find(&orders).Error; err != nil {
		utils.ErrorLogger.Printf("dashboard stats: db unavailable, trying cache: %v", err)
		orders = ac.Cache.Load(c.Request.Context())
		if orders == nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Dashboard stats (cached)", buildStats(orders))
		return
	}

	// Refresh the offline snapshot while we have a good read.
	if err := ac.Cache.Store(c.Request.Context(), orders); err != nil {
		utils.ErrorLogger.Printf("dashboard stats: refresh cache: %v", err)
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", buildStats(orders))
}

func buildStats(orders []models.Order) gin.H {
	byStatus := map[string]int{}
	var revenue, tips float64
	var todayCount int
	now := time.Now()
	// Local midnight, so "today" matches the store's day, not UTC's.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, o := range orders {
		byStatus[o.Status]++
		if o.PaymentStatus == models.PaymentCharged && o.Status != string(tracker.StatusCancelled) {
			revenue += o.Total
			tips += o.Tip
		}
		if !o.CreatedAt.Before(today) {
			todayCount++
		}
	}

	return gin.H{
		"total_orders": len(orders),
		"by_status":    byStatus,
		"revenue":      revenue,
		"tips":         tips,
		"today_orders": todayCount,
	}
}

// GetPreferences returns the employee's saved dashboard preferences, or an
// empty object when none are stored.
func (ac *AdminController) GetPreferences(c *gin.Context) {
	key, ok := ac.prefsKey(c)
	if !ok {
		return
	}

	data, err := ac.KV.Get(c.Request.Context(), key)
	if err != nil || !json.Valid(data) {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			utils.ErrorLogger.Printf("preferences: read: %v", err)
		}
		utils.RespondJSON(c, http.StatusOK, "Preferences", json.RawMessage("{}"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Preferences", json.RawMessage(data))
}

// SavePreferences stores the employee's dashboard preferences as opaque JSON.
func (ac *AdminController) SavePreferences(c *gin.Context) {
	key, ok := ac.prefsKey(c)
	if !ok {
		return
	}

	var prefs json.RawMessage
	if err := c.ShouldBindJSON(&prefs); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := ac.KV.Set(c.Request.Context(), key, prefs); err != nil {
		utils.ErrorLogger.Printf("preferences: save: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to save preferences"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Preferences saved", nil)
}

func (ac *AdminController) prefsKey(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return "", false
	}
	return fmt.Sprintf("%s%v", storage.PrefsKeyPrefix, userID), true
}
