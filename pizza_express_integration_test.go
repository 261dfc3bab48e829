package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/router"
	"github.com/pvaldez/pizza-express/services"
	"github.com/pvaldez/pizza-express/storage"
	"github.com/pvaldez/pizza-express/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type apiClient struct {
	t     *testing.T
	r     *gin.Engine
	token string
}

func (c *apiClient) do(method, url string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	d, _ := resp["data"].(map[string]interface{})
	return d
}

func newTestApp(t *testing.T) (*gin.Engine, *gorm.DB, storage.KV) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:integration%d?mode=memory&cache=shared", time.Now().UnixNano())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Pizza{},
		&models.Order{},
		&models.OrderCancellation{},
		&models.DBChange{},
	))
	kv := storage.NewMemoryKV()
	return router.SetupRouter(db, kv), db, kv
}

func TestFullOrderLifecycle(t *testing.T) {
	r, _, _ := newTestApp(t)
	client := &apiClient{t: t, r: r}

	// Health is up.
	w := client.do("GET", "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Staff account.
	w = client.do("POST", "/register", map[string]interface{}{
		"name": "Jordan", "email": "jordan@example.com", "password": "super-secret-1", "role": "employee",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = client.do("POST", "/login", map[string]interface{}{
		"email": "jordan@example.com", "password": "super-secret-1",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	staffToken := data(t, w)["token"].(string)

	// Customer fills a cart.
	session := map[string]string{"X-Cart-Session": "cust-1"}
	w = client.do("POST", "/api/cart/items", map[string]interface{}{
		"id": "cfg-1", "name": "Veggie Supreme", "size": "large", "crust": "thin",
		"toppings": []string{"mushrooms", "olives"}, "price": 14.99, "quantity": 2,
	}, session)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.InDelta(t, 28.98, data(t, w)["subtotal"].(float64), 0.001)

	// Checkout.
	w = client.do("POST", "/api/orders", map[string]interface{}{
		"customer_info": map[string]interface{}{
			"firstName": "Pat", "lastName": "Valdez", "phone": "555-123-4567",
		},
		"items": []map[string]interface{}{
			{"id": "cfg-1", "name": "Veggie Supreme", "price": 14.99, "quantity": 2},
		},
		"tip": 2.00,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderData := data(t, w)
	token := orderData["order_token"].(string)
	orderID := int(orderData["id"].(float64))
	assert.Equal(t, 33.37, orderData["total"])

	// Cart is cleared after checkout.
	w = client.do("DELETE", "/api/cart", nil, session)
	require.Equal(t, http.StatusOK, w.Code)

	// Customer tracks by token, unauthenticated.
	w = client.do("GET", "/api/orders/track/"+token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), data(t, w)["step"])

	// Staff advances the order and settles payment.
	staff := &apiClient{t: t, r: r, token: staffToken}
	statusURL := fmt.Sprintf("/admin/orders/%d/status", orderID)

	w = staff.do("PATCH", statusURL, map[string]interface{}{"status": "preparing"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = staff.do("POST", fmt.Sprintf("/admin/orders/%d/charge", orderID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "charged", data(t, w)["payment_status"])

	w = staff.do("PATCH", statusURL, map[string]interface{}{"status": "ready"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = staff.do("PATCH", statusURL, map[string]interface{}{"status": "completed"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The tracking view followed along.
	w = client.do("GET", "/api/orders/track/"+token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), data(t, w)["step"])

	// Nothing moves out of completed.
	w = staff.do("PATCH", statusURL, map[string]interface{}{"status": "preparing"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Revenue shows up on the dashboard.
	w = staff.do("GET", "/admin/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.InDelta(t, 33.37, data(t, w)["revenue"].(float64), 0.001)
}

func TestCancellationFlow(t *testing.T) {
	r, db, _ := newTestApp(t)
	client := &apiClient{t: t, r: r}

	w := client.do("POST", "/register", map[string]interface{}{
		"name": "Morgan", "email": "morgan@example.com", "password": "super-secret-2", "role": "admin",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = client.do("POST", "/login", map[string]interface{}{
		"email": "morgan@example.com", "password": "super-secret-2",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	staff := &apiClient{t: t, r: r, token: data(t, w)["token"].(string)}

	w = client.do("POST", "/api/orders", map[string]interface{}{
		"customer_info": map[string]interface{}{"firstName": "Sam", "phone": "555-000-1111"},
		"items": []map[string]interface{}{
			{"id": "a", "name": "Classic Cheese", "price": 11.99, "quantity": 1},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := int(data(t, w)["id"].(float64))

	w = staff.do("PATCH", fmt.Sprintf("/admin/orders/%d/status", orderID), map[string]interface{}{
		"status":              "cancelled",
		"employee_name":       "Morgan",
		"cancellation_reason": "out_of_ingredients",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = staff.do("GET", "/admin/cancellations", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.OrderCancellation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "out_of_ingredients", resp.Data[0].CancellationReason)

	// Audit rows are never deleted with the order.
	require.NoError(t, db.Delete(&models.Order{}, orderID).Error)
	var count int64
	require.NoError(t, db.Model(&models.OrderCancellation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWebsocketFeedReceivesChangeBroadcasts(t *testing.T) {
	r, db, _ := newTestApp(t)
	client := &apiClient{t: t, r: r}

	w := client.do("POST", "/register", map[string]interface{}{
		"name": "Riley", "email": "ws@example.com", "password": "super-secret-3", "role": "employee",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = client.do("POST", "/login", map[string]interface{}{
		"email": "ws@example.com", "password": "super-secret-3",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := data(t, w)["token"].(string)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	monitor := services.NewChangeMonitor(db)
	monitor.Interval = 50 * time.Millisecond
	monitor.Start()
	defer monitor.Stop()

	// A new order writes to the change feed; the monitor picks it up and
	// broadcasts to the connected dashboard.
	w = client.do("POST", "/api/orders", map[string]interface{}{
		"customer_info": map[string]interface{}{"firstName": "Lee", "phone": "555-222-3333"},
		"items": []map[string]interface{}{
			{"id": "a", "name": "Pepperoni", "price": 13.49, "quantity": 1},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderToken := data(t, w)["order_token"].(string)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err, "no broadcast received")
		var event struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &event))
		if event.Event != "order_update" {
			continue
		}
		var order models.Order
		require.NoError(t, json.Unmarshal(event.Data, &order))
		assert.Equal(t, orderToken, order.OrderToken)
		return
	}
}
