package Controllers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pvaldez/pizza-express/controllers"
	"github.com/pvaldez/pizza-express/models"
)

func setupPizzaRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	pizzaCtrl := controllers.NewPizzaController(db)
	r.GET("/api/pizzas", pizzaCtrl.GetMenu)
	r.GET("/admin/pizzas", pizzaCtrl.GetAllPizzas)
	r.POST("/admin/pizzas", pizzaCtrl.CreatePizza)
	r.GET("/admin/pizzas/:pizza_id", pizzaCtrl.GetPizzaByID)
	r.PATCH("/admin/pizzas/:pizza_id", pizzaCtrl.UpdatePizza)
	r.DELETE("/admin/pizzas/:pizza_id", pizzaCtrl.DeletePizza)
	return r
}

func TestPizzaCRUD(t *testing.T) {
	db := setupTestDB(t)
	r := setupPizzaRouter(db)

	w := doJSON(t, r, "POST", "/admin/pizzas", map[string]interface{}{
		"name": "Hawaiian", "description": "Ham and pineapple", "base_price": 13.99,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "signature", data["category"])
	assert.Equal(t, true, data["is_active"])
	id := int(data["id"].(float64))

	w = doJSON(t, r, "GET", fmt.Sprintf("/admin/pizzas/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hawaiian", decodeData(t, w)["name"])

	// Partial update leaves the rest alone.
	w = doJSON(t, r, "PATCH", fmt.Sprintf("/admin/pizzas/%d", id), map[string]interface{}{
		"base_price": 14.49,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	assert.Equal(t, 14.49, data["base_price"])
	assert.Equal(t, "Hawaiian", data["name"])

	w = doJSON(t, r, "DELETE", fmt.Sprintf("/admin/pizzas/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, "GET", fmt.Sprintf("/admin/pizzas/%d", id), nil).Code)
}

func TestMenuHidesInactivePizzas(t *testing.T) {
	db := setupTestDB(t)
	r := setupPizzaRouter(db)

	require.NoError(t, db.Create(&models.Pizza{Name: "Active", BasePrice: 11.99, Category: "signature", IsActive: true}).Error)
	require.NoError(t, db.Create(&models.Pizza{Name: "Retired", BasePrice: 11.99, Category: "signature", IsActive: false}).Error)
	require.NoError(t, db.Create(&models.Pizza{Name: "Seasonal", BasePrice: 12.99, Category: "special", IsActive: true}).Error)

	var resp struct {
		Data []models.Pizza `json:"data"`
	}

	w := doJSON(t, r, "GET", "/api/pizzas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	for _, p := range resp.Data {
		assert.True(t, p.IsActive)
	}

	// Category filter.
	w = doJSON(t, r, "GET", "/api/pizzas?category=special", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Seasonal", resp.Data[0].Name)

	// Management view includes retired items.
	w = doJSON(t, r, "GET", "/admin/pizzas", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 3)
}

func TestCreatePizzaValidation(t *testing.T) {
	db := setupTestDB(t)
	r := setupPizzaRouter(db)

	w := doJSON(t, r, "POST", "/admin/pizzas", map[string]interface{}{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
