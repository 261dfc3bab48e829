package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/utils"
)

type PizzaController struct {
	DB *gorm.DB
}

func NewPizzaController(db *gorm.DB) *PizzaController {
	return &PizzaController{DB: db}
}

// GetMenu lists active pizzas for the storefront, optionally by category.
func (pc *PizzaController) GetMenu(c *gin.Context) {
	query := pc.DB.Where("is_active = ?", true).Order("category, name")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var pizzas []models.Pizza
	if err := query.Find(&pizzas).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", pizzas)
}

// GetAllPizzas lists everything, including inactive items, for management.
func (pc *PizzaController) GetAllPizzas(c *gin.Context) {
	var pizzas []models.Pizza
	if err := pc.DB.Order("category, name").Find(&pizzas).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All pizzas", pizzas)
}

func (pc *PizzaController) GetPizzaByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("pizza_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid pizza id"))
		return
	}

	var pizza models.Pizza
	if err := pc.DB.First(&pizza, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Pizza detail", pizza)
}

func (pc *PizzaController) CreatePizza(c *gin.Context) {
	type reqBody struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		BasePrice   float64 `json:"base_price" binding:"required"`
		ImageURL    *string `json:"image_url"`
		Category    string  `json:"category"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Category == "" {
		body.Category = "signature"
	}

	pizza := models.Pizza{
		Name:        body.Name,
		Description: body.Description,
		BasePrice:   body.BasePrice,
		ImageURL:    body.ImageURL,
		Category:    body.Category,
		IsActive:    true,
	}
	if err := pc.DB.Create(&pizza).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Pizza created", pizza)
}

func (pc *PizzaController) UpdatePizza(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("pizza_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid pizza id"))
		return
	}

	var pizza models.Pizza
	if err := pc.DB.First(&pizza, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	type reqBody struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		BasePrice   *float64 `json:"base_price"`
		ImageURL    *string  `json:"image_url"`
		Category    *string  `json:"category"`
		IsActive    *bool    `json:"is_active"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if body.Name != nil {
		pizza.Name = *body.Name
	}
	if body.Description != nil {
		pizza.Description = *body.Description
	}
	if body.BasePrice != nil {
		pizza.BasePrice = *body.BasePrice
	}
	if body.ImageURL != nil {
		pizza.ImageURL = body.ImageURL
	}
	if body.Category != nil {
		pizza.Category = *body.Category
	}
	if body.IsActive != nil {
		pizza.IsActive = *body.IsActive
	}

	if err := pc.DB.Save(&pizza).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Pizza updated", pizza)
}

func (pc *PizzaController) DeletePizza(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("pizza_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid pizza id"))
		return
	}
	if err := pc.DB.Delete(&models.Pizza{}, id).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Pizza deleted", gin.H{"pizza_id": id})
}
