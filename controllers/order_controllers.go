package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pvaldez/pizza-express/cart"
	"github.com/pvaldez/pizza-express/hub"
	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/services"
	"github.com/pvaldez/pizza-express/tracker"
	"github.com/pvaldez/pizza-express/utils"
)

type OrderController struct {
	DB       *gorm.DB
	Payments *services.PaymentService
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{
		DB:       db,
		Payments: services.NewPaymentService(db),
	}
}

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]*>`)
	unsafeCharsRe    = regexp.MustCompile(`[<>'"&]`)
	phoneKeepPattern = regexp.MustCompile(`[^\d\-\(\)\+\s]`)
)

func sanitizeText(s string, max int) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = unsafeCharsRe.ReplaceAllString(s, "")
	return truncateRunes(s, max)
}

func sanitizePhone(s string, max int) string {
	s = phoneKeepPattern.ReplaceAllString(s, "")
	return truncateRunes(s, max)
}

// truncateRunes caps s at max characters without splitting a multibyte rune.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateOrder handles checkout submission. Line items keep the prices the
// cart was built with; subtotal and tax are recomputed server-side with the
// tiered pricing rules so a tampered client cannot set its own total.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	type reqBody struct {
		CustomerInfo        models.CustomerInfo `json:"customer_info" binding:"required"`
		Items               []models.CartItem   `json:"items" binding:"required"`
		Tip                 float64             `json:"tip"`
		SpecialInstructions string              `json:"special_instructions"`
	}

	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if len(body.Items) == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("order has no items"))
		return
	}
	if body.CustomerInfo.FirstName == "" || body.CustomerInfo.Phone == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("customer name and phone are required"))
		return
	}
	for _, item := range body.Items {
		if item.Quantity <= 0 {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("item %s has non-positive quantity", item.ID))
			return
		}
	}
	if body.Tip < 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("tip cannot be negative"))
		return
	}

	subtotal := roundCents(cart.Subtotal(body.Items))
	tax := roundCents(cart.Tax(subtotal))
	tip := roundCents(body.Tip)

	order := models.Order{
		OrderToken: utils.NewOrderToken(),
		CustomerInfo: models.CustomerInfo{
			FirstName: sanitizeText(body.CustomerInfo.FirstName, 50),
			LastName:  sanitizeText(body.CustomerInfo.LastName, 50),
			Phone:     sanitizePhone(body.CustomerInfo.Phone, 20),
			Email:     sanitizeText(body.CustomerInfo.Email, 100),
		},
		Items:               body.Items,
		Subtotal:            subtotal,
		Tax:                 tax,
		Tip:                 tip,
		Total:               roundCents(subtotal + tax + tip),
		OrderType:           "pickup",
		Status:              string(tracker.StatusConfirmed),
		SpecialInstructions: sanitizeText(body.SpecialInstructions, 500),
		EstimatedTime:       25,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	oc.Payments.Authorize(&order)

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return tx.Create(&models.DBChange{
			TableName:  "orders",
			RecordID:   int64(order.ID),
			ActionType: models.ChangeInsert,
			ChangedAt:  time.Now(),
		}).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Order %s created for %s: %d items, $%.2f",
		order.OrderToken, order.CustomerInfo.FullName(), len(order.Items), order.Total)

	utils.RespondJSON(c, http.StatusCreated, "Order placed", order)
}

// TrackOrder is the public tracking lookup by order token. An unknown token
// is a distinct not-found view, never a server error.
func (oc *OrderController) TrackOrder(c *gin.Context) {
	token := c.Param("token")

	var order models.Order
	if err := oc.DB.Where("order_token = ?", token).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, fmt.Errorf("no order found for %s", token))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	step, _ := tracker.Status(order.Status).Step()
	utils.RespondJSON(c, http.StatusOK, "Order status", gin.H{
		"order": order,
		"step":  step,
	})
}

// GetAllOrders lists orders for the employee dashboard, optionally filtered
// by status, newest first.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	query := oc.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		if !tracker.Status(status).Valid() {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown status %q", status))
			return
		}
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID is the employee detail view.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrderStatus moves an order along the lifecycle. Transitions are
// validated against the state machine: forward only, cancellation from any
// non-terminal state, nothing out of a terminal state. A cancellation must
// carry a reason and writes the audit record exactly once.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	type reqBody struct {
		Status             string `json:"status" binding:"required"`
		EmployeeName       string `json:"employee_name"`
		CancellationReason string `json:"cancellation_reason"`
		CustomReason       string `json:"custom_reason"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	next := tracker.Status(body.Status)
	if !next.Valid() {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown status %q", body.Status))
		return
	}

	var order models.Order
	var cancellation *models.OrderCancellation

	err = oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			return err
		}

		current := tracker.Status(order.Status)
		if !tracker.CanTransition(current, next) {
			return fmt.Errorf("%w: %s -> %s", errInvalidTransition, current, next)
		}

		if next == tracker.StatusCancelled {
			if body.CancellationReason == "" {
				return errCancelNeedsReason
			}
			employee := body.EmployeeName
			if employee == "" {
				// Fall back to the authenticated user from the token.
				if userID, ok := c.Get("user_id"); ok {
					var user models.User
					if err := tx.First(&user, userID).Error; err == nil {
						employee = user.Name
					}
				}
			}
			cancellation = &models.OrderCancellation{
				OrderID:            order.ID,
				EmployeeName:       employee,
				CancellationReason: body.CancellationReason,
				CustomReason:       body.CustomReason,
				OrderTotal:         order.Total,
				CustomerName:       order.CustomerInfo.FullName(),
				CustomerPhone:      order.CustomerInfo.Phone,
				CancelledAt:        time.Now(),
			}
			if err := tx.Create(cancellation).Error; err != nil {
				return err
			}
		}

		order.Status = string(next)
		order.UpdatedAt = time.Now()
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		return tx.Create(&models.DBChange{
			TableName:  "orders",
			RecordID:   int64(order.ID),
			ActionType: models.ChangeUpdate,
			ChangedAt:  time.Now(),
		}).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.RespondError(c, http.StatusNotFound, err)
		case errors.Is(err, errInvalidTransition), errors.Is(err, errCancelNeedsReason):
			utils.RespondError(c, http.StatusConflict, err)
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	role, _ := c.Get("role")
	if cancellation != nil {
		hub.BroadcastOrderCancelled(order, *cancellation)
	}
	hub.BroadcastStaffNotification(fmt.Sprintf("Order %s -> %s (by %v)", order.OrderToken, order.Status, role))

	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// ChargeOrder settles the payment hold once supplies are confirmed.
func (oc *OrderController) ChargeOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	order, err := oc.Payments.Charge(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.RespondError(c, http.StatusNotFound, err)
		case errors.Is(err, services.ErrAlreadyCharged), errors.Is(err, services.ErrNotAuthorized):
			utils.RespondError(c, http.StatusBadRequest, err)
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment charged", order)
}

// FailPayment records a bounced charge so staff can follow up before handing
// the order over. Gateways without webhooks report this through the dashboard.
func (oc *OrderController) FailPayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	order, err := oc.Payments.MarkFailed(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.RespondError(c, http.StatusNotFound, err)
		case errors.Is(err, services.ErrAlreadyCharged):
			utils.RespondError(c, http.StatusBadRequest, err)
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment marked failed", order)
}

// GetCancellations lists the append-only cancellation audit trail.
func (oc *OrderController) GetCancellations(c *gin.Context) {
	var cancellations []models.OrderCancellation
	if err := oc.DB.Order("cancelled_at DESC").Find(&cancellations).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cancellation log", cancellations)
}

var (
	errInvalidTransition = errors.New("invalid status transition")
	errCancelNeedsReason = errors.New("cancellation requires a reason")
)
