package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/pvaldez/pizza-express/hub"
	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/utils"
)

var (
	ErrAlreadyCharged = fmt.Errorf("payment already charged")
	ErrNotAuthorized  = fmt.Errorf("payment is not in authorized state")
)

var chargeOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pizza_express",
	Name:      "payment_charges_total",
	Help:      "Payment charge attempts by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(chargeOutcomes)
}

// PaymentService handles the card-on-file flow: an authorization hold is
// placed at checkout and captured once the kitchen confirms supplies. There
// is no real gateway behind it; settlement is simulated and logged.
type PaymentService struct {
	db *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db}
}

// Authorize records a payment hold on a new order and returns the payment
// reference id.
func (s *PaymentService) Authorize(order *models.Order) string {
	paymentID := fmt.Sprintf("pay_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	order.PaymentID = paymentID
	order.PaymentStatus = models.PaymentAuthorized
	utils.InfoLogger.Printf("Authorized payment %s for order %s ($%.2f)", paymentID, order.OrderToken, order.Total)
	return paymentID
}

// Charge captures a previously authorized payment, exactly once. The order
// row, the change feed, and websocket clients are updated in one go.
func (s *PaymentService) Charge(orderID uint) (*models.Order, error) {
	var order models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		switch order.PaymentStatus {
		case models.PaymentCharged:
			return ErrAlreadyCharged
		case models.PaymentAuthorized:
			// ok
		default:
			return ErrNotAuthorized
		}

		order.PaymentStatus = models.PaymentCharged
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
		chargeOutcomes.WithLabelValues("failed").Inc()
		return nil, err
	}

	chargeOutcomes.WithLabelValues("charged").Inc()
	utils.InfoLogger.Printf("Charged payment %s for order %s: $%.2f (tip $%.2f)",
		order.PaymentID, order.OrderToken, order.Total, order.Tip)
	hub.BroadcastPaymentUpdate(order)
	return &order, nil
}

// StaleHoldAge is how long an authorization may sit uncaptured before the
// sweeper flags it to staff. Card holds expire on the issuer's side after a
// few days, so waiting longer risks losing the payment.
const StaleHoldAge = 24 * time.Hour

// StartHoldSweeper periodically flags authorized payments that were never
// captured. Returns a stop func.
func (s *PaymentService) StartHoldSweeper(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweepStaleHolds()
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}

func (s *PaymentService) sweepStaleHolds() {
	var orders []models.Order
	cutoff := time.Now().Add(-StaleHoldAge)
	err := s.db.
		Where("payment_status = ? AND created_at < ?", models.PaymentAuthorized, cutoff).
		Find(&orders).Error
	if err != nil {
		utils.ErrorLogger.Printf("payment sweeper: %v", err)
		return
	}
	for _, order := range orders {
		utils.InfoLogger.Printf("Payment hold on order %s uncaptured for over %s", order.OrderToken, StaleHoldAge)
		hub.BroadcastStaffNotification(fmt.Sprintf("Order %s has an uncaptured payment hold", order.OrderToken))
	}
}

// MarkFailed flags a charge that bounced so staff can follow up with the
// customer before handing the order over.
func (s *PaymentService) MarkFailed(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		if order.PaymentStatus == models.PaymentCharged {
			return ErrAlreadyCharged
		}
		order.PaymentStatus = models.PaymentFailed
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
		return nil, err
	}
	chargeOutcomes.WithLabelValues("marked_failed").Inc()
	hub.BroadcastPaymentUpdate(order)
	return &order, nil
}
