package models

import "time"

// OrderCancellation is an append-only audit record, written exactly once when
// an employee cancels an order.
type OrderCancellation struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OrderID            uint      `gorm:"not null;index" json:"order_id"`
	EmployeeName       string    `gorm:"type:varchar(255);not null" json:"employee_name"`
	CancellationReason string    `gorm:"type:varchar(255);not null" json:"cancellation_reason"`
	CustomReason       string    `gorm:"type:text" json:"custom_reason,omitempty"`
	OrderTotal         float64   `gorm:"type:decimal(10,2);not null" json:"order_total"`
	CustomerName       string    `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone      string    `gorm:"type:varchar(20);not null" json:"customer_phone"`
	CancelledAt        time.Time `gorm:"not null" json:"cancelled_at"`
}
