package models

import (
	"time"
)

// Payment status values for an order.
const (
	PaymentAuthorized = "authorized"
	PaymentCharged    = "charged"
	PaymentFailed     = "failed"
)

type Order struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	OrderToken          string       `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_token"`
	CustomerInfo        CustomerInfo `gorm:"type:text;not null" json:"customer_info"`
	Items               CartItems    `gorm:"type:text;not null" json:"items"`
	Subtotal            float64      `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Tax                 float64      `gorm:"type:decimal(10,2);not null" json:"tax"`
	Tip                 float64      `gorm:"type:decimal(10,2);not null;default:0.00" json:"tip"`
	Total               float64      `gorm:"type:decimal(10,2);not null" json:"total"`
	OrderType           string       `gorm:"type:varchar(20);not null;default:'pickup'" json:"order_type"`
	Status              string       `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	SpecialInstructions string       `gorm:"type:text" json:"special_instructions,omitempty"`
	EstimatedTime       int          `json:"estimated_time,omitempty"`
	PaymentID           string       `gorm:"type:varchar(64)" json:"payment_id,omitempty"`
	PaymentStatus       string       `gorm:"type:varchar(20);not null;default:'authorized'" json:"payment_status"`
	CreatedAt           time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null" json:"updated_at"`
}

// ShortToken is the customer-facing tail of the order token shown in the
// tracking view header.
func (o *Order) ShortToken() string {
	if len(o.OrderToken) <= 8 {
		return o.OrderToken
	}
	return o.OrderToken[len(o.OrderToken)-8:]
}
