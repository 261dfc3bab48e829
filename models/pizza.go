package models

import "time"

type Pizza struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	BasePrice   float64   `gorm:"type:decimal(10,2);not null" json:"base_price"`
	ImageURL    *string   `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	Category    string    `gorm:"type:varchar(50);not null;default:'signature'" json:"category"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
