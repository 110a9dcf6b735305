package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuItem is a purchasable entry on a restaurant's menu.
type MenuItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID       `gorm:"column:restaurant_id;type:uuid;not null;index" json:"restaurant_id"`
	Name         string          `gorm:"not null" json:"name"`
	Description  *string         `gorm:"column:description" json:"description"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	ImageURL     *string         `gorm:"column:image_url" json:"image_url"`
	IsAvailable  bool            `gorm:"column:is_available;not null" json:"is_available"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
