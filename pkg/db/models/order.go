package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
)

// Order holds a user's cart against one restaurant until it reaches a
// terminal status. TotalAmount is derived from the line items and is never
// edited independently.
type Order struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	RestaurantID     uuid.UUID         `gorm:"column:restaurant_id;type:uuid;not null;index" json:"restaurant_id"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'cart'" json:"status"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null;default:0" json:"total_amount"`
	PaymentReference *string           `gorm:"column:payment_reference" json:"payment_reference"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
