package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is a line within an order. PriceAtTime snapshots the menu item
// price when the line is first added so later menu edits never change an
// existing cart or completed order.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_items_order_menu_item" json:"order_id"`
	MenuItemID  uuid.UUID       `gorm:"column:menu_item_id;type:uuid;not null;uniqueIndex:idx_order_items_order_menu_item" json:"menu_item_id"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	PriceAtTime decimal.Decimal `gorm:"column:price_at_time;type:numeric(10,2);not null" json:"price_at_time"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
