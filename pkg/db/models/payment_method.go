package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CashBrand marks the internal cash method every user receives at
// registration. Cash methods never reach the card gateway.
const CashBrand = "Cash"

// PaymentMethod stores a gateway card reference (or the internal cash
// method) owned by one user. At most one method per user carries
// IsDefault=true; the services enforce that under a row lock.
type PaymentMethod struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	GatewayCardID string    `gorm:"column:gateway_card_id;not null;uniqueIndex" json:"gateway_card_id"`
	Last4         string    `gorm:"column:last4;not null" json:"last4"`
	Brand         string    `gorm:"column:brand;not null" json:"brand"`
	IsDefault     bool      `gorm:"column:is_default;not null;default:false" json:"is_default"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsCash reports whether the method is the internal cash method.
func (m *PaymentMethod) IsCash() bool {
	return m.Brand == CashBrand
}

func (m *PaymentMethod) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
