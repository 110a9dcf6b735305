package paymentmethods

import (
	"time"

	"github.com/google/uuid"

	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
)

// PaymentMethodDTO is the transport shape for stored methods.
type PaymentMethodDTO struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	GatewayCardID string    `json:"gateway_card_id"`
	Last4         string    `json:"last4"`
	Brand         string    `json:"brand"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
}

func fromModel(m *models.PaymentMethod) *PaymentMethodDTO {
	if m == nil {
		return nil
	}
	return &PaymentMethodDTO{
		ID:            m.ID,
		UserID:        m.UserID,
		GatewayCardID: m.GatewayCardID,
		Last4:         m.Last4,
		Brand:         m.Brand,
		IsDefault:     m.IsDefault,
		CreatedAt:     m.CreatedAt,
	}
}
