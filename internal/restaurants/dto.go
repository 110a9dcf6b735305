package restaurants

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
)

// RestaurantDTO is the transport shape for restaurant reads.
type RestaurantDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Country     *string   `json:"country,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// MenuItemDTO is the transport shape for menu reads.
type MenuItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     *string         `json:"image_url,omitempty"`
	IsAvailable  bool            `json:"is_available"`
}

func restaurantFromModel(r *models.Restaurant) *RestaurantDTO {
	if r == nil {
		return nil
	}
	return &RestaurantDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Country:     r.Country,
		ImageURL:    r.ImageURL,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

func menuItemFromModel(m *models.MenuItem) *MenuItemDTO {
	if m == nil {
		return nil
	}
	return &MenuItemDTO{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		ImageURL:     m.ImageURL,
		IsAvailable:  m.IsAvailable,
	}
}
