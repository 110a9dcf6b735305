package restaurants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
)

// Repository exposes restaurant and menu persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a restaurants repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to a transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a restaurant.
func (r *Repository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

// FindByID loads a restaurant.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

// ListActive returns all active restaurants.
func (r *Repository) ListActive(ctx context.Context) ([]models.Restaurant, error) {
	var list []models.Restaurant
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// CreateMenuItem inserts a menu item.
func (r *Repository) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindMenuItemByID loads a single menu item.
func (r *Repository) FindMenuItemByID(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListMenu returns the available menu items for a restaurant.
func (r *Repository) ListMenu(ctx context.Context, restaurantID uuid.UUID) ([]models.MenuItem, error) {
	var list []models.MenuItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND is_available = ?", restaurantID, true).
		Order("name ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteCascade removes the menu items and then the restaurant row. The
// caller is expected to run this inside a transaction.
func (r *Repository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("restaurant_id = ?", id).Delete(&models.MenuItem{}).Error; err != nil {
		return err
	}
	return conn.Delete(&models.Restaurant{}, "id = ?", id).Error
}
