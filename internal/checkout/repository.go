package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/pkg/db"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
)

// Repository exposes the queries checkout needs. All mutating calls are
// expected to run on a transaction handle obtained via WithTx.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindMethodByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
	FindDefaultMethod(ctx context.Context, userID uuid.UUID) (*models.PaymentMethod, error)
	SetCompleted(ctx context.Context, orderID uuid.UUID, total decimal.Decimal, paymentReference *string) error
	SetCancelled(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockOrder loads the order row under FOR UPDATE so concurrent checkouts of
// the same cart serialize. Items ride along without the lock.
func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := db.LockForUpdate(r.db.WithContext(ctx)).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindMethodByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.db.WithContext(ctx).First(&method, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) FindDefaultMethod(ctx context.Context, userID uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		First(&method).Error
	if err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) SetCompleted(ctx context.Context, orderID uuid.UUID, total decimal.Decimal, paymentReference *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumns(map[string]any{
			"status":            enums.OrderStatusCompleted,
			"total_amount":      total,
			"payment_reference": paymentReference,
		}).Error
}

func (r *repository) SetCancelled(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("status", enums.OrderStatusCancelled).Error
}
