package paymentmethods

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/internal/users"
	"github.com/nextbite-hq/nextbite-backend/pkg/db"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
	"github.com/nextbite-hq/nextbite-backend/pkg/rbac"
)

const cashLast4 = "CASH"

// Service orchestrates stored payment method management.
type Service interface {
	List(ctx context.Context, actor *models.User, targetUserID uuid.UUID) ([]PaymentMethodDTO, error)
	Create(ctx context.Context, actor *models.User, input CreateInput) ([]PaymentMethodDTO, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateInput) (*PaymentMethodDTO, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	ProvisionCashMethod(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// CreateInput captures a new card reference. AllUsers fans the method out to
// every active user with a per-user gateway reference.
type CreateInput struct {
	TargetUserID  uuid.UUID
	AllUsers      bool
	GatewayCardID string
	Last4         string
	Brand         string
	IsDefault     bool
}

// UpdateInput carries the mutable fields of a stored method. Nil fields are
// left untouched.
type UpdateInput struct {
	GatewayCardID *string
	Last4         *string
	Brand         *string
	IsDefault     *bool
}

func (u UpdateInput) touchesDetails() bool {
	return u.GatewayCardID != nil || u.Last4 != nil || u.Brand != nil
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the payment method service.
type ServiceParams struct {
	MethodRepo        Repository
	UserLoader        userLoader
	TransactionRunner txRunner
}

type service struct {
	repo  Repository
	users userLoader
	tx    txRunner
}

var _ userLoader = (*users.Repository)(nil)

// NewService constructs a payment method service.
func NewService(params ServiceParams) (Service, error) {
	if params.MethodRepo == nil {
		return nil, fmt.Errorf("method repository is required")
	}
	if params.UserLoader == nil {
		return nil, fmt.Errorf("user loader is required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:  params.MethodRepo,
		users: params.UserLoader,
		tx:    params.TransactionRunner,
	}, nil
}

func (s *service) List(ctx context.Context, actor *models.User, targetUserID uuid.UUID) ([]PaymentMethodDTO, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if targetUserID == uuid.Nil {
		targetUserID = actor.ID
	}
	if targetUserID != actor.ID && !rbac.CanActForOthers(actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another user's payment methods")
	}

	list, err := s.repo.ListByUser(ctx, targetUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment methods")
	}
	out := make([]PaymentMethodDTO, 0, len(list))
	for i := range list {
		out = append(out, *fromModel(&list[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor *models.User, input CreateInput) ([]PaymentMethodDTO, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cardID := strings.TrimSpace(input.GatewayCardID)
	if cardID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway_card_id is required")
	}
	brand := strings.TrimSpace(input.Brand)
	if brand == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	}
	if strings.EqualFold(brand, models.CashBrand) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash methods are provisioned automatically")
	}

	if input.AllUsers {
		return s.createForAllUsers(ctx, actor, cardID, input)
	}

	target := input.TargetUserID
	if target == uuid.Nil {
		target = actor.ID
	}
	if target != actor.ID && !rbac.Has(actor.Role, rbac.PermissionManageUsers) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create payment methods for another user")
	}
	if target != actor.ID {
		if _, err := s.users.FindByID(ctx, target); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
		}
	}

	method := &models.PaymentMethod{
		UserID:        target,
		GatewayCardID: cardID,
		Last4:         strings.TrimSpace(input.Last4),
		Brand:         brand,
		IsDefault:     input.IsDefault,
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.insertWithDefault(ctx, tx, method)
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "gateway card already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment method")
	}
	return []PaymentMethodDTO{*fromModel(method)}, nil
}

func (s *service) createForAllUsers(ctx context.Context, actor *models.User, cardID string, input CreateInput) ([]PaymentMethodDTO, error) {
	if !rbac.Has(actor.Role, rbac.PermissionManageUsers) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bulk creation requires manage_users")
	}
	targets, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	created := make([]PaymentMethodDTO, 0, len(targets))
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for i := range targets {
			method := &models.PaymentMethod{
				UserID:        targets[i].ID,
				GatewayCardID: fmt.Sprintf("%s_%s", cardID, targets[i].ID),
				Last4:         strings.TrimSpace(input.Last4),
				Brand:         strings.TrimSpace(input.Brand),
				IsDefault:     input.IsDefault,
			}
			if err := s.insertWithDefault(ctx, tx, method); err != nil {
				return err
			}
			created = append(created, *fromModel(method))
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "gateway card already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bulk create payment methods")
	}
	return created, nil
}

// insertWithDefault creates the method inside tx, holding the owner's rows
// under lock so only one default survives.
func (s *service) insertWithDefault(ctx context.Context, tx *gorm.DB, method *models.PaymentMethod) error {
	repo := s.repo.WithTx(tx)
	existing, err := repo.LockByUser(ctx, method.UserID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		method.IsDefault = true
	} else if method.IsDefault {
		if err := repo.ClearDefault(ctx, method.UserID); err != nil {
			return err
		}
	}
	return repo.Create(ctx, method)
}

func (s *service) Update(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateInput) (*PaymentMethodDTO, error) {
	method, err := s.authorizeMethod(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.touchesDetails() {
		if method.IsCash() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash methods cannot be edited")
		}
		updates := map[string]any{}
		if input.GatewayCardID != nil {
			cardID := strings.TrimSpace(*input.GatewayCardID)
			if cardID == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway_card_id cannot be empty")
			}
			updates["gateway_card_id"] = cardID
			method.GatewayCardID = cardID
		}
		if input.Last4 != nil {
			last4 := strings.TrimSpace(*input.Last4)
			if len(last4) != 4 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "last4 must be four characters")
			}
			updates["last4"] = last4
			method.Last4 = last4
		}
		if input.Brand != nil {
			brand := strings.TrimSpace(*input.Brand)
			if brand == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
			}
			if strings.EqualFold(brand, models.CashBrand) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash methods are provisioned automatically")
			}
			updates["brand"] = brand
			method.Brand = brand
		}
		if err := s.repo.UpdateDetails(ctx, id, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "gateway card already registered")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment method")
		}
	}

	if input.IsDefault == nil {
		return fromModel(method), nil
	}

	makeDefault := *input.IsDefault
	if !makeDefault && method.IsDefault {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "set another method as default instead of unsetting this one")
	}
	if makeDefault && !method.IsDefault {
		if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if _, err := repo.LockByUser(ctx, method.UserID); err != nil {
				return err
			}
			if err := repo.ClearDefault(ctx, method.UserID); err != nil {
				return err
			}
			return repo.SetDefault(ctx, id, true)
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment method")
		}
		method.IsDefault = true
	}
	return fromModel(method), nil
}

func (s *service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	method, err := s.authorizeMethod(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, method.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete payment method")
	}
	return nil
}

// ProvisionCashMethod creates the internal cash method a user receives at
// registration. It participates in the caller's transaction.
func (s *service) ProvisionCashMethod(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	repo := s.repo.WithTx(tx)
	existing, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for i := range existing {
		if existing[i].IsCash() {
			return nil
		}
	}
	return repo.Create(ctx, &models.PaymentMethod{
		UserID:        userID,
		GatewayCardID: fmt.Sprintf("cash_%s", userID),
		Last4:         cashLast4,
		Brand:         models.CashBrand,
		IsDefault:     len(existing) == 0,
	})
}

func (s *service) authorizeMethod(ctx context.Context, actor *models.User, id uuid.UUID) (*models.PaymentMethod, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	method, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup payment method")
	}
	if method.UserID != actor.ID && !rbac.Has(actor.Role, rbac.PermissionUpdatePayment) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot modify another user's payment method")
	}
	return method, nil
}
