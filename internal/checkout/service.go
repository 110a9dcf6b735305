package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/internal/cart"
	"github.com/nextbite-hq/nextbite-backend/pkg/db"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
	"github.com/nextbite-hq/nextbite-backend/pkg/metrics"
	"github.com/nextbite-hq/nextbite-backend/pkg/rbac"
	"github.com/nextbite-hq/nextbite-backend/pkg/square"
)

const (
	outcomeCompleted     = "completed"
	outcomePaymentFailed = "payment_failed"
	outcomeCancelled     = "cancelled"

	methodLabelCash = "cash"
	methodLabelCard = "card"
)

var centsFactor = decimal.NewFromInt(100)

// Service settles carts and cancels orders.
type Service interface {
	Checkout(ctx context.Context, actor *models.User, orderID uuid.UUID, paymentMethodID *uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actor *models.User, orderID uuid.UUID) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentGateway interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	gateway paymentGateway
	metrics *metrics.CheckoutMetrics
}

// NewService builds the checkout service. A nil gateway disables card
// payments; checkout then fails with a configuration error.
func NewService(tx txRunner, repo Repository, gateway paymentGateway, checkoutMetrics *metrics.CheckoutMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		gateway: gateway,
		metrics: checkoutMetrics,
	}, nil
}

// Checkout settles the cart. The payment method is resolved against the
// order OWNER, so a manager checking out a team member's cart draws on that
// member's stored method. The gateway call happens inside the row lock: a
// concurrent double submit blocks, then observes a non-cart status.
func (s *service) Checkout(ctx context.Context, actor *models.User, orderID uuid.UUID, paymentMethodID *uuid.UUID) (*models.Order, error) {
	if err := requirePermission(actor, rbac.PermissionCheckout); err != nil {
		return nil, err
	}

	start := time.Now()
	var order *models.Order
	var methodLabel string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if locked.UserID != actor.ID && !rbac.CanActForOthers(actor.Role) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot check out another user's order")
		}
		if locked.Status != enums.OrderStatusCart {
			return pkgerrors.New(pkgerrors.CodeValidation, "order is not in cart status")
		}
		if len(locked.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		method, err := s.resolveMethod(ctx, repo, locked.UserID, paymentMethodID)
		if err != nil {
			return err
		}

		total := cart.ComputeTotal(locked.Items)

		var paymentReference *string
		if method.IsCash() {
			methodLabel = methodLabelCash
		} else {
			methodLabel = methodLabelCard
			reference, err := s.chargeCard(ctx, locked, method, total)
			if err != nil {
				return err
			}
			paymentReference = reference
		}

		if err := repo.SetCompleted(ctx, locked.ID, total, paymentReference); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete order")
		}
		locked.Status = enums.OrderStatusCompleted
		locked.TotalAmount = total
		locked.PaymentReference = paymentReference
		order = locked
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePaymentFailed {
			s.metrics.IncOutcome(methodLabel, outcomePaymentFailed)
		}
		return nil, err
	}

	s.metrics.IncOutcome(methodLabel, outcomeCompleted)
	s.metrics.ObserveDuration(methodLabel, time.Since(start))
	return order, nil
}

// Cancel moves a non-terminal order to CANCELLED. Unlike checkout, cancel
// never crosses ownership: elevated roles cannot cancel someone else's order.
func (s *service) Cancel(ctx context.Context, actor *models.User, orderID uuid.UUID) (*models.Order, error) {
	if err := requirePermission(actor, rbac.PermissionCancelOrder); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if locked.UserID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot cancel another user's order")
		}
		if locked.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot cancel a %s order", locked.Status))
		}

		if err := repo.SetCancelled(ctx, locked.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		locked.Status = enums.OrderStatusCancelled
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOutcome(orderMethodLabel(order), outcomeCancelled)
	return order, nil
}

// resolveMethod picks the explicit method or falls back to the owner's
// default. Methods are always scoped to the order owner, never the actor.
func (s *service) resolveMethod(ctx context.Context, repo Repository, ownerID uuid.UUID, paymentMethodID *uuid.UUID) (*models.PaymentMethod, error) {
	if paymentMethodID != nil {
		method, err := repo.FindMethodByID(ctx, *paymentMethodID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup payment method")
		}
		if method.UserID != ownerID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return method, nil
	}

	method, err := repo.FindDefaultMethod(ctx, ownerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order owner has no default payment method")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup default payment method")
	}
	return method, nil
}

// chargeCard runs one immediate-capture payment. Amount conversion to minor
// units truncates, matching the stored numeric(10,2) precision.
func (s *service) chargeCard(ctx context.Context, order *models.Order, method *models.PaymentMethod, total decimal.Decimal) (*string, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway is not configured")
	}

	payment, err := s.gateway.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: total.Mul(centsFactor).IntPart(),
		Currency:    "USD",
		SourceID:    method.GatewayCardID,
		ReferenceID: order.ID.String(),
		Note:        fmt.Sprintf("order %s", order.ID),
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "charge card")
	}
	if payment == nil || payment.GetID() == nil || strings.TrimSpace(*payment.GetID()) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway payment missing id")
	}
	reference := strings.TrimSpace(*payment.GetID())
	return &reference, nil
}

func orderMethodLabel(order *models.Order) string {
	if order != nil && order.PaymentReference != nil {
		return methodLabelCard
	}
	return methodLabelCash
}

func requirePermission(actor *models.User, permission rbac.Permission) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !rbac.Has(actor.Role, permission) {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s permission required", permission))
	}
	return nil
}
