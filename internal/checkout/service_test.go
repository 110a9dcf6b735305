package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
	"github.com/nextbite-hq/nextbite-backend/pkg/square"
)

type stubCheckoutRepo struct {
	order         *models.Order
	methods       map[uuid.UUID]*models.PaymentMethod
	defaultMethod *models.PaymentMethod

	completedID  uuid.UUID
	completedRef *string
	cancelledID  uuid.UUID
}

func (s *stubCheckoutRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCheckoutRepo) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s.order
	return &clone, nil
}

func (s *stubCheckoutRepo) FindMethodByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	method, ok := s.methods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return method, nil
}

func (s *stubCheckoutRepo) FindDefaultMethod(ctx context.Context, userID uuid.UUID) (*models.PaymentMethod, error) {
	if s.defaultMethod == nil || s.defaultMethod.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.defaultMethod, nil
}

func (s *stubCheckoutRepo) SetCompleted(ctx context.Context, orderID uuid.UUID, total decimal.Decimal, paymentReference *string) error {
	s.completedID = orderID
	s.completedRef = paymentReference
	s.order.Status = enums.OrderStatusCompleted
	s.order.TotalAmount = total
	return nil
}

func (s *stubCheckoutRepo) SetCancelled(ctx context.Context, orderID uuid.UUID) error {
	s.cancelledID = orderID
	s.order.Status = enums.OrderStatusCancelled
	return nil
}

type stubGateway struct {
	payment *sq.Payment
	err     error
	params  square.PaymentCreateParams
	calls   int
}

func (s *stubGateway) CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	s.calls++
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return s.payment, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func cartFixture(ownerID uuid.UUID) *models.Order {
	priceBurger := decimal.RequireFromString("9.50")
	priceSoda := decimal.RequireFromString("2.25")
	orderID := uuid.New()
	return &models.Order{
		ID:           orderID,
		UserID:       ownerID,
		RestaurantID: uuid.New(),
		Status:       enums.OrderStatusCart,
		Items: []models.OrderItem{
			{ID: uuid.New(), OrderID: orderID, MenuItemID: uuid.New(), Quantity: 2, PriceAtTime: priceBurger},
			{ID: uuid.New(), OrderID: orderID, MenuItemID: uuid.New(), Quantity: 1, PriceAtTime: priceSoda},
		},
	}
}

func cashMethod(ownerID uuid.UUID) *models.PaymentMethod {
	return &models.PaymentMethod{
		ID:            uuid.New(),
		UserID:        ownerID,
		GatewayCardID: "cash_" + ownerID.String(),
		Last4:         "CASH",
		Brand:         models.CashBrand,
		IsDefault:     true,
	}
}

func cardMethod(ownerID uuid.UUID) *models.PaymentMethod {
	return &models.PaymentMethod{
		ID:            uuid.New(),
		UserID:        ownerID,
		GatewayCardID: "ccof:card-1",
		Last4:         "4242",
		Brand:         "Visa",
		IsDefault:     true,
	}
}

func buildCheckoutService(t *testing.T, repo Repository, gateway paymentGateway) Service {
	t.Helper()
	svc, err := NewService(passthroughTxRunner{}, repo, gateway, nil)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func squarePayment(id string) *sq.Payment {
	return &sq.Payment{ID: &id}
}

func TestCheckoutCashCompletesWithoutGateway(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleTeamMember, IsActive: true}
	// Team members cannot check out; managers settle on their behalf.
	manager := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	repo := &stubCheckoutRepo{
		order:         cartFixture(owner.ID),
		defaultMethod: cashMethod(owner.ID),
	}
	gateway := &stubGateway{}
	svc := buildCheckoutService(t, repo, gateway)

	order, err := svc.Checkout(context.Background(), manager, repo.order.ID, nil)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if order.Status != enums.OrderStatusCompleted {
		t.Fatalf("status %s, want completed", order.Status)
	}
	if order.PaymentReference != nil {
		t.Fatal("cash checkout should not carry a payment reference")
	}
	if want := decimal.RequireFromString("21.25"); !order.TotalAmount.Equal(want) {
		t.Fatalf("total %s, want %s", order.TotalAmount, want)
	}
	if gateway.calls != 0 {
		t.Fatal("cash checkout must not touch the gateway")
	}
}

func TestCheckoutCardChargesOwnerMethod(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleTeamMember, IsActive: true}
	manager := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	method := cardMethod(owner.ID)
	repo := &stubCheckoutRepo{
		order:         cartFixture(owner.ID),
		defaultMethod: method,
	}
	gateway := &stubGateway{payment: squarePayment("pay_abc")}
	svc := buildCheckoutService(t, repo, gateway)

	order, err := svc.Checkout(context.Background(), manager, repo.order.ID, nil)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if order.PaymentReference == nil || *order.PaymentReference != "pay_abc" {
		t.Fatalf("payment reference %v, want pay_abc", order.PaymentReference)
	}
	if gateway.params.SourceID != method.GatewayCardID {
		t.Fatalf("charged source %s, want the owner's card %s", gateway.params.SourceID, method.GatewayCardID)
	}
	if gateway.params.AmountCents != 2125 {
		t.Fatalf("amount %d cents, want 2125", gateway.params.AmountCents)
	}
	if gateway.params.ReferenceID != order.ID.String() {
		t.Fatalf("reference id %s, want order id", gateway.params.ReferenceID)
	}
}

func TestCheckoutPaymentFailureLeavesCart(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	repo := &stubCheckoutRepo{
		order:         cartFixture(owner.ID),
		defaultMethod: cardMethod(owner.ID),
	}
	gateway := &stubGateway{err: pkgerrors.New(pkgerrors.CodePaymentFailed, "card declined")}
	svc := buildCheckoutService(t, repo, gateway)

	_, err := svc.Checkout(context.Background(), owner, repo.order.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentFailed {
		t.Fatalf("expected payment failure, got %v", err)
	}
	if repo.completedID != uuid.Nil {
		t.Fatal("order was completed despite the declined charge")
	}
}

func TestCheckoutExplicitMethodMustBelongToOwner(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleTeamMember, IsActive: true}
	manager := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	managersCard := cardMethod(manager.ID)
	repo := &stubCheckoutRepo{
		order:   cartFixture(owner.ID),
		methods: map[uuid.UUID]*models.PaymentMethod{managersCard.ID: managersCard},
	}
	svc := buildCheckoutService(t, repo, &stubGateway{payment: squarePayment("pay_abc")})

	_, err := svc.Checkout(context.Background(), manager, repo.order.ID, &managersCard.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for a method outside the owner's wallet, got %v", err)
	}
}

func TestCheckoutNoDefaultMethod(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	repo := &stubCheckoutRepo{order: cartFixture(owner.ID)}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	_, err := svc.Checkout(context.Background(), owner, repo.order.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutNonCartStatusRejected(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	order := cartFixture(owner.ID)
	order.Status = enums.OrderStatusCompleted
	repo := &stubCheckoutRepo{order: order, defaultMethod: cashMethod(owner.ID)}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	_, err := svc.Checkout(context.Background(), owner, order.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for settled order, got %v", err)
	}
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	order := cartFixture(owner.ID)
	order.Items = nil
	repo := &stubCheckoutRepo{order: order, defaultMethod: cashMethod(owner.ID)}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	_, err := svc.Checkout(context.Background(), owner, order.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}
}

func TestCheckoutPermissionDeniedForTeamMember(t *testing.T) {
	member := &models.User{ID: uuid.New(), Role: enums.RoleTeamMember, IsActive: true}
	repo := &stubCheckoutRepo{order: cartFixture(member.ID), defaultMethod: cashMethod(member.ID)}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	_, err := svc.Checkout(context.Background(), member, repo.order.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCheckoutCrossUserNeedsElevatedRole(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	repo := &stubCheckoutRepo{order: cartFixture(owner.ID), defaultMethod: cashMethod(owner.ID)}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	// A second manager may settle the cart; the permission model scopes
	// cross-user action to role, not ownership.
	other := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	if _, err := svc.Checkout(context.Background(), other, repo.order.ID, nil); err != nil {
		t.Fatalf("manager cross-user checkout failed: %v", err)
	}
}

func TestCheckoutCardWithoutGatewayIsConfigurationError(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	repo := &stubCheckoutRepo{order: cartFixture(owner.ID), defaultMethod: cardMethod(owner.ID)}
	svc := buildCheckoutService(t, repo, nil)

	_, err := svc.Checkout(context.Background(), owner, repo.order.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCancelCartOrder(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	repo := &stubCheckoutRepo{order: cartFixture(owner.ID)}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	order, err := svc.Cancel(context.Background(), owner, repo.order.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if order.Status != enums.OrderStatusCancelled {
		t.Fatalf("status %s, want cancelled", order.Status)
	}
	if repo.cancelledID != order.ID {
		t.Fatal("cancel did not reach the repository")
	}
}

func TestCancelTerminalOrderRejected(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	order := cartFixture(owner.ID)
	order.Status = enums.OrderStatusCompleted
	repo := &stubCheckoutRepo{order: order}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	_, err := svc.Cancel(context.Background(), owner, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelRequiresOwnership(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: enums.RoleTeamMember, IsActive: true}
	manager := &models.User{ID: uuid.New(), Role: enums.RoleManager, IsActive: true}
	repo := &stubCheckoutRepo{order: cartFixture(owner.ID)}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	// A manager may settle someone else's cart but never cancel it.
	_, err := svc.Cancel(context.Background(), manager, repo.order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for cross-user cancel, got %v", err)
	}
	if repo.cancelledID != uuid.Nil {
		t.Fatal("cancel reached the repository despite the ownership failure")
	}
	if repo.order.Status != enums.OrderStatusCart {
		t.Fatalf("status %s, want cart untouched", repo.order.Status)
	}
}

func TestCancelPermissionDeniedForTeamMember(t *testing.T) {
	member := &models.User{ID: uuid.New(), Role: enums.RoleTeamMember, IsActive: true}
	repo := &stubCheckoutRepo{order: cartFixture(member.ID)}
	svc := buildCheckoutService(t, repo, &stubGateway{})

	_, err := svc.Cancel(context.Background(), member, repo.order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
