package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/pkg/db"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
	"github.com/nextbite-hq/nextbite-backend/pkg/rbac"
	"github.com/nextbite-hq/nextbite-backend/pkg/visibility"
)

// Service drives the cart lifecycle up to checkout.
type Service interface {
	Open(ctx context.Context, actor *models.User, restaurantID uuid.UUID) (*models.Order, error)
	AddItem(ctx context.Context, actor *models.User, orderID, menuItemID uuid.UUID, quantity int) (*models.Order, error)
	RemoveItem(ctx context.Context, actor *models.User, orderID, itemID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, actor *models.User, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, actor *models.User) ([]models.Order, error)
	ListAllCarts(ctx context.Context, actor *models.User) ([]models.Order, error)
}

type cartRepository interface {
	WithTx(tx *gorm.DB) *Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockCart(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOpenCartByUser(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListOpenCarts(ctx context.Context) ([]models.Order, error)
}

type restaurantLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	FindMenuItemByID(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	CartRepo          cartRepository
	RestaurantLoader  restaurantLoader
	TransactionRunner txRunner
}

type service struct {
	repo        cartRepository
	restaurants restaurantLoader
	tx          txRunner
}

// NewService constructs a cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.RestaurantLoader == nil {
		return nil, fmt.Errorf("restaurant loader is required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:        params.CartRepo,
		restaurants: params.RestaurantLoader,
		tx:          params.TransactionRunner,
	}, nil
}

// Open returns the actor's cart for the restaurant, creating it when absent.
// A cart held against a different restaurant is discarded first.
func (s *service) Open(ctx context.Context, actor *models.User, restaurantID uuid.UUID) (*models.Order, error) {
	if err := requirePermission(actor, rbac.PermissionCreateOrder); err != nil {
		return nil, err
	}
	restaurant, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup restaurant")
	}
	if !restaurant.IsActive || !visibility.CanViewInCountry(visibility.CountryScopeInput{
		Role:            actor.Role,
		UserCountry:     actor.Country,
		ResourceCountry: restaurant.Country,
	}) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
	}

	existing, err := s.repo.FindOpenCartByUser(ctx, actor.ID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup open cart")
	}
	if existing != nil && existing.RestaurantID == restaurantID {
		return existing, nil
	}

	cart := &models.Order{
		UserID:       actor.ID,
		RestaurantID: restaurantID,
		Status:       enums.OrderStatusCart,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if existing != nil {
			if err := repo.DeleteCartCascade(ctx, existing.ID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, cart)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open cart")
	}
	return cart, nil
}

// AddItem puts a dish in the cart, merging quantity on duplicates and
// capturing the current menu price. The cart row is locked for the whole
// mutation so the status check, the line write, and the recomputed total
// cannot interleave with a concurrent checkout or a second add.
func (s *service) AddItem(ctx context.Context, actor *models.User, orderID, menuItemID uuid.UUID, quantity int) (*models.Order, error) {
	if err := requirePermission(actor, rbac.PermissionCreateOrder); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	menuItem, err := s.restaurants.FindMenuItemByID(ctx, menuItemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup menu item")
	}
	if !menuItem.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item is unavailable")
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := lockOwnedCart(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if menuItem.RestaurantID != locked.RestaurantID {
			return pkgerrors.New(pkgerrors.CodeValidation, "menu item belongs to a different restaurant")
		}

		var existing *models.OrderItem
		for i := range locked.Items {
			if locked.Items[i].MenuItemID == menuItemID {
				existing = &locked.Items[i]
				break
			}
		}
		if existing != nil {
			existing.Quantity += quantity
			if err := repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart line")
			}
		} else {
			item := models.OrderItem{
				OrderID:     locked.ID,
				MenuItemID:  menuItemID,
				Quantity:    quantity,
				PriceAtTime: menuItem.Price,
			}
			if err := repo.CreateItem(ctx, &item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart line")
			}
			locked.Items = append(locked.Items, item)
		}
		total := ComputeTotal(locked.Items)
		if err := repo.UpdateTotal(ctx, locked.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart total")
		}
		locked.TotalAmount = total
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RemoveItem drops a line from the cart and recomputes the total, under the
// same row lock as AddItem.
func (s *service) RemoveItem(ctx context.Context, actor *models.User, orderID, itemID uuid.UUID) (*models.Order, error) {
	if err := requirePermission(actor, rbac.PermissionCreateOrder); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := lockOwnedCart(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}

		idx := -1
		for i := range locked.Items {
			if locked.Items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
		}
		locked.Items = append(locked.Items[:idx], locked.Items[idx+1:]...)
		total := ComputeTotal(locked.Items)
		if err := repo.UpdateTotal(ctx, locked.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart total")
		}
		locked.TotalAmount = total
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Get loads one order. Owners always see their own; admins and managers see
// anyone's.
func (s *service) Get(ctx context.Context, actor *models.User, orderID uuid.UUID) (*models.Order, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID && !rbac.CanActForOthers(actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another user's order")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, actor *models.User) ([]models.Order, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	list, err := s.repo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

func (s *service) ListAllCarts(ctx context.Context, actor *models.User) ([]models.Order, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !rbac.CanActForOthers(actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view other users' carts")
	}
	list, err := s.repo.ListOpenCarts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list carts")
	}
	return list, nil
}

// lockOwnedCart loads the order under the row lock and gates ownership and
// status. Must run inside the transaction that mutates the cart.
func lockOwnedCart(ctx context.Context, repo *Repository, actor *models.User, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.LockCart(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
	}
	if order.UserID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot modify another user's cart")
	}
	if order.Status != enums.OrderStatusCart {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not in cart status")
	}
	return order, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup order")
	}
	return order, nil
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
