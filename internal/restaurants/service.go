package restaurants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/pkg/db"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
	"github.com/nextbite-hq/nextbite-backend/pkg/rbac"
	"github.com/nextbite-hq/nextbite-backend/pkg/visibility"
)

// Service exposes restaurant browsing and administration.
type Service interface {
	List(ctx context.Context, actor *models.User) ([]RestaurantDTO, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*RestaurantDTO, error)
	Menu(ctx context.Context, actor *models.User, restaurantID uuid.UUID) ([]MenuItemDTO, error)
	Create(ctx context.Context, actor *models.User, input CreateRestaurantInput) (*RestaurantDTO, error)
	CreateMenuItem(ctx context.Context, actor *models.User, restaurantID uuid.UUID, input CreateMenuItemInput) (*MenuItemDTO, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// CreateRestaurantInput captures an admin-created restaurant.
type CreateRestaurantInput struct {
	Name        string
	Description *string
	Country     *string
	ImageURL    *string
}

// CreateMenuItemInput captures a new dish on a restaurant's menu.
type CreateMenuItemInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	ImageURL    *string
}

type restaurantRepository interface {
	WithTx(tx *gorm.DB) *Repository
	Create(ctx context.Context, restaurant *models.Restaurant) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	ListActive(ctx context.Context) ([]models.Restaurant, error)
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	ListMenu(ctx context.Context, restaurantID uuid.UUID) ([]models.MenuItem, error)
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the restaurants service.
type ServiceParams struct {
	RestaurantRepo    restaurantRepository
	TransactionRunner txRunner
}

type service struct {
	repo restaurantRepository
	tx   txRunner
}

// NewService constructs a restaurants service.
func NewService(params ServiceParams) (Service, error) {
	if params.RestaurantRepo == nil {
		return nil, fmt.Errorf("restaurant repository is required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{repo: params.RestaurantRepo, tx: params.TransactionRunner}, nil
}

func (s *service) List(ctx context.Context, actor *models.User) ([]RestaurantDTO, error) {
	if err := requireViewMenu(actor); err != nil {
		return nil, err
	}
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list restaurants")
	}
	out := make([]RestaurantDTO, 0, len(list))
	for i := range list {
		if !visibleTo(actor, &list[i]) {
			continue
		}
		out = append(out, *restaurantFromModel(&list[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*RestaurantDTO, error) {
	if err := requireViewMenu(actor); err != nil {
		return nil, err
	}
	restaurant, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return restaurantFromModel(restaurant), nil
}

func (s *service) Menu(ctx context.Context, actor *models.User, restaurantID uuid.UUID) ([]MenuItemDTO, error) {
	if err := requireViewMenu(actor); err != nil {
		return nil, err
	}
	if _, err := s.loadVisible(ctx, actor, restaurantID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListMenu(ctx, restaurantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list menu")
	}
	out := make([]MenuItemDTO, 0, len(items))
	for i := range items {
		out = append(out, *menuItemFromModel(&items[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor *models.User, input CreateRestaurantInput) (*RestaurantDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	restaurant := &models.Restaurant{
		Name:        name,
		Description: input.Description,
		Country:     input.Country,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, restaurant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create restaurant")
	}
	return restaurantFromModel(restaurant), nil
}

func (s *service) CreateMenuItem(ctx context.Context, actor *models.User, restaurantID uuid.UUID, input CreateMenuItemInput) (*MenuItemDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if _, err := s.repo.FindByID(ctx, restaurantID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup restaurant")
	}
	item := &models.MenuItem{
		RestaurantID: restaurantID,
		Name:         name,
		Description:  input.Description,
		Price:        input.Price,
		ImageURL:     input.ImageURL,
		IsAvailable:  true,
	}
	if err := s.repo.CreateMenuItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create menu item")
	}
	return menuItemFromModel(item), nil
}

func (s *service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup restaurant")
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteCascade(ctx, id)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete restaurant")
	}
	return nil
}

func (s *service) loadVisible(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Restaurant, error) {
	restaurant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup restaurant")
	}
	if !restaurant.IsActive || !visibleTo(actor, restaurant) {
		// Out-of-scope restaurants are indistinguishable from missing ones.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
	}
	return restaurant, nil
}

func visibleTo(actor *models.User, restaurant *models.Restaurant) bool {
	return visibility.CanViewInCountry(visibility.CountryScopeInput{
		Role:            actor.Role,
		UserCountry:     actor.Country,
		ResourceCountry: restaurant.Country,
	})
}

func requireViewMenu(actor *models.User) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !rbac.Has(actor.Role, rbac.PermissionViewMenu) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "view_menu permission required")
	}
	return nil
}

func requireAdmin(actor *models.User) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
