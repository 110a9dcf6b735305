package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/pkg/config"
	"github.com/nextbite-hq/nextbite-backend/pkg/db"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/email"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
	"github.com/nextbite-hq/nextbite-backend/pkg/rbac"
	"github.com/nextbite-hq/nextbite-backend/pkg/security"
)

const tempPasswordLength = 12

// Service defines user administration behavior.
type Service interface {
	List(ctx context.Context, actor *models.User) ([]UserDTO, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*UserDTO, error)
	Create(ctx context.Context, actor *models.User, input CreateInput) (*UserDTO, error)
	UpdateRole(ctx context.Context, actor *models.User, id uuid.UUID, role enums.Role) (*UserDTO, error)
	SetActive(ctx context.Context, actor *models.User, id uuid.UUID, active bool) (*UserDTO, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// CreateInput captures an admin-created account. When Password is empty a
// temporary one is generated and mailed to the new user.
type CreateInput struct {
	Email    string
	FullName string
	Password string
	Role     enums.Role
	Country  *string
}

type userRepository interface {
	WithTx(tx *gorm.DB) *Repository
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type cashProvisioner interface {
	ProvisionCashMethod(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	UserRepo          userRepository
	CashProvisioner   cashProvisioner
	TransactionRunner txRunner
	EmailSender       email.Sender
	PasswordConfig    config.PasswordConfig
	AppConfig         config.AppConfig
}

type service struct {
	users       userRepository
	cash        cashProvisioner
	tx          txRunner
	mail        email.Sender
	passwordCfg config.PasswordConfig
	appCfg      config.AppConfig
}

// NewService constructs a user administration service.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.CashProvisioner == nil {
		return nil, fmt.Errorf("cash provisioner is required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.EmailSender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	return &service{
		users:       params.UserRepo,
		cash:        params.CashProvisioner,
		tx:          params.TransactionRunner,
		mail:        params.EmailSender,
		passwordCfg: params.PasswordConfig,
		appCfg:      params.AppConfig,
	}, nil
}

func (s *service) List(ctx context.Context, actor *models.User) ([]UserDTO, error) {
	if err := requireManageUsers(actor); err != nil {
		return nil, err
	}
	list, err := s.users.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]UserDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*UserDTO, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	// Anyone may read their own profile; reading others needs manage_users.
	if actor.ID != id {
		if err := requireManageUsers(actor); err != nil {
			return nil, err
		}
	}
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) Create(ctx context.Context, actor *models.User, input CreateInput) (*UserDTO, error) {
	if err := requireManageUsers(actor); err != nil {
		return nil, err
	}
	emailAddr := strings.ToLower(strings.TrimSpace(input.Email))
	if emailAddr == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}
	role := input.Role
	if role == "" {
		role = enums.RoleTeamMember
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}

	password := input.Password
	generated := false
	if password == "" {
		temp, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
		}
		password = temp
		generated = true
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		user, err := repo.Create(ctx, CreateUserDTO{
			Email:        emailAddr,
			PasswordHash: hash,
			FullName:     fullName,
			Role:         role,
			Country:      input.Country,
		})
		if err != nil {
			return err
		}
		if err := s.cash.ProvisionCashMethod(ctx, tx, user.ID); err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if generated {
		s.mail.SendAsync(ctx, email.CredentialsEmail(s.appCfg.Name, fullName, emailAddr, password, s.appCfg.FrontendURL))
	}
	return FromModel(created), nil
}

func (s *service) UpdateRole(ctx context.Context, actor *models.User, id uuid.UUID, role enums.Role) (*UserDTO, error) {
	if err := requireManageUsers(actor); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	if actor.ID == id && role != actor.Role {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot change your own role")
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
	}
	user.Role = role
	return FromModel(user), nil
}

func (s *service) SetActive(ctx context.Context, actor *models.User, id uuid.UUID, active bool) (*UserDTO, error) {
	if err := requireManageUsers(actor); err != nil {
		return nil, err
	}
	if actor.ID == id && !active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update active flag")
	}
	user.IsActive = active
	return FromModel(user), nil
}

func (s *service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if err := requireManageUsers(actor); err != nil {
		return err
	}
	if actor.ID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account")
	}
	if _, err := s.loadUser(ctx, id); err != nil {
		return err
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.users.WithTx(tx).DeleteCascade(ctx, id)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
	}
	return nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}

func requireManageUsers(actor *models.User) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !rbac.Has(actor.Role, rbac.PermissionManageUsers) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "manage_users permission required")
	}
	return nil
}
