package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nextbite-hq/nextbite-backend/internal/users"
	pkgauth "github.com/nextbite-hq/nextbite-backend/pkg/auth"
	"github.com/nextbite-hq/nextbite-backend/pkg/config"
	"github.com/nextbite-hq/nextbite-backend/pkg/db"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/email"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
	"github.com/nextbite-hq/nextbite-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, claims *pkgauth.AccessTokenClaims) error
}

type userRepository interface {
	WithTx(tx *gorm.DB) *users.Repository
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type cashProvisioner interface {
	ProvisionCashMethod(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type tokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo          userRepository
	CashProvisioner   cashProvisioner
	TransactionRunner txRunner
	TokenRevoker      tokenRevoker
	EmailSender       email.Sender
	JWTConfig         config.JWTConfig
	PasswordConfig    config.PasswordConfig
	AppConfig         config.AppConfig
}

type service struct {
	users       userRepository
	cash        cashProvisioner
	tx          txRunner
	revoker     tokenRevoker
	mail        email.Sender
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	appCfg      config.AppConfig
}

// NewService constructs an auth service with the provided dependencies.
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
	if params.TokenRevoker == nil {
		return nil, fmt.Errorf("token revoker is required")
	}
	if params.EmailSender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	return &service{
		users:       params.UserRepo,
		cash:        params.CashProvisioner,
		tx:          params.TransactionRunner,
		revoker:     params.TokenRevoker,
		mail:        params.EmailSender,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		appCfg:      params.AppConfig,
	}, nil
}

// Register creates a team member account with its cash payment method and
// returns a signed token. The welcome email never blocks the response.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if emailAddr == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		user, err := repo.Create(ctx, users.CreateUserDTO{
			Email:        emailAddr,
			PasswordHash: hash,
			FullName:     fullName,
			Role:         enums.RoleTeamMember,
			Country:      req.Country,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register user")
	}

	token, err := s.mintToken(created)
	if err != nil {
		return nil, err
	}

	s.mail.SendAsync(ctx, email.Message{
		To:      emailAddr,
		Subject: fmt.Sprintf("Welcome to %s", s.appCfg.Name),
		HTML:    fmt.Sprintf("<html><body><p>Hi %s,</p><p>Your %s account is ready.</p></body></html>", fullName, s.appCfg.Name),
	})

	return &AuthResponse{AccessToken: token, User: users.FromModel(created)}, nil
}

// Login verifies credentials and mints a fresh token.
func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := s.mintToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{AccessToken: token, User: users.FromModel(user)}, nil
}

// Logout revokes the token id for as long as the token would otherwise stay
// valid. Already-expired tokens have nothing to revoke.
func (s *service) Logout(ctx context.Context, claims *pkgauth.AccessTokenClaims) error {
	if claims == nil || strings.TrimSpace(claims.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ttl := claims.RemainingTTL(time.Now().UTC())
	if err := s.revoker.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke token")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, emailAddr, password string) (*models.User, error) {
	input := strings.TrimSpace(emailAddr)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) mintToken(user *models.User) (string, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}
