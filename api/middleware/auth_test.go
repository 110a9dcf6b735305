package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/nextbite-hq/nextbite-backend/pkg/auth"
	"github.com/nextbite-hq/nextbite-backend/pkg/config"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
)

type stubRevoker struct {
	revoked map[string]bool
	err     error
}

func (s stubRevoker) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[jti], nil
}

type stubActorLoader struct {
	users map[uuid.UUID]*models.User
}

func (s stubActorLoader) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, role enums.Role, jti string) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT(), stubRevoker{}, stubActorLoader{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT(), stubRevoker{}, stubActorLoader{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedToken(t *testing.T) {
	cfg := testJWT()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID, enums.RoleTeamMember, "jti-revoked")

	loader := stubActorLoader{users: map[uuid.UUID]*models.User{
		userID: {ID: userID, Role: enums.RoleTeamMember, IsActive: true},
	}}
	revoker := stubRevoker{revoked: map[string]bool{"jti-revoked": true}}

	handler := Auth(cfg, revoker, loader, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsDeactivatedAccount(t *testing.T) {
	cfg := testJWT()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID, enums.RoleManager, "jti-1")

	loader := stubActorLoader{users: map[uuid.UUID]*models.User{
		userID: {ID: userID, Role: enums.RoleManager, IsActive: false},
	}}

	handler := Auth(cfg, stubRevoker{}, loader, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsActorContext(t *testing.T) {
	cfg := testJWT()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID, enums.RoleAdmin, "jti-2")

	loader := stubActorLoader{users: map[uuid.UUID]*models.User{
		userID: {ID: userID, Email: "admin@example.com", Role: enums.RoleAdmin, IsActive: true},
	}}

	var captured struct {
		actor *models.User
		jti   string
	}
	handler := Auth(cfg, stubRevoker{}, loader, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.actor = ActorFromContext(r.Context())
		captured.jti = TokenIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.actor == nil || captured.actor.ID != userID {
		t.Fatal("expected actor in context")
	}
	if captured.actor.Role != enums.RoleAdmin {
		t.Fatalf("expected admin role got %s", captured.actor.Role)
	}
	if captured.jti != "jti-2" {
		t.Fatalf("expected token id jti-2 got %s", captured.jti)
	}
}
