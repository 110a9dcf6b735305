package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nextbite-hq/nextbite-backend/api/middleware"
	"github.com/nextbite-hq/nextbite-backend/pkg/db/models"
	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
)

type stubCheckoutService struct {
	order *models.Order
	err   error

	gotOrderID  uuid.UUID
	gotMethodID *uuid.UUID
	cancelledID uuid.UUID
}

func (s *stubCheckoutService) Checkout(ctx context.Context, actor *models.User, orderID uuid.UUID, paymentMethodID *uuid.UUID) (*models.Order, error) {
	s.gotOrderID = orderID
	s.gotMethodID = paymentMethodID
	return s.order, s.err
}

func (s *stubCheckoutService) Cancel(ctx context.Context, actor *models.User, orderID uuid.UUID) (*models.Order, error) {
	s.cancelledID = orderID
	return s.order, s.err
}

func requestWithOrderID(method, path string, orderID string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderID", orderID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	actor := &models.User{ID: uuid.New(), Role: enums.RoleTeamMember, IsActive: true}
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func TestOrdersCheckoutDefaultsToStoredMethod(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{order: &models.Order{ID: orderID, Status: enums.OrderStatusCompleted}}

	handler := OrdersCheckout(svc, nil)
	req := requestWithOrderID(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/checkout", orderID.String(), nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotOrderID != orderID {
		t.Fatalf("expected order %s got %s", orderID, svc.gotOrderID)
	}
	if svc.gotMethodID != nil {
		t.Fatal("expected nil payment method for bare checkout")
	}
}

func TestOrdersCheckoutPassesExplicitMethod(t *testing.T) {
	orderID := uuid.New()
	methodID := uuid.New()
	svc := &stubCheckoutService{order: &models.Order{ID: orderID, Status: enums.OrderStatusCompleted}}

	payload, _ := json.Marshal(map[string]string{"payment_method_id": methodID.String()})
	handler := OrdersCheckout(svc, nil)
	req := requestWithOrderID(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/checkout", orderID.String(), payload)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotMethodID == nil || *svc.gotMethodID != methodID {
		t.Fatal("expected explicit payment method forwarded")
	}
}

func TestOrdersCheckoutRejectsBadOrderID(t *testing.T) {
	svc := &stubCheckoutService{}

	handler := OrdersCheckout(svc, nil)
	req := requestWithOrderID(http.MethodPost, "/api/v1/orders/not-a-uuid/checkout", "not-a-uuid", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrdersCheckoutMapsPaymentFailure(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodePaymentFailed, "card declined")}

	handler := OrdersCheckout(svc, nil)
	req := requestWithOrderID(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/checkout", orderID.String(), nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodePaymentFailed) {
		t.Fatalf("expected payment failed code got %s", envelope.Error.Code)
	}
	if envelope.Error.Message != "card declined" {
		t.Fatalf("expected card declined message got %q", envelope.Error.Message)
	}
}

func TestOrdersCancel(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{order: &models.Order{ID: orderID, Status: enums.OrderStatusCancelled}}

	handler := OrdersCancel(svc, nil)
	req := requestWithOrderID(http.MethodDelete, "/api/v1/orders/"+orderID.String(), orderID.String(), nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected empty body got %q", resp.Body.String())
	}
	if svc.cancelledID != orderID {
		t.Fatalf("expected cancel of %s got %s", orderID, svc.cancelledID)
	}
}
