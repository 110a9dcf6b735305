package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nextbite-hq/nextbite-backend/api/responses"
	"github.com/nextbite-hq/nextbite-backend/api/validators"
	"github.com/nextbite-hq/nextbite-backend/internal/paymentmethods"
	pkgerrors "github.com/nextbite-hq/nextbite-backend/pkg/errors"
	"github.com/nextbite-hq/nextbite-backend/pkg/logger"
)

type createPaymentMethodRequest struct {
	TargetUserID  *uuid.UUID `json:"user_id,omitempty"`
	AllUsers      bool       `json:"all_users,omitempty"`
	GatewayCardID string     `json:"gateway_card_id" validate:"required"`
	Last4         string     `json:"last4" validate:"required,len=4"`
	Brand         string     `json:"brand" validate:"required"`
	IsDefault     bool       `json:"is_default,omitempty"`
}

type updatePaymentMethodRequest struct {
	GatewayCardID *string `json:"gateway_card_id,omitempty"`
	Last4         *string `json:"last4,omitempty" validate:"omitempty,len=4"`
	Brand         *string `json:"brand,omitempty"`
	IsDefault     *bool   `json:"is_default,omitempty"`
}

// PaymentMethodsList returns stored methods, scoped to the caller unless an
// elevated role asks for another user via the user_id query param.
func PaymentMethodsList(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		targetUserID := uuid.Nil
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
				return
			}
			targetUserID = parsed
		}

		list, err := svc.List(r.Context(), actor, targetUserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func PaymentMethodsCreate(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createPaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := paymentmethods.CreateInput{
			AllUsers:      body.AllUsers,
			GatewayCardID: body.GatewayCardID,
			Last4:         body.Last4,
			Brand:         body.Brand,
			IsDefault:     body.IsDefault,
		}
		if body.TargetUserID != nil {
			input.TargetUserID = *body.TargetUserID
		}

		created, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func PaymentMethodsUpdate(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := uuidParam(r, "methodID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updatePaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actor, id, paymentmethods.UpdateInput{
			GatewayCardID: body.GatewayCardID,
			Last4:         body.Last4,
			Brand:         body.Brand,
			IsDefault:     body.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

func PaymentMethodsDelete(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := uuidParam(r, "methodID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
