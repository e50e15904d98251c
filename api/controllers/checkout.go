package controllers

import (
	"context"
	"net/http"

	"github.com/phenomboxing/storefront/api/middleware"
	"github.com/phenomboxing/storefront/api/responses"
	"github.com/phenomboxing/storefront/api/validators"
	"github.com/phenomboxing/storefront/internal/checkout"
	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/money"
)

type checkoutStarter interface {
	Start(ctx context.Context, sessionID string, input checkout.StartInput) (*checkout.StartResult, error)
}

type checkoutResponse struct {
	*checkout.StartResult
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
}

// Checkout creates a payment preference for the session's cart and returns
// the redirect URL.
func Checkout(svc checkoutStarter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID := middleware.CartSessionFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session required"))
			return
		}

		var payload checkout.StartInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Start(r.Context(), sessionID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			StartResult: result,
			Total:       money.Format(result.Total),
			TotalCents:  money.ToCents(result.Total),
		})
	}
}
