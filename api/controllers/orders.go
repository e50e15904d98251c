package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phenomboxing/storefront/api/responses"
	"github.com/phenomboxing/storefront/api/validators"
	"github.com/phenomboxing/storefront/internal/orders"
	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/pagination"
)

type orderReader interface {
	Receipt(ctx context.Context, externalReference string) (*orders.ReceiptDTO, error)
	List(ctx context.Context, input orders.ListInput) (*orders.OrderPage, error)
}

// OrderReceipt serves the payment result page, keyed by the external
// reference MercadoPago echoes back on the return URL.
func OrderReceipt(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		receipt, err := svc.Receipt(r.Context(), chi.URLParam(r, "reference"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}

// AdminOrderList supports ?status=, ?email=, ?limit= and ?cursor=.
func AdminOrderList(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		page, err := svc.List(r.Context(), orders.ListInput{
			Status: validators.SanitizeString(q.Get("status"), 32),
			Email:  validators.SanitizeString(q.Get("email"), 254),
			Params: pagination.Params{
				Limit:  limit,
				Cursor: validators.SanitizeString(q.Get("cursor"), 512),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
