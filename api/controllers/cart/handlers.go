package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/phenomboxing/storefront/api/middleware"
	"github.com/phenomboxing/storefront/api/responses"
	"github.com/phenomboxing/storefront/api/validators"
	cartsvc "github.com/phenomboxing/storefront/internal/cart"
	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
	"github.com/phenomboxing/storefront/pkg/logger"
)

type cartProvider interface {
	Get(ctx context.Context, sessionID string) (*cartsvc.Store, error)
}

type productResolver interface {
	CartProduct(ctx context.Context, id, variant string) (cartsvc.Product, error)
}

// CartFetch returns the session's cart.
func CartFetch(carts cartProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFromRequest(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(store.SessionID(), store.Snapshot()))
	}
}

// CartAddItem validates the product against the catalog and adds one unit.
func CartAddItem(carts cartProvider, products productResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		store, err := storeFromRequest(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant := strings.TrimSpace(payload.Variant)
		product, err := products.CartProduct(r.Context(), payload.ProductID, variant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Add(product, variant)

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartView(store.SessionID(), store.Snapshot()))
	}
}

// CartUpdateItem sets a line's quantity; zero or less removes the line and an
// unknown line leaves the cart unchanged.
func CartUpdateItem(carts cartProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFromRequest(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.SetQuantity(cartsvc.NewKey(payload.ProductID, payload.Variant), *payload.Quantity)
		responses.WriteSuccess(w, newCartView(store.SessionID(), store.Snapshot()))
	}
}

// CartRemoveItem removes a line identified by query parameters. Removing an
// absent line is not an error.
func CartRemoveItem(carts cartProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFromRequest(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.RequireQuery(r, "product_id", maxProductIDLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variant, err := validators.OptionalQuery(r, "variant", maxVariantLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.Remove(cartsvc.NewKey(productID, variant))
		responses.WriteSuccess(w, newCartView(store.SessionID(), store.Snapshot()))
	}
}

// CartClear empties the cart.
func CartClear(carts cartProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeFromRequest(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Clear()
		responses.WriteSuccess(w, newCartView(store.SessionID(), store.Snapshot()))
	}
}

func storeFromRequest(r *http.Request, carts cartProvider) (*cartsvc.Store, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable")
	}
	sessionID := middleware.CartSessionFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session required")
	}
	return carts.Get(r.Context(), sessionID)
}
