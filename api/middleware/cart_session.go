package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/phenomboxing/storefront/api/responses"
	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/pkg/logger"
)

// CartSessionHeader carries the anonymous shopper's cart id.
const CartSessionHeader = "X-Cart-Session"

type cartSessionKey struct{}

// CartSessionFromContext returns the id resolved by CartSession, or "".
func CartSessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(cartSessionKey{}).(string)
	return id
}

// WithCartSession stores sessionID for CartSessionFromContext.
func WithCartSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, cartSessionKey{}, sessionID)
}

// CartSession resolves the cart session for the request. A missing header
// gets a fresh id, which is echoed back so the client can keep it.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(CartSessionHeader))
			if sessionID == "" {
				sessionID = uuid.NewString()
			} else if err := cart.ValidateSessionID(sessionID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			w.Header().Set(CartSessionHeader, sessionID)

			ctx := WithCartSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
