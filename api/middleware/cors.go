package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the storefront frontends call the API. With no configured
// origins only the local Next.js dev server is allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			CartSessionHeader, idempotencyHeader, requestIDHeader,
		},
		ExposedHeaders: []string{CartSessionHeader, requestIDHeader, "Idempotent-Replayed", "Retry-After"},
		MaxAge:         300,
	})
}
