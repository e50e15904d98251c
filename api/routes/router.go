package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phenomboxing/storefront/api/controllers"
	cartcontrollers "github.com/phenomboxing/storefront/api/controllers/cart"
	webhookcontrollers "github.com/phenomboxing/storefront/api/controllers/webhooks"
	"github.com/phenomboxing/storefront/api/middleware"
	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/internal/catalog"
	"github.com/phenomboxing/storefront/internal/checkout"
	"github.com/phenomboxing/storefront/internal/orders"
	"github.com/phenomboxing/storefront/pkg/config"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/metrics"
	"github.com/phenomboxing/storefront/pkg/redis"
)

// Deps are the collaborators the HTTP surface is built from. Optional
// pingers and the idempotency store may be nil.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Redis          controllers.Pinger
	Idempotency    redis.IdempotencyStore
	Carts          *cart.Registry
	Catalog        catalog.Service
	Checkout       checkout.Service
	Orders         orders.Service
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": d.Redis,
		}))
	})
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", controllers.CategoryList(d.Catalog, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(d.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(d.Catalog, logg))
		})

		r.Get("/orders/{reference}", controllers.OrderReceipt(d.Orders, logg))
		r.Post("/webhooks/mercadopago", webhookcontrollers.MercadoPagoWebhook(d.Checkout, cfg.MercadoPago.WebhookSecret, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))
			if d.Idempotency != nil {
				r.Use(middleware.Idempotency(d.Idempotency, logg))
			}

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(d.Carts, logg))
				r.Delete("/", cartcontrollers.CartClear(d.Carts, logg))
				r.Post("/items", cartcontrollers.CartAddItem(d.Carts, d.Catalog, logg))
				r.Patch("/items", cartcontrollers.CartUpdateItem(d.Carts, logg))
				r.Delete("/items", cartcontrollers.CartRemoveItem(d.Carts, logg))
			})
			r.Post("/checkout", controllers.Checkout(d.Checkout, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.App.AdminToken, logg))
			r.Get("/orders", controllers.AdminOrderList(d.Orders, logg))
		})
	})

	return r
}
