package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/phenomboxing/storefront/api/middleware"
	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/internal/cart/storage"
	"github.com/phenomboxing/storefront/internal/catalog"
	"github.com/phenomboxing/storefront/internal/checkout"
	"github.com/phenomboxing/storefront/internal/orders"
	"github.com/phenomboxing/storefront/pkg/config"
	"github.com/phenomboxing/storefront/pkg/db/models"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/mercadopago"
	pkgredis "github.com/phenomboxing/storefront/pkg/redis"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryIdempotency struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("missing: %w", pkgredis.ErrNil)
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryIdempotency) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

// fakeMercadoPago serves the two gateway endpoints the storefront calls.
type fakeMercadoPago struct {
	mu      sync.Mutex
	lastRef string
	status  string
}

func (f *fakeMercadoPago) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/checkout/preferences":
		var pref struct {
			ExternalReference string `json:"external_reference"`
		}
		_ = json.NewDecoder(r.Body).Decode(&pref)
		f.lastRef = pref.ExternalReference
		fmt.Fprintf(w, `{"id":"pref-1","init_point":"https://mp.example/init","sandbox_init_point":"https://mp.example/sandbox","external_reference":%q}`, pref.ExternalReference)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payments/"):
		fmt.Fprintf(w, `{"id": 4242, "status": %q, "external_reference": %q}`, f.status, f.lastRef)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	}
}

type testServer struct {
	handler  http.Handler
	registry *cart.Registry
	mp       *fakeMercadoPago
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}, &models.Order{}, &models.OrderLineItem{}))

	_, err = catalog.Import(ctx, conn, catalog.Seed{
		Categories: []catalog.SeedCategory{{ID: "gloves", Name: "Guantes"}},
		Products: []catalog.SeedProduct{
			{ID: "glove-pro", CategoryID: "gloves", Name: "Guantes Pro", Price: "45000", Sizes: []string{"12oz", "14oz"}, Featured: true},
			{ID: "wraps", CategoryID: "gloves", Name: "Vendas", Price: "6500.50"},
		},
	})
	require.NoError(t, err)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)

	registry := cart.NewRegistry(storage.NewMemory().Factory(), cart.RegistryOptions{})
	t.Cleanup(func() { _ = registry.Close(ctx) })

	mp := &fakeMercadoPago{status: mercadopago.StatusApproved}
	mpServer := httptest.NewServer(mp)
	t.Cleanup(mpServer.Close)
	gateway, err := mercadopago.NewClient("TEST-token", mercadopago.WithBaseURL(mpServer.URL))
	require.NoError(t, err)

	orderSvc, err := orders.NewService(orders.NewRepository(conn))
	require.NoError(t, err)

	cfg := &config.Config{
		App:         config.AppConfig{Env: "dev", AdminToken: "admin-secret"},
		MercadoPago: config.MercadoPagoConfig{Environment: "sandbox", Currency: "ARS", Installments: 12},
		Checkout:    config.CheckoutConfig{SiteURL: "http://localhost:3000"},
	}
	checkoutSvc, err := checkout.NewService(checkout.Params{
		Repo:        checkout.NewRepository(conn),
		Gateway:     gateway,
		Carts:       registry,
		MercadoPago: cfg.MercadoPago,
		Checkout:    cfg.Checkout,
	})
	require.NoError(t, err)

	handler := NewRouter(Deps{
		Config:      cfg,
		Logger:      logger.Nop(),
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Idempotency: &memoryIdempotency{data: map[string]string{}},
		Carts:       registry,
		Catalog:     catalogSvc,
		Checkout:    checkoutSvc,
		Orders:      orderSvc,
	})
	return &testServer{handler: handler, registry: registry, mp: mp}
}

func (s *testServer) do(t *testing.T, method, target, session, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if session != "" {
		req.Header.Set(middleware.CartSessionHeader, session)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type cartEnvelope struct {
	Data struct {
		SessionID string `json:"session_id"`
		Items     []struct {
			ProductID string `json:"product_id"`
			Variant   string `json:"variant"`
			Quantity  int    `json:"quantity"`
			UnitPrice string `json:"unit_price"`
		} `json:"items"`
		ItemCount  int    `json:"item_count"`
		Total      string `json:"total"`
		TotalCents int64  `json:"total_cents"`
	} `json:"data"`
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartEnvelope {
	t.Helper()
	var env cartEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Phenom-Env"))

	rec = srv.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db":"up"`)
}

func TestCatalogRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/products?featured=true", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products struct {
		Data []catalog.ProductDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products.Data, 1)
	assert.Equal(t, "45000.00", products.Data[0].Price)

	rec = srv.do(t, http.MethodGet, "/api/v1/products/wraps", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":"6500.50"`)

	rec = srv.do(t, http.MethodGet, "/api/v1/products/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/products?featured=maybe", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/categories", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Guantes"`)
}

func TestCartRoutesMintSessionAndMerge(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/cart/items", "", `{"product_id":"glove-pro","variant":"12oz"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := rec.Header().Get(middleware.CartSessionHeader)
	require.NotEmpty(t, session)

	rec = srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"glove-pro","variant":"12oz"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"glove-pro","variant":"14oz"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"wraps"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	env := decodeCart(t, srv.do(t, http.MethodGet, "/api/v1/cart", session, ""))
	require.Len(t, env.Data.Items, 3)
	assert.Equal(t, 2, env.Data.Items[0].Quantity)
	assert.Equal(t, "14oz", env.Data.Items[1].Variant)
	assert.Equal(t, 4, env.Data.ItemCount)
	assert.Equal(t, "141500.50", env.Data.Total)
	assert.EqualValues(t, 14150050, env.Data.TotalCents)

	store, err := srv.registry.Get(context.Background(), session)
	require.NoError(t, err)
	assert.True(t, store.Total().Equal(decimal.RequireFromString("141500.50")))
}

func TestCartRoutesValidation(t *testing.T) {
	srv := newTestServer(t)
	session := "shopper-1"

	rec := srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"glove-pro"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "sized product needs a size")

	rec = srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"wraps"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/v1/cart/items", session, `{"product_id":"wraps","quantity":1.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/cart", "bad session!", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRoutesQuantityRemoveClear(t *testing.T) {
	srv := newTestServer(t)
	session := "shopper-2"

	srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"wraps"}`)
	srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"glove-pro","variant":"12oz"}`)

	env := decodeCart(t, srv.do(t, http.MethodPatch, "/api/v1/cart/items", session, `{"product_id":"wraps","quantity":5}`))
	assert.Equal(t, 6, env.Data.ItemCount)

	env = decodeCart(t, srv.do(t, http.MethodPatch, "/api/v1/cart/items", session, `{"product_id":"wraps","quantity":0}`))
	require.Len(t, env.Data.Items, 1)

	env = decodeCart(t, srv.do(t, http.MethodDelete, "/api/v1/cart/items?product_id=glove-pro&variant=14oz", session, ""))
	require.Len(t, env.Data.Items, 1, "removing an absent line is a no-op")

	env = decodeCart(t, srv.do(t, http.MethodDelete, "/api/v1/cart/items?product_id=glove-pro&variant=12oz", session, ""))
	assert.Empty(t, env.Data.Items)

	srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"wraps"}`)
	env = decodeCart(t, srv.do(t, http.MethodDelete, "/api/v1/cart", session, ""))
	assert.Empty(t, env.Data.Items)
	assert.Equal(t, "0.00", env.Data.Total)
}

func TestCheckoutAndWebhookFlow(t *testing.T) {
	srv := newTestServer(t)
	session := "shopper-3"
	body := `{"payer":{"first_name":"Ana","last_name":"Pérez","email":"ana@example.com","phone":"1155550000"},
		"shipping":{"street":"Av. Corrientes 1234","city":"CABA","state":"Buenos Aires","zip_code":"1043"}}`

	rec := srv.do(t, http.MethodPost, "/api/v1/checkout", session, body, "Idempotency-Key", "k0")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "empty cart: %s", rec.Body.String())

	srv.do(t, http.MethodPost, "/api/v1/cart/items", session, `{"product_id":"wraps"}`)

	rec = srv.do(t, http.MethodPost, "/api/v1/checkout", session, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "idempotency key is required")

	rec = srv.do(t, http.MethodPost, "/api/v1/checkout", session, body, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var started struct {
		Data struct {
			OrderID           string `json:"order_id"`
			ExternalReference string `json:"external_reference"`
			RedirectURL       string `json:"redirect_url"`
			Total             string `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, "https://mp.example/sandbox", started.Data.RedirectURL)
	assert.Equal(t, "6500.50", started.Data.Total)

	replay := srv.do(t, http.MethodPost, "/api/v1/checkout", session, body, "Idempotency-Key", "k1")
	assert.Equal(t, rec.Body.String(), replay.Body.String())

	env := decodeCart(t, srv.do(t, http.MethodGet, "/api/v1/cart", session, ""))
	assert.Equal(t, 1, env.Data.ItemCount, "cart is kept until the payment is approved")

	rec = srv.do(t, http.MethodPost, "/api/v1/webhooks/mercadopago", "", `{"type":"payment","data":{"id":"4242"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"paid"`)

	env = decodeCart(t, srv.do(t, http.MethodGet, "/api/v1/cart", session, ""))
	assert.Empty(t, env.Data.Items)

	rec = srv.do(t, http.MethodGet, "/api/v1/orders/"+started.Data.ExternalReference, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"paid"`)
	assert.Contains(t, rec.Body.String(), `"payment_id":"4242"`)
	assert.NotContains(t, rec.Body.String(), "ana@example.com")

	rec = srv.do(t, http.MethodGet, "/api/v1/admin/orders?status=paid", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/admin/orders?status=paid", "", "", "Authorization", "Bearer admin-secret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), started.Data.OrderID)
	assert.Contains(t, rec.Body.String(), "ana@example.com")
}

func TestWebhookAcknowledgesPaymentWithoutReference(t *testing.T) {
	srv := newTestServer(t)

	// no checkout ran, so the stub reports an empty external_reference
	rec := srv.do(t, http.MethodPost, "/api/v1/webhooks/mercadopago", "", `{"type":"payment","data":{"id":"777"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"ignored":true`)
}
