package mercadopago

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
)

func TestCreatePreferenceRequest(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer TEST-token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/init","sandbox_init_point":"https://mp/sandbox","external_reference":"phenom-abc"}`))
	}))
	defer srv.Close()

	client, err := NewClient("TEST-token", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	res, err := client.CreatePreference(context.Background(), Preference{
		Items: []Item{{
			ID:          "p1",
			Title:       "Guantes Pro",
			Description: "Guantes Pro - Phenom Boxing Store",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("12.50"),
			CurrencyID:  "ARS",
		}},
		StatementDescriptor: "PHENOM BOXING",
		ExternalReference:   "phenom-abc",
	})
	if err != nil {
		t.Fatalf("create preference: %v", err)
	}
	if res.ID != "pref-1" {
		t.Fatalf("unexpected preference id %q", res.ID)
	}
	if res.RedirectURL(true) != "https://mp/sandbox" || res.RedirectURL(false) != "https://mp/init" {
		t.Fatalf("unexpected redirect urls %+v", res)
	}
	if captured["statement_descriptor"] != "PHENOM BOXING" || captured["external_reference"] != "phenom-abc" {
		t.Fatalf("preference fields not sent: %v", captured)
	}
	items, _ := captured["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one item, got %v", captured["items"])
	}
	if price := items[0].(map[string]any)["unit_price"]; price != 12.5 {
		t.Fatalf("unit price should be sent as a number, got %#v", price)
	}
}

func TestCreatePreferenceGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid items","status":400}`))
	}))
	defer srv.Close()

	client, err := NewClient("TEST-token", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.CreatePreference(context.Background(), Preference{Items: []Item{{ID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["status"] != http.StatusBadRequest {
		t.Fatalf("expected gateway details, got %#v", typed.Details())
	}
}

func TestCreatePreferenceRequiresItems(t *testing.T) {
	client, _ := NewClient("TEST-token")
	if _, err := client.CreatePreference(context.Background(), Preference{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payments/123":
			_, _ = w.Write([]byte(`{"id":123,"status":"approved","status_detail":"accredited","external_reference":"phenom-abc","transaction_amount":25.5,"date_approved":"2026-03-01T10:00:00.000-03:00"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Payment not found"}`))
		}
	}))
	defer srv.Close()

	client, _ := NewClient("TEST-token", WithBaseURL(srv.URL+"/"))
	payment, err := client.GetPayment(context.Background(), "123")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if payment.Status != StatusApproved || payment.ExternalReference != "phenom-abc" {
		t.Fatalf("unexpected payment %+v", payment)
	}
	if payment.ID != "123" || payment.DateApproved == nil || !payment.TransactionAmount.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("unexpected payment id/date %+v", payment)
	}

	if _, err := client.GetPayment(context.Background(), "999"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := client.GetPayment(context.Background(), " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.GetPayment(context.Background(), "abc"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for non-numeric id, got %v", err)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected missing token error")
	}
	if _, err := NewClient("TEST-token", WithBaseURL("not a url")); err == nil {
		t.Fatalf("expected invalid base url error")
	}
}

func TestNilClientAnswersDependencyError(t *testing.T) {
	var client *Client
	if _, err := client.CreatePreference(context.Background(), Preference{}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, err := client.GetPayment(context.Background(), "1"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNotificationIsPayment(t *testing.T) {
	var n Notification
	if err := json.Unmarshal([]byte(`{"type":"payment","data":{"id":"42"},"live_mode":false}`), &n); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !n.IsPayment() || n.Data.ID != "42" {
		t.Fatalf("unexpected notification %+v", n)
	}
	n.Type = "merchant_order"
	if n.IsPayment() {
		t.Fatalf("merchant_order should not be treated as payment")
	}
}
