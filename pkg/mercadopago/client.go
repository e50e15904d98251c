// Package mercadopago wraps the official MercadoPago SDK for the checkout
// preference and payment lookups the storefront needs.
package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/mperror"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
)

const DefaultBaseURL = "https://api.mercadopago.com"

var errAccessTokenRequired = errors.New("mercadopago access token is required")

// Client wraps the SDK's preference and payment clients.
type Client struct {
	preferences preference.Client
	payments    payment.Client
}

type options struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*options)

// WithHTTPClient overrides the HTTP client the SDK sends requests through.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithBaseURL points the SDK at another host, such as a local stub.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			o.baseURL = trimmed
		}
	}
}

// NewClient builds the client given a seller access token.
func NewClient(accessToken string, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}

	o := options{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	httpClient, err := rebase(o.httpClient, o.baseURL)
	if err != nil {
		return nil, err
	}

	cfg, err := mpconfig.New(token, mpconfig.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}

	return &Client{
		preferences: preference.NewClient(cfg),
		payments:    payment.NewClient(cfg),
	}, nil
}

// CreatePreference registers a checkout preference and returns its init points.
func (c *Client) CreatePreference(ctx context.Context, pref Preference) (*PreferenceResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercadopago client not configured")
	}
	if len(pref.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference requires at least one item")
	}

	res, err := c.preferences.Create(ctx, preferenceRequest(pref))
	if err != nil {
		return nil, gatewayError(err, "create preference")
	}
	return &PreferenceResult{
		ID:                res.ID,
		InitPoint:         res.InitPoint,
		SandboxInitPoint:  res.SandboxInitPoint,
		ExternalReference: res.ExternalReference,
	}, nil
}

// GetPayment fetches a payment by the id received in a notification.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercadopago client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "payment id %q is not numeric", trimmed)
	}

	res, err := c.payments.Get(ctx, id)
	if err != nil {
		return nil, gatewayError(err, "get payment")
	}
	out := &Payment{
		ID:                strconv.Itoa(res.ID),
		Status:            res.Status,
		StatusDetail:      res.StatusDetail,
		ExternalReference: res.ExternalReference,
		TransactionAmount: decimal.NewFromFloat(res.TransactionAmount),
		CurrencyID:        res.CurrencyID,
	}
	if !res.DateApproved.IsZero() {
		approved := res.DateApproved.UTC()
		out.DateApproved = &approved
	}
	return out, nil
}

func preferenceRequest(pref Preference) preference.Request {
	req := preference.Request{
		Items:               make([]preference.ItemRequest, 0, len(pref.Items)),
		BackURLs:            &preference.BackURLsRequest{Success: pref.BackURLs.Success, Failure: pref.BackURLs.Failure, Pending: pref.BackURLs.Pending},
		AutoReturn:          pref.AutoReturn,
		NotificationURL:     pref.NotificationURL,
		StatementDescriptor: pref.StatementDescriptor,
		ExternalReference:   pref.ExternalReference,
	}
	for _, item := range pref.Items {
		req.Items = append(req.Items, preference.ItemRequest{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			PictureURL:  item.PictureURL,
			CategoryID:  item.CategoryID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2).InexactFloat64(),
			CurrencyID:  item.CurrencyID,
		})
	}

	if p := pref.Payer; p != nil {
		payer := &preference.PayerRequest{Name: p.Name, Surname: p.Surname, Email: p.Email}
		if p.Phone != nil {
			payer.Phone = &preference.PhoneRequest{AreaCode: p.Phone.AreaCode, Number: p.Phone.Number}
		}
		if p.Address != nil {
			payer.Address = &preference.AddressRequest{
				StreetName:   p.Address.StreetName,
				StreetNumber: p.Address.StreetNumber,
				ZipCode:      p.Address.ZipCode,
			}
		}
		req.Payer = payer
	}

	if s := pref.Shipments; s != nil {
		shipments := &preference.ShipmentsRequest{Mode: s.Mode, Cost: s.Cost.InexactFloat64()}
		if a := s.ReceiverAddress; a != nil {
			shipments.ReceiverAddress = &preference.ReceiverAddressRequest{
				StreetName:   a.StreetName,
				StreetNumber: a.StreetNumber,
				ZipCode:      a.ZipCode,
				CityName:     a.CityName,
				StateName:    a.StateName,
			}
		}
		req.Shipments = shipments
	}

	if m := pref.PaymentMethods; m != nil {
		methods := &preference.PaymentMethodsRequest{Installments: m.Installments}
		for _, id := range m.ExcludedPaymentTypes {
			methods.ExcludedPaymentTypes = append(methods.ExcludedPaymentTypes, preference.ExcludedPaymentTypeRequest{ID: id})
		}
		req.PaymentMethods = methods
	}
	return req
}

// gatewayError maps SDK failures onto typed errors. A 404 from the API is a
// missing resource; everything else is a dependency failure.
func gatewayError(err error, op string) error {
	var respErr *mperror.ResponseError
	if !errors.As(err, &respErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" request failed")
	}
	code := pkgerrors.CodeDependency
	if respErr.StatusCode == http.StatusNotFound {
		code = pkgerrors.CodeNotFound
	}
	return pkgerrors.Wrap(code, fmt.Errorf("status %d", respErr.StatusCode), op+" rejected by mercadopago").
		WithDetails(gatewayDetails(respErr.StatusCode, respErr.Message))
}

func gatewayDetails(status int, body string) map[string]any {
	details := map[string]any{"status": status}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(body), &decoded); err == nil {
		details["gateway"] = decoded
	} else if trimmed := strings.TrimSpace(body); trimmed != "" {
		details["gateway"] = trimmed
	}
	return details
}

// rebase returns a copy of client whose requests go to baseURL instead of the
// SDK's fixed API host.
func rebase(client *http.Client, baseURL string) (*http.Client, error) {
	if strings.TrimRight(baseURL, "/") == DefaultBaseURL {
		return client, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid mercadopago base url %q", baseURL)
	}
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	rebased := *client
	rebased.Transport = hostRewriter{base: base, next: next}
	return &rebased, nil
}

type hostRewriter struct {
	base *url.URL
	next http.RoundTripper
}

func (h hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = h.base.Scheme
	out.URL.Host = h.base.Host
	out.URL.Path = path.Join("/", h.base.Path, req.URL.Path)
	out.URL.RawPath = ""
	out.Host = ""
	return h.next.RoundTrip(out)
}
