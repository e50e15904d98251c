// Package checkout turns a cart into a MercadoPago payment preference and
// applies the payment outcome back to the order and the cart.
package checkout

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/pkg/config"
	"github.com/phenomboxing/storefront/pkg/db"
	"github.com/phenomboxing/storefront/pkg/db/models"
	"github.com/phenomboxing/storefront/pkg/enums"
	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/mercadopago"
	"github.com/phenomboxing/storefront/pkg/metrics"
	"github.com/phenomboxing/storefront/pkg/money"
	"github.com/shopspring/decimal"
)

type gateway interface {
	CreatePreference(ctx context.Context, pref mercadopago.Preference) (*mercadopago.PreferenceResult, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type cartProvider interface {
	Get(ctx context.Context, sessionID string) (*cart.Store, error)
}

// Service executes checkout orchestration.
type Service interface {
	Start(ctx context.Context, sessionID string, input StartInput) (*StartResult, error)
	Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
}

type Payer struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,max=40"`
}

type Shipping struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
}

// StartInput is the buyer data collected by the checkout form.
type StartInput struct {
	Payer    Payer    `json:"payer" validate:"required"`
	Shipping Shipping `json:"shipping" validate:"required"`
}

type StartResult struct {
	OrderID           string          `json:"order_id"`
	ExternalReference string          `json:"external_reference"`
	PreferenceID      string          `json:"preference_id"`
	RedirectURL       string          `json:"redirect_url"`
	Total             decimal.Decimal `json:"-"`
	ItemCount         int             `json:"item_count"`
	CartCleared       bool            `json:"cart_cleared"`
}

type ConfirmInput struct {
	PaymentID string
}

type ConfirmResult struct {
	OrderID       string            `json:"order_id"`
	Status        enums.OrderStatus `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Changed       bool              `json:"changed"`
	CartCleared   bool              `json:"cart_cleared"`
}

// Params groups the checkout service dependencies.
type Params struct {
	Repo        Repository
	Gateway     gateway
	Carts       cartProvider
	MercadoPago config.MercadoPagoConfig
	Checkout    config.CheckoutConfig
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
	Clock       func() time.Time
}

type service struct {
	repo    Repository
	gateway gateway
	carts   cartProvider
	mp      config.MercadoPagoConfig
	co      config.CheckoutConfig
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
	clock   func() time.Time
}

// NewService builds the checkout service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Carts == nil {
		return nil, fmt.Errorf("cart provider required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if strings.TrimSpace(p.MercadoPago.Currency) == "" {
		p.MercadoPago.Currency = "ARS"
	}
	return &service{
		repo:    p.Repo,
		gateway: p.Gateway,
		carts:   p.Carts,
		mp:      p.MercadoPago,
		co:      p.Checkout,
		metrics: p.Metrics,
		logg:    p.Logger,
		clock:   p.Clock,
	}, nil
}

func (s *service) Start(ctx context.Context, sessionID string, input StartInput) (*StartResult, error) {
	if err := validateStartInput(input); err != nil {
		return nil, err
	}
	store, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snap := store.Snapshot()
	if len(snap.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	orderID := uuid.NewString()
	ref := referencePrefix + uuid.NewString()
	ctx = s.logg.WithFields(ctx, map[string]any{"session_id": sessionID, "order_id": orderID})

	pref := buildPreference(snap.Items, input, ref, s.mp, s.co)
	result, err := s.gateway.CreatePreference(ctx, pref)
	if err != nil {
		s.logg.Error(ctx, "create payment preference failed", err)
		return nil, err
	}

	order := newOrder(orderID, sessionID, ref, result.ID, s.mp.Currency, snap.Items, input)
	if err := s.repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}
	s.metrics.IncStarted()

	cleared := false
	if s.co.ClearOnRedirect {
		store.Clear()
		cleared = true
	}
	s.logg.Info(ctx, "checkout started")

	return &StartResult{
		OrderID:           order.ID,
		ExternalReference: ref,
		PreferenceID:      result.ID,
		RedirectURL:       result.RedirectURL(s.mp.IsSandbox()),
		Total:             order.Total,
		ItemCount:         order.ItemCount,
		CartCleared:       cleared,
	}, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	paymentID := strings.TrimSpace(input.PaymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	ctx = s.logg.WithField(ctx, "payment_id", paymentID)

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentStatus(payment.Status)

	ref := strings.TrimSpace(payment.ExternalReference)
	if ref == "" {
		// not a storefront checkout; reported like an unknown order so the
		// notification is acknowledged instead of retried
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "payment %s has no external reference", paymentID)
	}
	order, err := s.repo.FindByExternalReference(ctx, ref)
	if db.IsNotFound(err) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", ref)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	next := nextStatus(order.Status, enums.OrderStatusFromPayment(payment.Status))
	result := &ConfirmResult{OrderID: order.ID, Status: order.Status, PaymentStatus: order.PaymentStatus}
	if next == order.Status && (next != enums.OrderStatusPending || (payment.Status == order.PaymentStatus && paymentID == order.PaymentID)) {
		return result, nil
	}

	update := PaymentUpdate{PaymentID: paymentID, PaymentStatus: payment.Status, Status: next}
	if next == enums.OrderStatusPaid && order.Status != enums.OrderStatusPaid {
		paidAt := s.clock().UTC()
		if payment.DateApproved != nil {
			paidAt = payment.DateApproved.UTC()
		}
		update.PaidAt = &paidAt
	}
	changed, err := s.repo.UpdatePaymentStatus(ctx, order.ID, order.Status, update)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order payment")
	}
	if !changed {
		// a concurrent notification already moved the order
		s.logg.Info(ctx, "order changed concurrently; skipping")
		return result, nil
	}

	result.Status = next
	result.PaymentStatus = payment.Status
	result.Changed = true

	if next == enums.OrderStatusPaid && order.Status != enums.OrderStatusPaid && !s.co.ClearOnRedirect {
		store, err := s.carts.Get(ctx, order.SessionID)
		if err != nil {
			s.logg.WarnErr(ctx, "open cart for paid order failed", err)
		} else {
			store.Clear()
			result.CartCleared = true
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "order_status", string(next)), "order payment updated")
	return result, nil
}

// nextStatus keeps a paid order from sliding back to a non-final status and
// never leaves a final one.
func nextStatus(current, reported enums.OrderStatus) enums.OrderStatus {
	if current.IsFinal() {
		return current
	}
	if current == enums.OrderStatusPaid && reported != enums.OrderStatusRefunded {
		return current
	}
	return reported
}

func newOrder(id, sessionID, ref, preferenceID, currency string, items []cart.LineItem, input StartInput) *models.Order {
	lines := make([]models.OrderLineItem, 0, len(items))
	totals := make([]decimal.Decimal, 0, len(items))
	count := 0
	for i, item := range items {
		lineTotal := item.LineTotal()
		lines = append(lines, models.OrderLineItem{
			ID:        uuid.NewString(),
			OrderID:   id,
			Position:  i,
			ProductID: item.Key.ProductID,
			Variant:   item.Key.Variant,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		totals = append(totals, lineTotal)
		count += item.Quantity
	}
	return &models.Order{
		ID:                id,
		SessionID:         sessionID,
		ExternalReference: ref,
		PreferenceID:      preferenceID,
		Status:            enums.OrderStatusPending,
		Currency:          currency,
		Total:             money.Sum(totals...),
		ItemCount:         count,
		PayerFirstName:    input.Payer.FirstName,
		PayerLastName:     input.Payer.LastName,
		PayerEmail:        input.Payer.Email,
		PayerPhone:        input.Payer.Phone,
		ShippingStreet:    input.Shipping.Street,
		ShippingCity:      input.Shipping.City,
		ShippingState:     input.Shipping.State,
		ShippingZip:       input.Shipping.ZipCode,
		LineItems:         lines,
	}
}

func validateStartInput(input StartInput) error {
	missing := []string{}
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("payer.first_name", input.Payer.FirstName)
	check("payer.last_name", input.Payer.LastName)
	check("payer.email", input.Payer.Email)
	check("payer.phone", input.Payer.Phone)
	check("shipping.street", input.Shipping.Street)
	check("shipping.city", input.Shipping.City)
	check("shipping.state", input.Shipping.State)
	check("shipping.zip_code", input.Shipping.ZipCode)
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing checkout fields").
			WithDetails(map[string]any{"fields": missing})
	}
	if _, err := mail.ParseAddress(input.Payer.Email); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payer email").
			WithDetails(map[string]any{"fields": []string{"payer.email"}})
	}
	return nil
}
