package orders

import (
	"strings"
	"time"

	"github.com/phenomboxing/storefront/pkg/db/models"
	"github.com/phenomboxing/storefront/pkg/enums"
	"github.com/phenomboxing/storefront/pkg/money"
)

type LineItemDTO struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant,omitempty"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// ReceiptDTO is what the payment result page shows. It carries no payer or
// shipping data because anyone holding the reference can read it.
type ReceiptDTO struct {
	OrderNumber       string            `json:"order_number"`
	ExternalReference string            `json:"external_reference"`
	Status            enums.OrderStatus `json:"status"`
	PaymentStatus     string            `json:"payment_status,omitempty"`
	PaymentID         string            `json:"payment_id,omitempty"`
	Currency          string            `json:"currency"`
	Total             string            `json:"total"`
	TotalCents        int64             `json:"total_cents"`
	ItemCount         int               `json:"item_count"`
	Items             []LineItemDTO     `json:"items"`
	CreatedAt         time.Time         `json:"created_at"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
}

type PayerDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type ShippingDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// OrderDTO is the admin view of an order.
type OrderDTO struct {
	ReceiptDTO
	ID           string      `json:"id"`
	SessionID    string      `json:"session_id"`
	PreferenceID string      `json:"preference_id"`
	Payer        PayerDTO    `json:"payer"`
	Shipping     ShippingDTO `json:"shipping"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type OrderPage struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// OrderNumber is the short customer-facing number derived from the order id.
func OrderNumber(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "PHENOM-" + strings.ToUpper(short)
}

func NewReceiptDTO(o models.Order) ReceiptDTO {
	items := make([]LineItemDTO, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		items = append(items, LineItemDTO{
			ProductID: li.ProductID,
			Variant:   li.Variant,
			Name:      li.Name,
			UnitPrice: money.Format(li.UnitPrice),
			Quantity:  li.Quantity,
			LineTotal: money.Format(li.LineTotal),
		})
	}
	return ReceiptDTO{
		OrderNumber:       OrderNumber(o.ID),
		ExternalReference: o.ExternalReference,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		PaymentID:         o.PaymentID,
		Currency:          o.Currency,
		Total:             money.Format(o.Total),
		TotalCents:        money.ToCents(o.Total),
		ItemCount:         o.ItemCount,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		PaidAt:            o.PaidAt,
	}
}

func NewOrderDTO(o models.Order) OrderDTO {
	return OrderDTO{
		ReceiptDTO:   NewReceiptDTO(o),
		ID:           o.ID,
		SessionID:    o.SessionID,
		PreferenceID: o.PreferenceID,
		Payer: PayerDTO{
			FirstName: o.PayerFirstName,
			LastName:  o.PayerLastName,
			Email:     o.PayerEmail,
			Phone:     o.PayerPhone,
		},
		Shipping: ShippingDTO{
			Street:  o.ShippingStreet,
			City:    o.ShippingCity,
			State:   o.ShippingState,
			ZipCode: o.ShippingZip,
		},
		UpdatedAt: o.UpdatedAt,
	}
}
