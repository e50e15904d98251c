package mercadopago

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses reported by the payments API.
const (
	StatusApproved    = "approved"
	StatusPending     = "pending"
	StatusInProcess   = "in_process"
	StatusAuthorized  = "authorized"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
)

const NotificationTypePayment = "payment"

// Preference is the checkout preference handed to CreatePreference. Prices
// stay decimal until the request is built.
type Preference struct {
	Items               []Item
	Payer               *Payer
	Shipments           *Shipments
	BackURLs            BackURLs
	AutoReturn          string
	PaymentMethods      *PaymentMethods
	NotificationURL     string
	StatementDescriptor string
	ExternalReference   string
}

type Item struct {
	ID          string
	Title       string
	Description string
	PictureURL  string
	CategoryID  string
	Quantity    int
	UnitPrice   decimal.Decimal
	CurrencyID  string
}

type Payer struct {
	Name    string
	Surname string
	Email   string
	Phone   *Phone
	Address *Address
}

type Phone struct {
	AreaCode string
	Number   string
}

type Address struct {
	StreetName   string
	StreetNumber string
	ZipCode      string
	CityName     string
	StateName    string
}

type Shipments struct {
	Mode            string
	Cost            decimal.Decimal
	ReceiverAddress *Address
}

type BackURLs struct {
	Success string
	Failure string
	Pending string
}

type PaymentMethods struct {
	ExcludedPaymentTypes []string
	Installments         int
}

type PreferenceResult struct {
	ID                string
	InitPoint         string
	SandboxInitPoint  string
	ExternalReference string
}

// RedirectURL picks the init point for the given environment, falling back to
// whichever one the gateway returned.
func (r PreferenceResult) RedirectURL(sandbox bool) string {
	if sandbox && r.SandboxInitPoint != "" {
		return r.SandboxInitPoint
	}
	if r.InitPoint != "" {
		return r.InitPoint
	}
	return r.SandboxInitPoint
}

type Payment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	TransactionAmount decimal.Decimal
	CurrencyID        string
	DateApproved      *time.Time
}

// Notification is the webhook body posted by MercadoPago.
type Notification struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// IsPayment reports whether the notification refers to a payment.
func (n Notification) IsPayment() bool {
	return strings.EqualFold(strings.TrimSpace(n.Type), NotificationTypePayment)
}
