package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomboxing/storefront/pkg/enums"
)

// Order records a checkout attempt and the payment outcome reported for it.
type Order struct {
	ID                string            `gorm:"column:id;primaryKey"`
	SessionID         string            `gorm:"column:session_id;not null;index"`
	ExternalReference string            `gorm:"column:external_reference;not null;uniqueIndex"`
	PreferenceID      string            `gorm:"column:preference_id;not null;default:''"`
	PaymentID         string            `gorm:"column:payment_id;not null;default:''"`
	Status            enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	PaymentStatus     string            `gorm:"column:payment_status;not null;default:''"`
	Currency          string            `gorm:"column:currency;not null;default:'ARS'"`
	Total             decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	ItemCount         int               `gorm:"column:item_count;not null;default:0"`
	PayerFirstName    string            `gorm:"column:payer_first_name;not null;default:''"`
	PayerLastName     string            `gorm:"column:payer_last_name;not null;default:''"`
	PayerEmail        string            `gorm:"column:payer_email;not null;default:''"`
	PayerPhone        string            `gorm:"column:payer_phone;not null;default:''"`
	ShippingStreet    string            `gorm:"column:shipping_street;not null;default:''"`
	ShippingCity      string            `gorm:"column:shipping_city;not null;default:''"`
	ShippingState     string            `gorm:"column:shipping_state;not null;default:''"`
	ShippingZip       string            `gorm:"column:shipping_zip;not null;default:''"`
	PaidAt            *time.Time        `gorm:"column:paid_at"`
	LineItems         []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
