package models

import "github.com/shopspring/decimal"

// OrderLineItem is a copy of one cart line at checkout time.
type OrderLineItem struct {
	ID        string          `gorm:"column:id;primaryKey"`
	OrderID   string          `gorm:"column:order_id;not null;index"`
	Position  int             `gorm:"column:position;not null"`
	ProductID string          `gorm:"column:product_id;not null"`
	Variant   string          `gorm:"column:variant;not null;default:''"`
	Name      string          `gorm:"column:name;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}
