package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Sizes lists the variants a shopper must pick
// from; an empty list means the product has no variants.
type Product struct {
	ID          string          `gorm:"column:id;primaryKey"`
	CategoryID  *string         `gorm:"column:category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Image       string          `gorm:"column:image;not null;default:''"`
	Images      []string        `gorm:"column:images;type:text;serializer:json"`
	Sizes       []string        `gorm:"column:sizes;type:text;serializer:json"`
	InStock     bool            `gorm:"column:in_stock;not null"`
	Featured    bool            `gorm:"column:featured;not null;default:false"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
