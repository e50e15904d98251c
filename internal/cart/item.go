package cart

import "github.com/shopspring/decimal"

// Product is the catalog record handed to Add. Its fields are copied into the
// line item so the cart renders without a second catalog lookup.
type Product struct {
	ID        string
	Name      string
	Image     string
	Category  string
	UnitPrice decimal.Decimal
	Variants  []string
}

// HasVariant reports whether variant is one of the product's declared variants.
func (p Product) HasVariant(variant string) bool {
	for _, v := range p.Variants {
		if v == variant {
			return true
		}
	}
	return false
}

type LineItem struct {
	Key       Key
	Name      string
	Image     string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal is UnitPrice times Quantity, unrounded.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func newLineItem(key Key, p Product) LineItem {
	return LineItem{
		Key:       key,
		Name:      p.Name,
		Image:     p.Image,
		Category:  p.Category,
		UnitPrice: p.UnitPrice,
		Quantity:  1,
	}
}
