package cart

import "strings"

// Key identifies a line item. Two adds merge only when both fields match.
type Key struct {
	ProductID string
	Variant   string
}

// NewKey trims both parts. An empty variant means the product has none.
func NewKey(productID, variant string) Key {
	return Key{
		ProductID: strings.TrimSpace(productID),
		Variant:   strings.TrimSpace(variant),
	}
}

// HasVariant reports whether the key carries a variant label.
func (k Key) HasVariant() bool {
	return k.Variant != ""
}

// String renders the key for logs and display only. It is not a lookup key.
func (k Key) String() string {
	if k.Variant == "" {
		return k.ProductID
	}
	return k.ProductID + "-" + k.Variant
}
