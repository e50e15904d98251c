package cart

// Query parameter limits match the max tags below.
const (
	maxProductIDLength = 128
	maxVariantLength   = 64
)

// AddItemRequest adds one unit of a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,notblank,max=128"`
	Variant   string `json:"variant" validate:"max=64"`
}

// UpdateItemRequest sets the absolute quantity of a line. Zero or negative
// removes it.
type UpdateItemRequest struct {
	ProductID string `json:"product_id" validate:"required,notblank,max=128"`
	Variant   string `json:"variant" validate:"max=64"`
	Quantity  *int   `json:"quantity" validate:"required"`
}
