package catalog

import (
	"github.com/phenomboxing/storefront/pkg/db/models"
	"github.com/phenomboxing/storefront/pkg/money"
)

type CategoryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// ProductDTO is the storefront representation of a product. Price is a
// two-decimal string.
type ProductDTO struct {
	ID           string   `json:"id"`
	CategoryID   string   `json:"category_id,omitempty"`
	CategoryName string   `json:"category_name,omitempty"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        string   `json:"price"`
	PriceCents   int64    `json:"price_cents"`
	Image        string   `json:"image"`
	Images       []string `json:"images"`
	Sizes        []string `json:"sizes"`
	InStock      bool     `json:"in_stock"`
	Featured     bool     `json:"featured"`
}

func NewCategoryDTO(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Image:       c.Image,
	}
}

func NewProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money.Format(p.Price),
		PriceCents:  money.ToCents(p.Price),
		Image:       primaryImage(p),
		Images:      append([]string{}, p.Images...),
		Sizes:       append([]string{}, p.Sizes...),
		InStock:     p.InStock,
		Featured:    p.Featured,
	}
	if p.CategoryID != nil {
		dto.CategoryID = *p.CategoryID
	}
	if p.Category != nil {
		dto.CategoryName = p.Category.Name
	}
	return dto
}

func primaryImage(p models.Product) string {
	if p.Image != "" {
		return p.Image
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}
