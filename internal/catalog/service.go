// Package catalog serves categories and products and validates what may be
// added to a cart.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/pkg/db"
	"github.com/phenomboxing/storefront/pkg/db/models"
	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
)

type repository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// Service exposes the storefront catalog.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id string) (*ProductDTO, error)
	CartProduct(ctx context.Context, id, variant string) (cart.Product, error)
}

type service struct {
	repo repository
}

// NewService constructs a catalog service instance.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, NewCategoryDTO(c))
	}
	return out, nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) ([]ProductDTO, error) {
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, NewProductDTO(p))
	}
	return out, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

// CartProduct resolves the catalog record a shopper wants to add. The product
// must exist and be in stock. A product with sizes needs one of them as
// variant; a product without sizes takes no variant.
func (s *service) CartProduct(ctx context.Context, id, variant string) (cart.Product, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return cart.Product{}, err
	}
	if !product.InStock {
		return cart.Product{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "product %s is out of stock", product.ID).
			WithDetails(map[string]any{"product_id": product.ID})
	}

	variant = strings.TrimSpace(variant)
	switch {
	case len(product.Sizes) == 0 && variant != "":
		return cart.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product has no sizes").
			WithDetails(map[string]any{"variant": variant})
	case len(product.Sizes) > 0 && !containsSize(product.Sizes, variant):
		return cart.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "a valid size is required").
			WithDetails(map[string]any{"variant": variant, "allowed": product.Sizes})
	}

	categoryName := ""
	if product.Category != nil {
		categoryName = product.Category.Name
	}
	return cart.Product{
		ID:        product.ID,
		Name:      product.Name,
		Image:     primaryImage(*product),
		Category:  categoryName,
		UnitPrice: product.Price,
		Variants:  append([]string{}, product.Sizes...),
	}, nil
}

func (s *service) load(ctx context.Context, id string) (*models.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetProduct(ctx, id)
	if db.IsNotFound(err) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func containsSize(sizes []string, variant string) bool {
	for _, size := range sizes {
		if size == variant {
			return true
		}
	}
	return false
}
