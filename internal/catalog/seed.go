package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/phenomboxing/storefront/pkg/db/models"
	"github.com/phenomboxing/storefront/pkg/money"
	"gorm.io/gorm"
)

// Seed is the JSON document accepted by Import.
type Seed struct {
	Categories []SeedCategory `json:"categories"`
	Products   []SeedProduct  `json:"products"`
}

type SeedCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Position    int    `json:"position"`
}

type SeedProduct struct {
	ID          string   `json:"id"`
	CategoryID  string   `json:"category_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Image       string   `json:"image"`
	Images      []string `json:"images"`
	Sizes       []string `json:"sizes"`
	InStock     *bool    `json:"in_stock"`
	Featured    bool     `json:"featured"`
}

// ImportResult counts the rows written by Import.
type ImportResult struct {
	Categories int
	Products   int
}

// DecodeSeed reads a seed document, rejecting unknown fields.
func DecodeSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("decode catalog seed: %w", err)
	}
	return seed, nil
}

// Import upserts every category and product of the seed in one transaction.
func Import(ctx context.Context, conn *gorm.DB, seed Seed) (ImportResult, error) {
	categories := make([]models.Category, 0, len(seed.Categories))
	for i, c := range seed.Categories {
		category, err := c.model()
		if err != nil {
			return ImportResult{}, fmt.Errorf("category %d: %w", i, err)
		}
		categories = append(categories, category)
	}
	products := make([]models.Product, 0, len(seed.Products))
	for i, p := range seed.Products {
		product, err := p.model()
		if err != nil {
			return ImportResult{}, fmt.Errorf("product %d: %w", i, err)
		}
		products = append(products, product)
	}

	base := NewRepository(conn)
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := base.WithTx(tx)
		for i := range categories {
			if err := repo.UpsertCategory(ctx, &categories[i]); err != nil {
				return fmt.Errorf("upsert category %s: %w", categories[i].ID, err)
			}
		}
		for i := range products {
			if err := repo.UpsertProduct(ctx, &products[i]); err != nil {
				return fmt.Errorf("upsert product %s: %w", products[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Categories: len(categories), Products: len(products)}, nil
}

func (c SeedCategory) model() (models.Category, error) {
	id := strings.TrimSpace(c.ID)
	if id == "" || strings.TrimSpace(c.Name) == "" {
		return models.Category{}, fmt.Errorf("id and name are required")
	}
	slug := strings.TrimSpace(c.Slug)
	if slug == "" {
		slug = id
	}
	return models.Category{
		ID:          id,
		Name:        strings.TrimSpace(c.Name),
		Slug:        slug,
		Description: c.Description,
		Image:       c.Image,
		Position:    c.Position,
	}, nil
}

func (p SeedProduct) model() (models.Product, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" || strings.TrimSpace(p.Name) == "" {
		return models.Product{}, fmt.Errorf("id and name are required")
	}
	price, err := money.Parse(p.Price)
	if err != nil {
		return models.Product{}, fmt.Errorf("price: %w", err)
	}
	inStock := true
	if p.InStock != nil {
		inStock = *p.InStock
	}
	product := models.Product{
		ID:          id,
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		Price:       price,
		Image:       p.Image,
		Images:      p.Images,
		Sizes:       p.Sizes,
		InStock:     inStock,
		Featured:    p.Featured,
	}
	if categoryID := strings.TrimSpace(p.CategoryID); categoryID != "" {
		product.CategoryID = &categoryID
	}
	return product, nil
}
