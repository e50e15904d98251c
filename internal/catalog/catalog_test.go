package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/phenomboxing/storefront/pkg/db/models"
	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}))
	return conn
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func seedCatalog(t *testing.T, conn *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	repo := NewRepository(conn)

	require.NoError(t, repo.UpsertCategory(ctx, &models.Category{ID: "gloves", Name: "Guantes", Slug: "guantes", Position: 1}))
	require.NoError(t, repo.UpsertCategory(ctx, &models.Category{ID: "apparel", Name: "Indumentaria", Slug: "indumentaria", Position: 2}))

	products := []models.Product{
		{ID: "glove-pro", CategoryID: strPtr("gloves"), Name: "Guantes Pro", Price: decimal.RequireFromString("45000"), Sizes: []string{"10oz", "12oz", "14oz"}, InStock: true, Featured: true},
		{ID: "wraps", CategoryID: strPtr("gloves"), Name: "Vendas", Price: decimal.RequireFromString("6500.50"), Images: []string{"https://cdn.example/wraps.jpg"}, InStock: true},
		{ID: "hoodie", CategoryID: strPtr("apparel"), Name: "Buzo Phenom", Price: decimal.RequireFromString("38000"), Sizes: []string{"S", "M", "L"}, InStock: false},
	}
	for i := range products {
		require.NoError(t, repo.UpsertProduct(ctx, &products[i]))
	}
}

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := openCatalogDB(t)
	seedCatalog(t, conn)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error without repository")
	}
}

func TestRepositoryListsCategoriesByPosition(t *testing.T) {
	conn := openCatalogDB(t)
	seedCatalog(t, conn)

	categories, err := NewRepository(conn).ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "gloves", categories[0].ID)
	assert.Equal(t, "apparel", categories[1].ID)
}

func TestRepositoryListProductsFilters(t *testing.T) {
	conn := openCatalogDB(t)
	seedCatalog(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	all, err := repo.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	gloves, err := repo.ListProducts(ctx, ProductFilter{CategoryID: strPtr("gloves")})
	require.NoError(t, err)
	assert.Len(t, gloves, 2)

	featured, err := repo.ListProducts(ctx, ProductFilter{Featured: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "glove-pro", featured[0].ID)
	require.NotNil(t, featured[0].Category)
	assert.Equal(t, "Guantes", featured[0].Category.Name)

	outOfStock, err := repo.ListProducts(ctx, ProductFilter{InStock: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, outOfStock, 1)
	assert.Equal(t, "hoodie", outOfStock[0].ID)
}

func TestUpsertProductReplacesFields(t *testing.T) {
	conn := openCatalogDB(t)
	seedCatalog(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	updated := models.Product{ID: "wraps", CategoryID: strPtr("gloves"), Name: "Vendas 4.5m", Price: decimal.RequireFromString("7000"), InStock: false}
	require.NoError(t, repo.UpsertProduct(ctx, &updated))

	got, err := repo.GetProduct(ctx, "wraps")
	require.NoError(t, err)
	assert.Equal(t, "Vendas 4.5m", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("7000")))
	assert.False(t, got.InStock)

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestRepositoryWithTxRollsBack(t *testing.T) {
	conn := openCatalogDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	errAbort := errors.New("abort import")

	err := conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, repo.WithTx(tx).UpsertCategory(ctx, &models.Category{ID: "bags", Name: "Bolsas", Slug: "bolsas"}))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestServiceProductDTO(t *testing.T) {
	svc := newTestService(t)

	dto, err := svc.GetProduct(context.Background(), "wraps")
	require.NoError(t, err)
	assert.Equal(t, "6500.50", dto.Price)
	assert.EqualValues(t, 650050, dto.PriceCents)
	assert.Equal(t, "https://cdn.example/wraps.jpg", dto.Image)
	assert.Equal(t, "gloves", dto.CategoryID)
	assert.Equal(t, "Guantes", dto.CategoryName)
	assert.Empty(t, dto.Sizes)

	_, err = svc.GetProduct(context.Background(), "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestServiceListProducts(t *testing.T) {
	svc := newTestService(t)

	products, err := svc.ListProducts(context.Background(), ProductFilter{CategoryID: strPtr("apparel")})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, []string{"S", "M", "L"}, products[0].Sizes)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "guantes", categories[0].Slug)
}

func TestCartProduct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product, err := svc.CartProduct(ctx, "glove-pro", "12oz")
	require.NoError(t, err)
	assert.Equal(t, "Guantes Pro", product.Name)
	assert.Equal(t, "Guantes", product.Category)
	assert.True(t, product.UnitPrice.Equal(decimal.RequireFromString("45000")))
	assert.True(t, product.HasVariant("12oz"))

	product, err = svc.CartProduct(ctx, "wraps", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/wraps.jpg", product.Image)

	cases := []struct {
		name    string
		id      string
		variant string
		code    pkgerrors.Code
	}{
		{name: "unknown product", id: "nope", code: pkgerrors.CodeNotFound},
		{name: "blank id", id: "  ", code: pkgerrors.CodeValidation},
		{name: "out of stock", id: "hoodie", variant: "M", code: pkgerrors.CodeStateConflict},
		{name: "missing size", id: "glove-pro", code: pkgerrors.CodeValidation},
		{name: "unknown size", id: "glove-pro", variant: "16oz", code: pkgerrors.CodeValidation},
		{name: "variant on sizeless product", id: "wraps", variant: "L", code: pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CartProduct(ctx, tc.id, tc.variant)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "expected %s, got %v", tc.code, err)
		})
	}
}

func TestImportSeed(t *testing.T) {
	conn := openCatalogDB(t)
	doc := `{
		"categories": [{"id": "gloves", "name": "Guantes", "position": 1}],
		"products": [
			{"id": "glove-pro", "category_id": "gloves", "name": "Guantes Pro", "price": "45000", "sizes": ["12oz"]},
			{"id": "bag", "name": "Bolsa", "price": "120000.00", "in_stock": false}
		]
	}`
	seed, err := DecodeSeed(strings.NewReader(doc))
	require.NoError(t, err)

	result, err := Import(context.Background(), conn, seed)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Categories: 1, Products: 2}, result)

	repo := NewRepository(conn)
	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "gloves", categories[0].Slug)

	bag, err := repo.GetProduct(context.Background(), "bag")
	require.NoError(t, err)
	assert.False(t, bag.InStock)
	assert.Nil(t, bag.CategoryID)

	glove, err := repo.GetProduct(context.Background(), "glove-pro")
	require.NoError(t, err)
	assert.True(t, glove.InStock)

	// re-import is an upsert
	_, err = Import(context.Background(), conn, seed)
	require.NoError(t, err)
}

func TestImportRejectsInvalidSeed(t *testing.T) {
	conn := openCatalogDB(t)

	_, err := DecodeSeed(strings.NewReader(`{"products": [], "extra": true}`))
	require.Error(t, err)

	_, err = Import(context.Background(), conn, Seed{Products: []SeedProduct{{ID: "x", Name: "X", Price: "-1"}}})
	require.Error(t, err)

	_, err = Import(context.Background(), conn, Seed{Categories: []SeedCategory{{ID: "c"}}})
	require.Error(t, err)
}

func TestImportShippedSeedFile(t *testing.T) {
	conn := openCatalogDB(t)
	f, err := os.Open("testdata/catalog.seed.json")
	require.NoError(t, err)
	defer f.Close()

	seed, err := DecodeSeed(f)
	require.NoError(t, err)
	result, err := Import(context.Background(), conn, seed)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Categories: 3, Products: 4}, result)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	hoodie, err := svc.GetProduct(context.Background(), "buzo-phenom")
	require.NoError(t, err)
	assert.False(t, hoodie.InStock)
	assert.Equal(t, "Indumentaria", hoodie.CategoryName)

	wraps, err := svc.GetProduct(context.Background(), "vendas-180")
	require.NoError(t, err)
	assert.Equal(t, "/images/vendas-negras.jpg", wraps.Image)
}
