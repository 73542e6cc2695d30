package repository

import (
	"context"
	"testing"
	"time"

	"paloma-store/internal/catalog"
	"paloma-store/internal/migrate"
	"paloma-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with the schema applied and returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	// Get connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Create connection pool
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	// Create schema
	require.NoError(t, migrate.Up(ctx, pool, zerolog.Nop()))

	// Cleanup function
	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricePtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// seedCategory inserts a regular category.
func seedCategory(t *testing.T, pool *pgxpool.Pool, title string, featured bool) model.Category {
	now := time.Now().UTC()
	c := model.Category{
		ID:        uuid.New(),
		Title:     title,
		ImageURL:  "https://img.example.com/" + title + ".webp",
		Icon:      model.IconLayers,
		LinkURL:   model.CatalogLink(title),
		Featured:  featured,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, NewCategoryRepository(pool, zerolog.Nop()).Create(context.Background(), &c))
	return c
}

// seedProducts inserts test products into the database.
func seedProducts(t *testing.T, pool *pgxpool.Pool, products []model.Product) {
	repo := NewProductRepository(pool, zerolog.Nop())
	for i := range products {
		require.NoError(t, repo.Create(context.Background(), &products[i]))
	}
}

func testProduct(name string, p string, stock int, createdAt time.Time) model.Product {
	return model.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     price(p),
		Stock:     stock,
		Images:    []string{"https://img.example.com/" + name + ".webp"},
		Sizes:     []string{"P", "M"},
		Colors:    []string{"Preto"},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestProductRepository_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger := zerolog.Nop()
	repo := NewProductRepository(pool, logger)

	base := time.Now().UTC().Truncate(time.Second)
	testProducts := []model.Product{
		testProduct("Vestido A", "10.00", 1, base.Add(-5*time.Hour)),
		testProduct("Vestido B", "20.00", 1, base.Add(-4*time.Hour)),
		testProduct("Vestido C", "30.00", 1, base.Add(-3*time.Hour)),
		testProduct("Vestido D", "40.00", 1, base.Add(-2*time.Hour)),
		testProduct("Vestido E", "50.00", 1, base.Add(-1*time.Hour)),
	}
	seedProducts(t, pool, testProducts)

	tests := []struct {
		name     string
		limit    int
		offset   int
		expected int
	}{
		{
			name:     "Get all products",
			limit:    10,
			offset:   0,
			expected: 5,
		},
		{
			name:     "Get first page",
			limit:    2,
			offset:   0,
			expected: 2,
		},
		{
			name:     "Get second page",
			limit:    2,
			offset:   2,
			expected: 2,
		},
		{
			name:     "Get last page",
			limit:    2,
			offset:   4,
			expected: 1,
		},
		{
			name:     "Offset beyond results",
			limit:    10,
			offset:   10,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			products, err := repo.List(ctx, catalog.Filter{}, tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Len(t, products, tt.expected)

			// Verify products are ordered newest first
			for i := 1; i < len(products); i++ {
				assert.False(t, products[i].CreatedAt.After(products[i-1].CreatedAt))
			}
		})
	}
}


func TestProductRepository_ListFilters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	dresses := seedCategory(t, pool, "Vestidos", false)
	skirts := seedCategory(t, pool, "Saias", false)

	base := time.Now().UTC().Truncate(time.Second)
	midi := testProduct("Vestido Midi", "149.90", 1, base.Add(-3*time.Hour))
	midi.CategoryID = &dresses.ID
	longo := testProduct("Vestido Longo", "89.90", 1, base.Add(-2*time.Hour))
	longo.CategoryID = &dresses.ID
	longo.OldPrice = pricePtr("120.00")
	saia := testProduct("Saia Plissada", "59.90", 1, base.Add(-1*time.Hour))
	saia.CategoryID = &skirts.ID
	seedProducts(t, pool, []model.Product{midi, longo, saia})

	tests := []struct {
		name     string
		filter   catalog.Filter
		expected []uuid.UUID
	}{
		{
			name:     "Newest first",
			expected: []uuid.UUID{saia.ID, longo.ID, midi.ID},
		},
		{
			name:     "Category ignores case",
			filter:   catalog.Filter{Category: "vestidos"},
			expected: []uuid.UUID{longo.ID, midi.ID},
		},
		{
			name:     "Price range is inclusive",
			filter:   catalog.Filter{MinPrice: pricePtr("59.90"), MaxPrice: pricePtr("89.90")},
			expected: []uuid.UUID{saia.ID, longo.ID},
		},
		{
			name:     "On sale only",
			filter:   catalog.Filter{OnSaleOnly: true},
			expected: []uuid.UUID{longo.ID},
		},
		{
			name:     "Price descending",
			filter:   catalog.Filter{Sort: catalog.SortPriceDesc},
			expected: []uuid.UUID{midi.ID, longo.ID, saia.ID},
		},
		{
			name:     "Combined predicates with price ascending",
			filter:   catalog.Filter{Category: "Vestidos", MaxPrice: pricePtr("200.00"), Sort: catalog.SortPriceAsc},
			expected: []uuid.UUID{longo.ID, midi.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.List(ctx, tt.filter, 10, 0)
			require.NoError(t, err)

			ids := []uuid.UUID{}
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}
func TestProductRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger := zerolog.Nop()
	repo := NewProductRepository(pool, logger)

	category := seedCategory(t, pool, "Vestidos", false)
	p := testProduct("Vestido Midi", "99.90", 3, time.Now().UTC())
	p.CategoryID = &category.ID
	p.OldPrice = pricePtr("129.90")
	seedProducts(t, pool, []model.Product{p})

	tests := []struct {
		name      string
		id        uuid.UUID
		expectNil bool
	}{
		{
			name:      "Product exists",
			id:        p.ID,
			expectNil: false,
		},
		{
			name:      "Product does not exist",
			id:        uuid.New(),
			expectNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			product, err := repo.GetByID(ctx, tt.id)

			require.NoError(t, err)

			if tt.expectNil {
				assert.Nil(t, product)
			} else {
				require.NotNil(t, product)
				assert.Equal(t, p.ID, product.ID)
				assert.Equal(t, p.Name, product.Name)
				assert.True(t, p.Price.Equal(product.Price))
				require.NotNil(t, product.OldPrice)
				assert.True(t, p.OldPrice.Equal(*product.OldPrice))
				assert.True(t, product.OnSale())
				assert.Equal(t, "Vestidos", product.Category)
				assert.Equal(t, []string{"P", "M"}, product.Sizes)
				assert.Equal(t, []string{"Preto"}, product.Colors)
			}
		})
	}
}

func TestProductRepository_GetByIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger := zerolog.Nop()
	repo := NewProductRepository(pool, logger)

	now := time.Now().UTC()
	testProducts := []model.Product{
		testProduct("Saia A", "10.00", 1, now),
		testProduct("Saia B", "20.00", 1, now),
		testProduct("Saia C", "30.00", 1, now),
	}
	seedProducts(t, pool, testProducts)

	tests := []struct {
		name     string
		ids      []uuid.UUID
		expected int
	}{
		{
			name:     "Get multiple products",
			ids:      []uuid.UUID{testProducts[0].ID, testProducts[1].ID, testProducts[2].ID},
			expected: 3,
		},
		{
			name:     "Get subset of products",
			ids:      []uuid.UUID{testProducts[0].ID, testProducts[2].ID},
			expected: 2,
		},
		{
			name:     "Some products do not exist",
			ids:      []uuid.UUID{testProducts[0].ID, uuid.New()},
			expected: 1,
		},
		{
			name:     "No products exist",
			ids:      []uuid.UUID{uuid.New(), uuid.New()},
			expected: 0,
		},
		{
			name:     "Empty ID list",
			ids:      []uuid.UUID{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			products, err := repo.GetByIDs(ctx, tt.ids)

			require.NoError(t, err)
			assert.Len(t, products, tt.expected)
		})
	}
}

func TestProductRepository_AdminWrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewProductRepository(pool, zerolog.Nop())

	category := seedCategory(t, pool, "Conjuntos", false)
	p := testProduct("Conjunto Linho", "150.00", 2, time.Now().UTC())
	p.CategoryID = &category.ID
	seedProducts(t, pool, []model.Product{p})

	count, err := repo.CountByCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	p.Name = "Conjunto Linho Cru"
	p.OldPrice = pricePtr("180.00")
	p.Images = nil
	require.NoError(t, repo.Update(ctx, &p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Conjunto Linho Cru", got.Name)
	assert.Empty(t, got.Images)
	assert.True(t, got.OnSale())

	require.NoError(t, repo.SetFeatured(ctx, p.ID, true))
	featured, err := repo.GetFeatured(ctx, 10)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, p.ID, featured[0].ID)

	byCategory, err := repo.GetByCategory(ctx, category.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	missing := testProduct("Fantasma", "10.00", 1, time.Now().UTC())
	assert.ErrorIs(t, repo.Update(ctx, &missing), model.ErrProductNotFound)
	assert.ErrorIs(t, repo.SetFeatured(ctx, missing.ID, true), model.ErrProductNotFound)

	unknownCategory := uuid.New()
	missing.CategoryID = &unknownCategory
	assert.ErrorIs(t, repo.Create(ctx, &missing), model.ErrCategoryNotFound)

	require.NoError(t, repo.Delete(ctx, p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), model.ErrProductNotFound)
}

func TestProductRepository_StockInTransaction(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewProductRepository(pool, zerolog.Nop())

	p := testProduct("Blusa", "59.90", 2, time.Now().UTC())
	seedProducts(t, pool, []model.Product{p})

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	locked, err := repo.GetByIDsForUpdate(ctx, tx, []uuid.UUID{p.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, 2, locked[0].Stock)

	require.NoError(t, repo.DecrementStock(ctx, tx, p.ID, 2))
	assert.ErrorIs(t, repo.DecrementStock(ctx, tx, p.ID, 1), model.ErrStockExceeded)

	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
}

func TestProductRepository_ErrorPaths(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger := zerolog.Nop()
	repo := NewProductRepository(pool, logger)

	p := testProduct("Vestido", "10.00", 1, time.Now().UTC())
	seedProducts(t, pool, []model.Product{p})

	// Close the pool to simulate database errors
	pool.Close()

	t.Run("List with closed pool", func(t *testing.T) {
		ctx := context.Background()
		products, err := repo.List(ctx, catalog.Filter{}, 10, 0)

		require.Error(t, err)
		assert.Nil(t, products)
	})

	t.Run("GetByID with closed pool", func(t *testing.T) {
		ctx := context.Background()
		product, err := repo.GetByID(ctx, p.ID)

		require.Error(t, err)
		assert.Nil(t, product)
	})

	t.Run("GetByIDs with closed pool", func(t *testing.T) {
		ctx := context.Background()
		products, err := repo.GetByIDs(ctx, []uuid.UUID{p.ID})

		require.Error(t, err)
		assert.Nil(t, products)
	})

	t.Run("CountByCategory with closed pool", func(t *testing.T) {
		ctx := context.Background()
		_, err := repo.CountByCategory(ctx, uuid.New())

		require.Error(t, err)
	})
}
