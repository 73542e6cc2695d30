package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"paloma-store/internal/catalog"
	"paloma-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newProduct(name, price string, stock int, createdAt time.Time) model.Product {
	return model.Product{
		ID:        uuid.New(),
		Name:      name,
		Category:  "Vestidos",
		Price:     dec(price),
		Stock:     stock,
		Images:    []string{"/uploads/products/" + name + ".jpg"},
		Sizes:     []string{"P", "M", "G"},
		Colors:    []string{"Preto", "Branco"},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestProductService_List(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	now := time.Now()
	vestido := newProduct("Vestido Açaí", "149.90", 3, now)
	saia := newProduct("Saia Midi", "89.90", 5, now.Add(-time.Hour))
	saia.OldPrice = decPtr("120.00")
	blusa := newProduct("Blusa", "59.90", 1, now.Add(-2*time.Hour))
	all := []model.Product{blusa, saia, vestido}

	tests := []struct {
		name        string
		filter      catalog.Filter
		limit       int
		offset      int
		mockReturn  []model.Product
		mockError   error
		expected    []uuid.UUID
		expectError bool
	}{
		{
			name:       "Newest first by default",
			limit:      10,
			mockReturn: all,
			expected:   []uuid.UUID{vestido.ID, saia.ID, blusa.ID},
		},
		{
			name:       "Search ignores accents",
			filter:     catalog.Filter{Search: "acai"},
			limit:      10,
			mockReturn: all,
			expected:   []uuid.UUID{vestido.ID},
		},
		{
			name:       "On sale only",
			filter:     catalog.Filter{OnSaleOnly: true},
			limit:      10,
			mockReturn: all,
			expected:   []uuid.UUID{saia.ID},
		},
		{
			name:       "Price ascending paged after filtering",
			filter:     catalog.Filter{Sort: catalog.SortPriceAsc},
			limit:      1,
			offset:     1,
			mockReturn: all,
			expected:   []uuid.UUID{saia.ID},
		},
		{
			name:       "Offset past the end",
			limit:      10,
			offset:     10,
			mockReturn: all,
			expected:   []uuid.UUID{},
		},
		{
			name:        "Repository error",
			limit:       10,
			mockError:   errors.New("database error"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			service := NewProductService(mockRepo, logger)

			mockRepo.On("List", ctx, tt.filter, catalogBatch, 0).Return(tt.mockReturn, tt.mockError)

			products, err := service.List(ctx, tt.filter, tt.limit, tt.offset)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrPersistence)
				assert.Nil(t, products)
			} else {
				require.NoError(t, err)
				ids := []uuid.UUID{}
				for _, p := range products {
					ids = append(ids, p.ID)
				}
				assert.Equal(t, tt.expected, ids)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestProductService_List_ReadsPastFirstBatch(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := NewProductService(mockRepo, zerolog.Nop())

	base := time.Now()
	first := make([]model.Product, catalogBatch)
	for i := range first {
		first[i] = newProduct("Blusa", "59.90", 1, base.Add(-time.Duration(i)*time.Minute))
	}
	late := newProduct("Vestido Açaí", "149.90", 1, base.Add(-time.Duration(catalogBatch+1)*time.Minute))
	filter := catalog.Filter{Search: "acai"}

	mockRepo.On("List", ctx, filter, catalogBatch, 0).Return(first, nil)
	mockRepo.On("List", ctx, filter, catalogBatch, catalogBatch).Return([]model.Product{late}, nil)

	products, err := service.List(ctx, filter, 10, 0)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, late.ID, products[0].ID)
	mockRepo.AssertExpectations(t)
}

func TestProductService_List_StopsOncePageIsFull(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := NewProductService(mockRepo, zerolog.Nop())

	base := time.Now()
	batch := make([]model.Product, catalogBatch)
	for i := range batch {
		batch[i] = newProduct("Blusa", "59.90", 1, base.Add(-time.Duration(i)*time.Minute))
	}
	mockRepo.On("List", ctx, catalog.Filter{}, catalogBatch, 0).Return(batch, nil).Once()

	products, err := service.List(ctx, catalog.Filter{}, 20, 40)

	require.NoError(t, err)
	require.Len(t, products, 20)
	assert.Equal(t, batch[40].ID, products[0].ID)
	mockRepo.AssertNumberOfCalls(t, "List", 1)
}

func TestProductService_Featured_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := NewProductService(mockRepo, zerolog.Nop())

	mockRepo.On("GetFeatured", ctx, 100).Return([]model.Product{}, nil)

	products, err := service.Featured(ctx, 500)

	require.NoError(t, err)
	assert.Empty(t, products)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetByID(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	product := newProduct("Vestido", "99.90", 2, time.Now())

	tests := []struct {
		name          string
		mockReturn    *model.Product
		mockError     error
		expectedError error
	}{
		{
			name:       "Product found",
			mockReturn: &product,
		},
		{
			name:          "Product not found",
			expectedError: model.ErrProductNotFound,
		},
		{
			name:          "Repository error",
			mockError:     errors.New("database error"),
			expectedError: model.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			service := NewProductService(mockRepo, logger)

			mockRepo.On("GetByID", ctx, product.ID).Return(tt.mockReturn, tt.mockError)

			got, err := service.GetByID(ctx, product.ID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, product.ID, got.ID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestProductService_GetByIDs_Empty(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewProductService(mockRepo, zerolog.Nop())

	products, err := service.GetByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, products)
	mockRepo.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}

func TestProductService_Create(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("Valid product is stored and reloaded", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		service := NewProductService(mockRepo, logger)

		in := &model.ProductInput{
			Name:     "Vestido Longo",
			Price:    dec("199.90"),
			OldPrice: decPtr("249.90"),
			Stock:    4,
			Sizes:    []string{"M"},
		}

		var stored *model.Product
		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.Product")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*model.Product) }).
			Return(nil)
		reloaded := &model.Product{Name: "Vestido Longo", Category: "Vestidos", Price: dec("199.90"), OldPrice: decPtr("249.90")}
		mockRepo.On("GetByID", ctx, mock.AnythingOfType("uuid.UUID")).Return(reloaded, nil)

		got, err := service.Create(ctx, in)

		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.NotEqual(t, uuid.Nil, stored.ID)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.Equal(t, []string{"M"}, stored.Sizes)
		assert.Equal(t, "Vestidos", got.Category)
		assert.True(t, got.OnSale())
		mockRepo.AssertExpectations(t)
	})

	t.Run("Old price not above price is rejected", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		service := NewProductService(mockRepo, logger)

		_, err := service.Create(ctx, &model.ProductInput{
			Name:     "Saia",
			Price:    dec("50"),
			OldPrice: decPtr("50"),
		})

		var de *model.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, model.KindValidation, de.Kind)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Unknown category passes through", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		service := NewProductService(mockRepo, logger)

		categoryID := uuid.New()
		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.Product")).Return(model.ErrCategoryNotFound)

		_, err := service.Create(ctx, &model.ProductInput{Name: "Saia", Price: dec("50"), CategoryID: &categoryID})

		assert.ErrorIs(t, err, model.ErrCategoryNotFound)
	})
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	mockRepo := new(MockProductRepository)
	service := NewProductService(mockRepo, zerolog.Nop())
	mockRepo.On("Delete", ctx, id).Return(model.ErrProductNotFound)

	assert.ErrorIs(t, service.Delete(ctx, id), model.ErrProductNotFound)
}

func TestProductService_SetFeatured(t *testing.T) {
	ctx := context.Background()
	product := newProduct("Vestido", "99.90", 2, time.Now())
	product.Featured = true

	mockRepo := new(MockProductRepository)
	service := NewProductService(mockRepo, zerolog.Nop())
	mockRepo.On("SetFeatured", ctx, product.ID, true).Return(nil)
	mockRepo.On("GetByID", ctx, product.ID).Return(&product, nil)

	got, err := service.SetFeatured(ctx, product.ID, true)

	require.NoError(t, err)
	assert.True(t, got.Featured)
	mockRepo.AssertExpectations(t)
}
