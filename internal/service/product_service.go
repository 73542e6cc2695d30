package service

import (
	"context"
	"time"

	"paloma-store/internal/catalog"
	"paloma-store/internal/model"
	"paloma-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// catalogBatch is the number of rows read per round trip while a listing
// is filtered in memory.
const catalogBatch = 200

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List returns the products matching filter, paged after filtering. The
// store narrows by category, price and sale; search, colour and size are
// matched here, reading batches until the page is filled.
func (s *productService) List(ctx context.Context, filter catalog.Filter, limit, offset int) ([]model.Product, error) {
	limit, offset = page(limit, offset)
	want := offset + limit

	matched := []model.Product{}
	scanned := 0
	for len(matched) < want {
		batch, err := s.productRepo.List(ctx, filter, catalogBatch, scanned)
		if err != nil {
			s.logger.Error().Err(err).Int("offset", scanned).Msg("failed to get products")
			return nil, storeError("failed to get products", err)
		}
		scanned += len(batch)
		matched = append(matched, catalog.Apply(batch, filter)...)
		if len(batch) < catalogBatch {
			break
		}
	}

	s.logger.Debug().
		Int("scanned", scanned).
		Int("matched", len(matched)).
		Int("limit", limit).
		Int("offset", offset).
		Msg("retrieved products")

	if offset >= len(matched) {
		return []model.Product{}, nil
	}
	end := want
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// Featured returns the featured products.
func (s *productService) Featured(ctx context.Context, limit int) ([]model.Product, error) {
	limit, _ = page(limit, 0)

	products, err := s.productRepo.GetFeatured(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get featured products")
		return nil, storeError("failed to get featured products", err)
	}
	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to get product")
		return nil, storeError("failed to get product", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id.String()).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// GetByIDs retrieves the products that exist among ids.
func (s *productService) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to get products by IDs")
		return nil, storeError("failed to get products", err)
	}

	return products, nil
}

// Create validates and stores a new product.
func (s *productService) Create(ctx context.Context, in *model.ProductInput) (*model.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := productFromInput(in)
	product.ID = uuid.New()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.productRepo.Create(ctx, &product); err != nil {
		s.logger.Error().Err(err).Str("product_id", product.ID.String()).Msg("failed to create product")
		return nil, storeError("failed to create product", err)
	}

	s.logger.Info().Str("product_id", product.ID.String()).Str("name", product.Name).Msg("product created")

	return s.GetByID(ctx, product.ID)
}

// Update validates and replaces a product.
func (s *productService) Update(ctx context.Context, id uuid.UUID, in *model.ProductInput) (*model.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	product := productFromInput(in)
	product.ID = id
	product.UpdatedAt = time.Now().UTC()

	if err := s.productRepo.Update(ctx, &product); err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to update product")
		return nil, storeError("failed to update product", err)
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product updated")

	return s.GetByID(ctx, id)
}

// Delete removes a product.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to delete product")
		return storeError("failed to delete product", err)
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product deleted")

	return nil
}

// SetFeatured toggles the featured flag of a product. Products have no cap.
func (s *productService) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*model.Product, error) {
	if err := s.productRepo.SetFeatured(ctx, id, featured); err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to set product featured flag")
		return nil, storeError("failed to update product", err)
	}

	return s.GetByID(ctx, id)
}

func productFromInput(in *model.ProductInput) model.Product {
	return model.Product{
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Price:       in.Price,
		OldPrice:    in.OldPrice,
		Stock:       in.Stock,
		Images:      in.Images,
		Colors:      in.Colors,
		Sizes:       in.Sizes,
		Featured:    in.Featured,
	}
}
