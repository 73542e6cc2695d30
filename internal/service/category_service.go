package service

import (
	"context"
	"time"

	"paloma-store/internal/model"
	"paloma-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// categoryService implements CategoryService.
type categoryService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	logger       zerolog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	logger zerolog.Logger,
) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		logger:       logger.With().Str("service", "category").Logger(),
	}
}

// List returns every category.
func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get categories")
		return nil, storeError("failed to get categories", err)
	}
	return categories, nil
}

// Featured returns the featured categories.
func (s *categoryService) Featured(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.GetFeatured(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get featured categories")
		return nil, storeError("failed to get categories", err)
	}
	return categories, nil
}

// GetByID retrieves a single category by ID.
func (s *categoryService) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to get category")
		return nil, storeError("failed to get category", err)
	}
	if category == nil {
		return nil, model.ErrCategoryNotFound
	}
	return category, nil
}

// Create validates and stores a new category. New categories are never
// promotional and start out of the featured set.
func (s *categoryService) Create(ctx context.Context, in *model.CategoryInput) (*model.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	category := &model.Category{
		ID:        uuid.New(),
		Title:     in.Title,
		ImageURL:  in.ImageURL,
		Icon:      in.Icon,
		LinkURL:   model.CatalogLink(in.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		s.logger.Error().Err(err).Str("title", in.Title).Msg("failed to create category")
		return nil, storeError("failed to create category", err)
	}

	s.logger.Info().Str("category_id", category.ID.String()).Str("title", category.Title).Msg("category created")

	return category, nil
}

// Update validates and replaces a category. A promotional category keeps its
// title and link; only its image and icon change.
func (s *categoryService) Update(ctx context.Context, id uuid.UUID, in *model.CategoryInput) (*model.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	category, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if category.IsPromo {
		if in.Title != category.Title {
			s.logger.Warn().Str("category_id", id.String()).Msg("attempt to rename promo category")
			return nil, model.ErrProtectedCategory.WithMessage("Promotional category cannot be renamed")
		}
	} else {
		category.Title = in.Title
		category.LinkURL = model.CatalogLink(in.Title)
	}
	category.ImageURL = in.ImageURL
	category.Icon = in.Icon
	category.UpdatedAt = time.Now().UTC()

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		s.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to update category")
		return nil, storeError("failed to update category", err)
	}

	return category, nil
}

// Delete removes a category that is neither protected nor in use.
func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if category.IsPromo {
		s.logger.Warn().Str("category_id", id.String()).Msg("attempt to delete promo category")
		return model.ErrProtectedCategory
	}

	count, err := s.productRepo.CountByCategory(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to count category products")
		return storeError("failed to delete category", err)
	}
	if count > 0 {
		return model.ErrCategoryInUse
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to delete category")
		return storeError("failed to delete category", err)
	}

	s.logger.Info().Str("category_id", id.String()).Msg("category deleted")

	return nil
}

// SetFeatured toggles the featured flag inside one transaction. Featuring a
// category that is not yet featured while the set is full fails with
// model.ErrFeaturedCapacity and changes nothing.
func (s *categoryService) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (category *model.Category, err error) {
	tx, err := s.categoryRepo.BeginTx(ctx)
	if err != nil {
		return nil, storeError("failed to update category", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	count, err := s.categoryRepo.CountFeatured(ctx, tx)
	if err != nil {
		return nil, storeError("failed to update category", err)
	}

	category, err = s.categoryRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, storeError("failed to update category", err)
	}
	if category == nil {
		err = model.ErrCategoryNotFound
		return nil, err
	}

	if featured && !category.Featured && count >= model.MaxFeaturedCategories {
		s.logger.Warn().
			Str("category_id", id.String()).
			Int("featured", count).
			Msg("featured category limit reached")
		err = model.ErrFeaturedCapacity
		return nil, err
	}

	if category.Featured != featured {
		if err = s.categoryRepo.SetFeatured(ctx, tx, id, featured); err != nil {
			return nil, storeError("failed to update category", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to commit transaction")
		return nil, storeError("failed to update category", err)
	}

	category.Featured = featured
	return category, nil
}
