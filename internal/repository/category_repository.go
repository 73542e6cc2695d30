package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paloma-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const categoryColumns = `id, title, image_url, icon, link_url, is_promo, featured, created_at, updated_at`

// featuredLockKey is the advisory lock held while the featured set changes.
const featuredLockKey int64 = 0x70616c6f6d61

// categoryRepository implements the CategoryRepository interface using PostgreSQL.
type categoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) CategoryRepository {
	return &categoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "category").Logger(),
	}
}

func scanCategory(row pgx.Row) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Title, &c.ImageURL, &c.Icon, &c.LinkURL, &c.IsPromo, &c.Featured, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// BeginTx starts a new database transaction.
func (r *categoryRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *categoryRepository) query(ctx context.Context, query string, args ...any) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan category row")
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating category rows")
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// GetAll retrieves every category, oldest first.
func (r *categoryRepository) GetAll(ctx context.Context) ([]model.Category, error) {
	return r.query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY created_at, title`)
}

// GetFeatured retrieves the featured categories.
func (r *categoryRepository) GetFeatured(ctx context.Context) ([]model.Category, error) {
	return r.query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE featured ORDER BY created_at, title`)
}

// GetByID retrieves a single category by its ID.
func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	return r.getByID(ctx, r.pool, id, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`)
}

// GetByIDForUpdate retrieves and row-locks a category within the provided transaction.
func (r *categoryRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Category, error) {
	return r.getByID(ctx, tx, id, `SELECT `+categoryColumns+` FROM categories WHERE id = $1 FOR UPDATE`)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *categoryRepository) getByID(ctx context.Context, q rowQuerier, id uuid.UUID, query string) (*model.Category, error) {
	c, err := scanCategory(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("category_id", id.String()).Msg("category not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to query category")
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &c, nil
}

// CountFeatured counts featured categories within the provided transaction.
// A transaction-scoped advisory lock makes concurrent callers wait until the
// holder commits, so two admins cannot both take the last featured slot.
func (r *categoryRepository) CountFeatured(ctx context.Context, tx pgx.Tx) (int, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, featuredLockKey); err != nil {
		r.logger.Error().Err(err).Msg("failed to lock featured categories")
		return 0, fmt.Errorf("failed to lock featured categories: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE featured`).Scan(&count); err != nil {
		r.logger.Error().Err(err).Msg("failed to count featured categories")
		return 0, fmt.Errorf("failed to count featured categories: %w", err)
	}

	return count, nil
}

// SetFeatured toggles the featured flag within the provided transaction.
func (r *categoryRepository) SetFeatured(ctx context.Context, tx pgx.Tx, id uuid.UUID, featured bool) error {
	tag, err := tx.Exec(ctx,
		`UPDATE categories SET featured = $2, updated_at = $3 WHERE id = $1`,
		id, featured, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to set category featured flag")
		return fmt.Errorf("failed to set category featured flag: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrCategoryNotFound
	}

	return nil
}

// Create inserts a new category.
func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
		INSERT INTO categories (id, title, image_url, icon, link_url, is_promo, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.ImageURL, c.Icon, c.LinkURL, c.IsPromo, c.Featured, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return model.ErrCategoryExists
		}
		r.logger.Error().Err(err).Str("category_id", c.ID.String()).Msg("failed to create category")
		return fmt.Errorf("failed to create category: %w", err)
	}

	r.logger.Debug().Str("category_id", c.ID.String()).Msg("category created successfully")

	return nil
}

// Update replaces the editable fields of a category. The promo and featured
// flags are not touched here.
func (r *categoryRepository) Update(ctx context.Context, c *model.Category) error {
	query := `
		UPDATE categories
		SET title = $2, image_url = $3, icon = $4, link_url = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, c.ID, c.Title, c.ImageURL, c.Icon, c.LinkURL, c.UpdatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return model.ErrCategoryExists
		}
		r.logger.Error().Err(err).Str("category_id", c.ID.String()).Msg("failed to update category")
		return fmt.Errorf("failed to update category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrCategoryNotFound
	}

	return nil
}

// Delete removes a category. Promo categories and categories still
// referenced by products are refused by the store as well.
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND NOT is_promo`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return model.ErrCategoryInUse
		}
		r.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to delete category")
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrCategoryNotFound
	}

	return nil
}
