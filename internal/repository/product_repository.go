package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"paloma-store/internal/catalog"
	"paloma-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `
	p.id, p.name, p.description, p.category_id, COALESCE(c.title, ''),
	p.price, p.old_price, p.stock, p.images, p.colors, p.sizes,
	p.featured, p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.Category,
		&p.Price, &p.OldPrice, &p.Stock, &p.Images, &p.Colors, &p.Sizes,
		&p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *productRepository) collect(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// List retrieves products matching the category, price and on-sale
// predicates of f, in the order f asks for. Search, colour and size
// predicates are left to the caller.
func (r *productRepository) List(ctx context.Context, f catalog.Filter, limit, offset int) ([]model.Product, error) {
	where, args := listPredicates(f)
	args = append(args, limit, offset)
	query := `SELECT ` + productColumns + productFrom + where + `
		ORDER BY ` + listOrder(f.Sort) + `
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return r.collect(rows)
}

func listPredicates(f catalog.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Category != "" {
		conds = append(conds, "lower(c.title) = lower("+arg(f.Category)+")")
	}
	if f.MinPrice != nil {
		conds = append(conds, "p.price >= "+arg(*f.MinPrice)+"::numeric")
	}
	if f.MaxPrice != nil {
		conds = append(conds, "p.price <= "+arg(*f.MaxPrice)+"::numeric")
	}
	if f.OnSaleOnly {
		conds = append(conds, "p.old_price IS NOT NULL AND p.old_price > p.price")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

// listOrder matches the ordering of catalog.Apply so batches can be
// filtered further in memory without reordering across them.
func listOrder(s catalog.Sort) string {
	switch s {
	case catalog.SortPriceAsc:
		return "p.price ASC, p.created_at DESC, p.id"
	case catalog.SortPriceDesc:
		return "p.price DESC, p.created_at DESC, p.id"
	}
	return "p.created_at DESC, p.id"
}

// GetFeatured retrieves featured products newest first.
func (r *productRepository) GetFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.featured
		ORDER BY p.created_at DESC, p.id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error().Err(err).Int("limit", limit).Msg("failed to query featured products")
		return nil, fmt.Errorf("failed to query featured products: %w", err)
	}

	return r.collect(rows)
}

// GetByCategory retrieves the products of a category newest first.
func (r *productRepository) GetByCategory(ctx context.Context, categoryID uuid.UUID, limit, offset int) ([]model.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.category_id = $1
		ORDER BY p.created_at DESC, p.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, categoryID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("category_id", categoryID.String()).Msg("failed to query products by category")
		return nil, fmt.Errorf("failed to query products by category: %w", err)
	}

	return r.collect(rows)
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.id = $1
	`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs. Missing IDs are skipped.
func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.id = ANY($1)
		ORDER BY p.created_at DESC, p.id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}

	return r.collect(rows)
}

// GetByIDsForUpdate retrieves and row-locks products within the provided transaction.
func (r *productRepository) GetByIDsForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	// Rows are locked in id order so concurrent checkouts cannot deadlock.
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.id = ANY($1)
		ORDER BY p.id
		FOR UPDATE OF p
	`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to lock products")
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	return r.collect(rows)
}

// DecrementStock takes quantity units of a product within the provided transaction.
func (r *productRepository) DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	tag, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id.String()).Int("quantity", quantity).Msg("failed to decrement stock")
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn().Str("product_id", id.String()).Int("quantity", quantity).Msg("not enough stock")
		return model.ErrStockExceeded
	}

	return nil
}

// Create inserts a new product.
func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (id, name, description, category_id, price, old_price, stock,
			images, colors, sizes, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.CategoryID, p.Price, p.OldPrice, p.Stock,
		nonNil(p.Images), nonNil(p.Colors), nonNil(p.Sizes), p.Featured, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return model.ErrCategoryNotFound
		}
		r.logger.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Debug().Str("product_id", p.ID.String()).Msg("product created successfully")

	return nil
}

// Update replaces the editable fields of a product.
func (r *productRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, category_id = $4, price = $5, old_price = $6,
			stock = $7, images = $8, colors = $9, sizes = $10, featured = $11, updated_at = $12
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.CategoryID, p.Price, p.OldPrice,
		p.Stock, nonNil(p.Images), nonNil(p.Colors), nonNil(p.Sizes), p.Featured, p.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return model.ErrCategoryNotFound
		}
		r.logger.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to update product")
		return fmt.Errorf("failed to update product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// Delete removes a product. Order items keep their copied name and price.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// SetFeatured toggles the featured flag of a product.
func (r *productRepository) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET featured = $2, updated_at = $3 WHERE id = $1`,
		id, featured, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to set product featured flag")
		return fmt.Errorf("failed to set product featured flag: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// CountByCategory counts the products referencing a category.
func (r *productRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Str("category_id", categoryID.String()).Msg("failed to count products by category")
		return 0, fmt.Errorf("failed to count products by category: %w", err)
	}

	return count, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
