package repository

import (
	"context"
	"errors"

	"paloma-store/internal/catalog"
	"paloma-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves products matching the category, price and on-sale
	// predicates of the filter, in the order it asks for.
	List(ctx context.Context, f catalog.Filter, limit, offset int) ([]model.Product, error)

	// GetFeatured retrieves featured products newest first.
	GetFeatured(ctx context.Context, limit int) ([]model.Product, error)

	// GetByCategory retrieves the products of a category newest first.
	GetByCategory(ctx context.Context, categoryID uuid.UUID, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs. Missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)

	// GetByIDsForUpdate retrieves and row-locks products within the provided transaction.
	GetByIDsForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Product, error)

	// DecrementStock takes quantity units of a product within the provided transaction.
	// It returns model.ErrStockExceeded when fewer units are left.
	DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error

	// Create inserts a new product.
	Create(ctx context.Context, product *model.Product) error

	// Update replaces the editable fields of a product.
	Update(ctx context.Context, product *model.Product) error

	// Delete removes a product.
	Delete(ctx context.Context, id uuid.UUID) error

	// SetFeatured toggles the featured flag of a product.
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error

	// CountByCategory counts the products referencing a category.
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error)
}

// CategoryRepository defines the interface for category data access operations.
type CategoryRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetAll retrieves every category, oldest first.
	GetAll(ctx context.Context) ([]model.Category, error)

	// GetFeatured retrieves the featured categories.
	GetFeatured(ctx context.Context) ([]model.Category, error)

	// GetByID retrieves a single category by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error)

	// GetByIDForUpdate retrieves and row-locks a category within the provided transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Category, error)

	// CountFeatured counts featured categories within the provided transaction.
	// It serialises concurrent featuring so the count stays valid until commit.
	CountFeatured(ctx context.Context, tx pgx.Tx) (int, error)

	// SetFeatured toggles the featured flag within the provided transaction.
	SetFeatured(ctx context.Context, tx pgx.Tx, id uuid.UUID, featured bool) error

	// Create inserts a new category.
	Create(ctx context.Context, category *model.Category) error

	// Update replaces the editable fields of a category.
	Update(ctx context.Context, category *model.Category) error

	// Delete removes a category.
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetItems retrieves the items of an order.
	GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// List retrieves orders newest first, narrowed by filter.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus moves an order from one status to another. It returns nil
	// when the order does not exist or is no longer in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (*model.Order, error)
}

// UserRepository defines the interface for user account data access operations.
type UserRepository interface {
	// Create inserts a new user. It returns model.ErrEmailTaken for a duplicate e-mail.
	Create(ctx context.Context, user *model.User) error

	// GetByEmail retrieves a user by e-mail.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// SetRole changes the role of the user with the given e-mail.
	SetRole(ctx context.Context, email string, role model.Role) error
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
