package service

import (
	"context"
	"errors"

	"paloma-store/internal/cart"
	"paloma-store/internal/catalog"
	"paloma-store/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for the product catalogue.
type ProductService interface {
	// List returns the products matching filter, paged after filtering.
	List(ctx context.Context, filter catalog.Filter, limit, offset int) ([]model.Product, error)

	// Featured returns the featured products.
	Featured(ctx context.Context, limit int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves the products that exist among ids.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)

	// Create validates and stores a new product.
	Create(ctx context.Context, in *model.ProductInput) (*model.Product, error)

	// Update validates and replaces a product.
	Update(ctx context.Context, id uuid.UUID, in *model.ProductInput) (*model.Product, error)

	// Delete removes a product.
	Delete(ctx context.Context, id uuid.UUID) error

	// SetFeatured toggles the featured flag of a product.
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*model.Product, error)
}

// CategoryService defines operations for storefront categories.
type CategoryService interface {
	// List returns every category.
	List(ctx context.Context) ([]model.Category, error)

	// Featured returns the featured categories.
	Featured(ctx context.Context) ([]model.Category, error)

	// GetByID retrieves a single category by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error)

	// Create validates and stores a new category.
	Create(ctx context.Context, in *model.CategoryInput) (*model.Category, error)

	// Update validates and replaces a category.
	Update(ctx context.Context, id uuid.UUID, in *model.CategoryInput) (*model.Category, error)

	// Delete removes a category that is neither protected nor in use.
	Delete(ctx context.Context, id uuid.UUID) error

	// SetFeatured toggles the featured flag, keeping at most
	// model.MaxFeaturedCategories categories featured.
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*model.Category, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder places an order for the cart in store and clears the cart.
	CreateOrder(ctx context.Context, who *model.Session, store *cart.Store, req *model.CheckoutRequest) (*model.OrderResponse, error)

	// GetByID retrieves an order with its items. Customers only see their own orders.
	GetByID(ctx context.Context, who *model.Session, id uuid.UUID) (*model.OrderResponse, error)

	// List returns orders newest first. Customers only see their own orders.
	List(ctx context.Context, who *model.Session, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus moves an order along its lifecycle.
	UpdateStatus(ctx context.Context, id uuid.UUID, next model.OrderStatus) (*model.OrderResponse, error)
}

// AuthService defines operations for customer and admin accounts.
type AuthService interface {
	// SignUp creates a customer account.
	SignUp(ctx context.Context, req *model.SignUpRequest) (*model.User, error)

	// SignIn checks credentials and returns the account.
	SignIn(ctx context.Context, req *model.SignInRequest) (*model.User, error)

	// GetByID retrieves an account.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GrantRole changes the role of the account with the given e-mail.
	GrantRole(ctx context.Context, email string, role model.Role) error
}

// storeError passes domain errors through and turns anything else into a
// persistence error.
func storeError(message string, err error) error {
	var de *model.DomainError
	if errors.As(err, &de) {
		return err
	}
	return model.NewPersistenceError(message, err)
}

// page clamps listing bounds.
func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
