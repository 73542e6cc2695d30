package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents an item in the storefront catalogue.
type Product struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	CategoryID  *uuid.UUID       `json:"categoryId,omitempty"`
	Category    string           `json:"category,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"oldPrice,omitempty"`
	Stock       int              `json:"stock"`
	Images      []string         `json:"images"`
	Colors      []string         `json:"colors"`
	Sizes       []string         `json:"sizes"`
	Featured    bool             `json:"featured"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// OnSale reports whether the product has an old price strictly above its current price.
func (p Product) OnSale() bool {
	return IsOnSale(p.Price, p.OldPrice)
}

// PrimaryImage returns the first image, or "" when the product has none.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// IsOnSale is the single rule deciding whether a price pair is a promotion.
func IsOnSale(price decimal.Decimal, oldPrice *decimal.Decimal) bool {
	return oldPrice != nil && oldPrice.GreaterThan(price)
}

// ProductView is the JSON shape returned to clients, carrying the derived onSale flag.
type ProductView struct {
	Product
	OnSale bool `json:"onSale"`
}

// NewProductView wraps a product for output.
func NewProductView(p Product) ProductView {
	return ProductView{Product: p, OnSale: p.OnSale()}
}

// NewProductViews wraps a slice of products for output.
func NewProductViews(products []Product) []ProductView {
	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = NewProductView(p)
	}
	return views
}

// ProductInput is the admin payload for creating or editing a product.
// onSale is never accepted from input; it is derived from the prices.
type ProductInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	CategoryID  *uuid.UUID       `json:"categoryId,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"oldPrice,omitempty"`
	Stock       int              `json:"stock"`
	Images      []string         `json:"images"`
	Colors      []string         `json:"colors"`
	Sizes       []string         `json:"sizes"`
	Featured    bool             `json:"featured"`
}

// Validate checks the admin rules for a product payload.
func (in *ProductInput) Validate() error {
	if in == nil {
		return NewValidationError("product payload is required")
	}
	if in.Name == "" {
		return NewValidationError("product name is required")
	}
	if !in.Price.IsPositive() {
		return NewValidationError("price must be greater than zero")
	}
	if in.Stock < 0 {
		return NewValidationError("stock cannot be negative")
	}
	if in.OldPrice != nil && !in.OldPrice.GreaterThan(in.Price) {
		return NewValidationError("old price must be greater than the current price; leave it empty when the product is not on sale")
	}
	return nil
}
