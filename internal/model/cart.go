package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a copy of a product taken when it was added to the cart, plus
// the shopper's variant selection. One CartItem is one unit.
type CartItem struct {
	CartID        string           `json:"cartId"`
	ProductID     uuid.UUID        `json:"productId"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OldPrice      *decimal.Decimal `json:"oldPrice,omitempty"`
	OnSale        bool             `json:"onSale"`
	Stock         int              `json:"stock"`
	Images        []string         `json:"images"`
	Colors        []string         `json:"colors,omitempty"`
	Sizes         []string         `json:"sizes,omitempty"`
	SelectedSize  string           `json:"selectedSize"`
	SelectedColor string           `json:"selectedColor"`
}

// CartField names the item attributes a shopper may edit after adding.
type CartField string

const (
	FieldSelectedSize  CartField = "selectedSize"
	FieldSelectedColor CartField = "selectedColor"
)

// CartView is the cart plus its derived amounts.
type CartView struct {
	Items         []CartItem      `json:"items"`
	Count         int             `json:"count"`
	Total         decimal.Decimal `json:"total"`
	OriginalTotal decimal.Decimal `json:"originalTotal"`
	Savings       decimal.Decimal `json:"savings"`
}

// CartTotal sums the current price of every item. Old prices never count.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}

// CartOriginalTotal sums the pre-discount price of every item: the old price
// for items on sale and the current price otherwise.
func CartOriginalTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.OnSale && item.OldPrice != nil {
			total = total.Add(*item.OldPrice)
			continue
		}
		total = total.Add(item.Price)
	}
	return total
}

// NewCartView computes the derived amounts for items.
func NewCartView(items []CartItem) CartView {
	if items == nil {
		items = []CartItem{}
	}
	total := CartTotal(items)
	original := CartOriginalTotal(items)
	return CartView{
		Items:         items,
		Count:         len(items),
		Total:         total,
		OriginalTotal: original,
		Savings:       original.Sub(total),
	}
}

// AddToCartRequest is the payload for adding a product variant to the cart.
type AddToCartRequest struct {
	ProductID     uuid.UUID `json:"productId"`
	SelectedSize  string    `json:"selectedSize"`
	SelectedColor string    `json:"selectedColor"`
}

// UpdateCartItemRequest is the payload for changing a cart item's variant.
type UpdateCartItemRequest struct {
	Field CartField `json:"field"`
	Value string    `json:"value"`
}
