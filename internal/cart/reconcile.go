package cart

import (
	"paloma-store/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductIDs returns the distinct product ids referenced by items, in first-seen order.
func ProductIDs(items []model.CartItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Reconcile checks items against the authoritative product records. Items
// whose product is gone or out of stock are dropped; the rest take the
// current name, images, prices, sale flag and stock while keeping the
// shopper's size and colour. items is not modified.
func Reconcile(items []model.CartItem, products map[uuid.UUID]model.Product) []model.CartItem {
	out := make([]model.CartItem, 0, len(items))
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok || p.Stock <= 0 {
			continue
		}
		applyProduct(&item, p)
		out = append(out, item)
	}
	return out
}

// IndexProducts keys products by id.
func IndexProducts(products []model.Product) map[uuid.UUID]model.Product {
	out := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}

// Equal compares two carts by value. Money is compared numerically so
// 10 and 10.00 are the same price.
func Equal(a, b []model.CartItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !itemEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func applyProduct(item *model.CartItem, p model.Product) {
	item.Name = p.Name
	item.Price = p.Price
	item.OldPrice = nil
	if p.OldPrice != nil {
		old := *p.OldPrice
		item.OldPrice = &old
	}
	item.OnSale = p.OnSale()
	item.Stock = p.Stock
	item.Images = append([]string(nil), p.Images...)
}

func itemEqual(a, b model.CartItem) bool {
	return a.CartID == b.CartID &&
		a.ProductID == b.ProductID &&
		a.Name == b.Name &&
		a.Price.Equal(b.Price) &&
		decimalPtrEqual(a.OldPrice, b.OldPrice) &&
		a.OnSale == b.OnSale &&
		a.Stock == b.Stock &&
		stringsEqual(a.Images, b.Images) &&
		stringsEqual(a.Colors, b.Colors) &&
		stringsEqual(a.Sizes, b.Sizes) &&
		a.SelectedSize == b.SelectedSize &&
		a.SelectedColor == b.SelectedColor
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
