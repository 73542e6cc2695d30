// Package catalog filters and orders product listings for the storefront.
package catalog

import (
	"sort"
	"strings"
	"unicode"

	"paloma-store/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sort selects the ordering of a listing.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

// ParseSort maps a query value to a Sort. Unknown values fall back to newest.
func ParseSort(v string) Sort {
	switch Sort(v) {
	case SortPriceAsc, SortPriceDesc:
		return Sort(v)
	}
	return SortNewest
}

// Filter holds the storefront catalogue predicates. Zero values disable a predicate.
type Filter struct {
	Search     string
	Category   string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Colors     []string
	Sizes      []string
	OnSaleOnly bool
	Sort       Sort
}

// Matches reports whether p satisfies every enabled predicate.
func (f Filter) Matches(p model.Product) bool {
	if f.Search != "" && !strings.Contains(Fold(p.Name), Fold(f.Search)) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if len(f.Colors) > 0 && !anyOf(p.Colors, f.Colors) {
		return false
	}
	if len(f.Sizes) > 0 && !anyOf(p.Sizes, f.Sizes) {
		return false
	}
	if f.OnSaleOnly && !p.OnSale() {
		return false
	}
	return true
}

// Apply returns the products matching f in the requested order. The input
// slice is not modified.
func Apply(products []model.Product, f Filter) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if f.Matches(p) {
			out = append(out, p)
		}
	}

	switch f.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// Fold lower-cases s and strips diacritics so "Vestido Açaí" matches "acai".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func anyOf(offered, wanted []string) bool {
	for _, w := range wanted {
		for _, o := range offered {
			if strings.EqualFold(o, w) {
				return true
			}
		}
	}
	return false
}
