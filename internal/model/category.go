package model

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// MaxFeaturedCategories is the number of categories that can be featured at once.
const MaxFeaturedCategories = 3

// CategoryIcon is the closed set of icons a category can be rendered with.
type CategoryIcon string

const (
	IconSparkles CategoryIcon = "sparkles"
	IconLayers   CategoryIcon = "layers"
	IconTag      CategoryIcon = "tag"
	IconBag      CategoryIcon = "bag"
)

// Valid reports whether the icon is one of the known values.
func (i CategoryIcon) Valid() bool {
	switch i {
	case IconSparkles, IconLayers, IconTag, IconBag:
		return true
	}
	return false
}

// Category groups products on the storefront.
type Category struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	ImageURL  string       `json:"imageUrl"`
	Icon      CategoryIcon `json:"icon"`
	LinkURL   string       `json:"linkUrl"`
	IsPromo   bool         `json:"isPromo"`
	Featured  bool         `json:"featured"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// CategoryInput is the admin payload for creating or editing a category.
type CategoryInput struct {
	Title    string       `json:"title"`
	ImageURL string       `json:"imageUrl"`
	Icon     CategoryIcon `json:"icon"`
	LinkURL  string       `json:"linkUrl"`
}

// Validate checks the admin rules for a category payload.
func (in *CategoryInput) Validate() error {
	if in == nil {
		return NewValidationError("category payload is required")
	}
	if in.Title == "" {
		return NewValidationError("category title is required")
	}
	if in.ImageURL == "" {
		return NewValidationError("category image is required")
	}
	if in.Icon == "" {
		in.Icon = IconSparkles
	}
	if !in.Icon.Valid() {
		return NewValidationError("icon must be one of sparkles, layers, tag, bag")
	}
	return nil
}

// CatalogLink is the storefront link generated for regular categories.
func CatalogLink(title string) string {
	return "/catalogo?category=" + url.QueryEscape(title)
}
