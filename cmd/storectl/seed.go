package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"paloma-store/internal/catalog"
	"paloma-store/internal/model"
	"paloma-store/internal/service"

	"github.com/rs/zerolog"
)

// seedFile is the JSON document read by the seed command. Products name
// their category by title.
type seedFile struct {
	Categories []model.CategoryInput `json:"categories"`
	Products   []seedProduct         `json:"products"`
}

type seedProduct struct {
	Category string `json:"category"`
	model.ProductInput
}

// seedResult counts what a seed run did.
type seedResult struct {
	CategoriesCreated  int
	CategoriesExisting int
	ProductsCreated    int
}

func readSeed(r io.Reader) (*seedFile, error) {
	var f seedFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &f, nil
}

// seed creates the categories that do not exist yet, then every product.
// Category titles match ignoring case and accents. Products are always
// created, so running a seed twice duplicates them.
func seed(
	ctx context.Context,
	f *seedFile,
	categories service.CategoryService,
	products service.ProductService,
	logger zerolog.Logger,
) (seedResult, error) {
	var res seedResult

	existing, err := categories.List(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list categories: %w", err)
	}
	byTitle := make(map[string]model.Category, len(existing))
	for _, c := range existing {
		byTitle[catalog.Fold(c.Title)] = c
	}

	for i := range f.Categories {
		in := f.Categories[i]
		if _, ok := byTitle[catalog.Fold(in.Title)]; ok {
			res.CategoriesExisting++
			continue
		}
		created, err := categories.Create(ctx, &in)
		if err != nil {
			return res, fmt.Errorf("category %q: %w", in.Title, err)
		}
		byTitle[catalog.Fold(created.Title)] = *created
		res.CategoriesCreated++
		logger.Info().Str("category", created.Title).Msg("category created")
	}

	for i := range f.Products {
		p := f.Products[i]
		if p.Category != "" {
			c, ok := byTitle[catalog.Fold(p.Category)]
			if !ok {
				return res, fmt.Errorf("product %q: unknown category %q", p.Name, p.Category)
			}
			id := c.ID
			p.CategoryID = &id
		}
		created, err := products.Create(ctx, &p.ProductInput)
		if err != nil {
			return res, fmt.Errorf("product %q: %w", p.Name, err)
		}
		res.ProductsCreated++
		logger.Info().Str("product", created.Name).Msg("product created")
	}

	return res, nil
}
