// Package fixtures loads catalog seed data from YAML documents.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dimmoon69/booktime/internal/service"
)

type File struct {
	Tags     []Tag     `yaml:"tags"`
	Products []Product `yaml:"products"`
}

type Tag struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Active      *bool  `yaml:"active"`
}

// Product refers to its tags by slug. Price is kept as text so it is never
// rounded through a float.
type Product struct {
	Name        string   `yaml:"name"`
	Slug        string   `yaml:"slug"`
	Description string   `yaml:"description"`
	Price       string   `yaml:"price"`
	Active      *bool    `yaml:"active"`
	InStock     *bool    `yaml:"in_stock"`
	Tags        []string `yaml:"tags"`
}

type Result struct {
	TagsCreated     int
	TagsSkipped     int
	ProductsCreated int
	ProductsSkipped int
}

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("fixtures: decode: %w", err)
	}
	return &f, nil
}

// Load creates tags first, then products. Entries whose slug is already
// taken are skipped, so a file can be loaded more than once.
func Load(ctx context.Context, r io.Reader, catalog *service.CatalogService) (Result, error) {
	var res Result
	f, err := Parse(r)
	if err != nil {
		return res, err
	}

	for _, t := range f.Tags {
		_, err := catalog.CreateTag(ctx, service.TagInput(t))
		switch {
		case err == nil:
			res.TagsCreated++
		case errors.Is(err, service.ErrConflict):
			res.TagsSkipped++
		default:
			return res, fmt.Errorf("tag %q: %w", t.Slug, err)
		}
	}

	for _, p := range f.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return res, fmt.Errorf("product %q: price %q: %w", p.Name, p.Price, err)
		}
		_, err = catalog.CreateProduct(ctx, service.ProductInput{
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			Slug:        p.Slug,
			Active:      p.Active == nil || *p.Active,
			InStock:     p.InStock == nil || *p.InStock,
			Tags:        p.Tags,
		})
		switch {
		case err == nil:
			res.ProductsCreated++
		case errors.Is(err, service.ErrConflict):
			res.ProductsSkipped++
		default:
			return res, fmt.Errorf("product %q: %w", p.Name, err)
		}
	}
	return res, nil
}
