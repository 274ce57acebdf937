// Package seed imports a starter catalog from CSV files.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	CategoriesFile = "categories.csv"
	ProductsFile   = "products.csv"
)

// CategoryRow is one line of categories.csv.
type CategoryRow struct {
	Name      string `csv:"name"`
	ImageURL  string `csv:"imageUrl"`
	CreatedAt string `csv:"createdAt"`
}

// ProductRow is one line of products.csv. Optional numbers may be blank and
// image URLs are separated by "|".
type ProductRow struct {
	Name            string `csv:"name"`
	Description     string `csv:"description"`
	Price           string `csv:"price"`
	OriginalPrice   string `csv:"originalPrice"`
	DiscountPercent string `csv:"discountPercent"`
	StockQuantity   string `csv:"stockQuantity"`
	IsAvailable     string `csv:"isAvailable"`
	Category        string `csv:"category"`
	Brand           string `csv:"brand"`
	ImageURLs       string `csv:"imageUrls"`
	CreatedAt       string `csv:"createdAt"`
}

// Result counts what was imported.
type Result struct {
	Categories int
	Products   int
}

// Importer loads CSV files from fs into the catalog.
type Importer struct {
	fs      afero.Fs
	catalog *services.CatalogService
}

func NewImporter(fs afero.Fs, catalog *services.CatalogService) *Importer {
	return &Importer{fs: fs, catalog: catalog}
}

// Run imports categories and products from dir. Each collection is only
// seeded when it is empty, and a missing file is skipped.
func (im *Importer) Run(ctx context.Context, dir string) (Result, error) {
	var res Result
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := im.importCategories(ctx, path.Join(dir, CategoriesFile))
		res.Categories = n
		return err
	})
	g.Go(func() error {
		n, err := im.importProducts(ctx, path.Join(dir, ProductsFile))
		res.Products = n
		return err
	})
	if err := g.Wait(); err != nil {
		return res, err
	}
	zap.L().Info("catalog seeded",
		zap.String("namespace", "seed"),
		zap.Int("categories", res.Categories),
		zap.Int("products", res.Products),
	)
	return res, nil
}

func (im *Importer) readRows(file string, out any) (bool, error) {
	data, err := afero.ReadFile(im.fs, file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", file, err)
	}
	if err := gocsv.UnmarshalBytes(data, out); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return true, nil
}

func (im *Importer) importCategories(ctx context.Context, file string) (int, error) {
	existing, err := im.catalog.CountCategories(ctx)
	if err != nil || existing > 0 {
		return 0, err
	}
	var rows []CategoryRow
	found, err := im.readRows(file, &rows)
	if err != nil || !found {
		return 0, err
	}
	for i, row := range rows {
		category := models.Category{Name: strings.TrimSpace(row.Name), ImageURL: row.ImageURL}
		if category.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
			return i, fmt.Errorf("%s line %d: %w", file, i+2, err)
		}
		if _, err := im.catalog.CreateCategory(ctx, category); err != nil {
			return i, fmt.Errorf("%s line %d: %w", file, i+2, err)
		}
	}
	return len(rows), nil
}

func (im *Importer) importProducts(ctx context.Context, file string) (int, error) {
	existing, err := im.catalog.CountProducts(ctx)
	if err != nil || existing > 0 {
		return 0, err
	}
	var rows []ProductRow
	found, err := im.readRows(file, &rows)
	if err != nil || !found {
		return 0, err
	}
	for i, row := range rows {
		product, err := row.toProduct()
		if err != nil {
			return i, fmt.Errorf("%s line %d: %w", file, i+2, err)
		}
		if _, err := im.catalog.CreateProduct(ctx, product); err != nil {
			return i, fmt.Errorf("%s line %d: %w", file, i+2, err)
		}
	}
	return len(rows), nil
}

// parseCount reads a base-10 integer; leading zeros do not switch to octal.
func parseCount(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func (row ProductRow) toProduct() (models.Product, error) {
	p := models.Product{
		Name:        strings.TrimSpace(row.Name),
		Description: row.Description,
		Category:    strings.TrimSpace(row.Category),
		Brand:       row.Brand,
		IsAvailable: true,
	}
	var err error
	if p.Price, err = cast.ToFloat64E(strings.TrimSpace(row.Price)); err != nil {
		return p, fmt.Errorf("bad price %q: %w", row.Price, err)
	}
	if p.StockQuantity, err = parseCount(blankAsZero(row.StockQuantity)); err != nil {
		return p, fmt.Errorf("bad stock quantity %q: %w", row.StockQuantity, err)
	}
	if s := strings.TrimSpace(row.IsAvailable); s != "" {
		if p.IsAvailable, err = cast.ToBoolE(s); err != nil {
			return p, fmt.Errorf("bad availability %q: %w", row.IsAvailable, err)
		}
	}
	if s := strings.TrimSpace(row.OriginalPrice); s != "" {
		v, err := cast.ToFloat64E(s)
		if err != nil {
			return p, fmt.Errorf("bad original price %q: %w", row.OriginalPrice, err)
		}
		p.OriginalPrice = &v
	}
	if s := strings.TrimSpace(row.DiscountPercent); s != "" {
		v, err := parseCount(s)
		if err != nil {
			return p, fmt.Errorf("bad discount %q: %w", row.DiscountPercent, err)
		}
		p.DiscountPercent = &v
	}
	for _, u := range strings.Split(row.ImageURLs, "|") {
		if u = strings.TrimSpace(u); u != "" {
			p.ImageURLs = append(p.ImageURLs, u)
		}
	}
	if p.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return p, err
	}
	return p, nil
}

func blankAsZero(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "0"
	}
	return s
}

// parseTime accepts any common date layout. Blank means now.
func parseTime(s string) (time.Time, error) {
	if s = strings.TrimSpace(s); s == "" {
		return time.Now().UTC(), nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t.UTC(), nil
}
