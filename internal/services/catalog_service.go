package services

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/state"

	pkgerrors "github.com/pkg/errors"
)

// DefaultHomeCategoryLimit is how many categories the home view shows.
const DefaultHomeCategoryLimit = 4

// Labels used to prefix combined home errors.
const (
	LabelCategories = "Category"
	LabelProducts   = "Products"
)

// HomeData is the joint value of the landing view.
type HomeData = state.Pair[[]models.Category, []models.Product]

// CatalogService exposes categories and products as state streams.
type CatalogService struct {
	store     repositories.DocumentStore
	exec      state.Executor
	homeLimit int
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store repositories.DocumentStore, exec state.Executor, homeLimit int) *CatalogService {
	if homeLimit <= 0 {
		homeLimit = DefaultHomeCategoryLimit
	}
	return &CatalogService{
		store:     store,
		exec:      exec,
		homeLimit: homeLimit,
	}
}

func (s *CatalogService) queryCategories(ctx context.Context, q repositories.Query) ([]models.Category, error) {
	records, err := s.store.Query(ctx, repositories.CollectionCategories, q)
	if err != nil {
		return nil, err
	}
	return repositories.DecodeRecords[models.Category](records)
}

func (s *CatalogService) queryProducts(ctx context.Context, q repositories.Query) ([]models.Product, error) {
	records, err := s.store.Query(ctx, repositories.CollectionProducts, q)
	if err != nil {
		return nil, err
	}
	return repositories.DecodeRecords[models.Product](records)
}

// AllCategories loads every category once.
func (s *CatalogService) AllCategories() state.Stream[[]models.Category] {
	return state.FromCall(s.exec, func(ctx context.Context) ([]models.Category, error) {
		return s.queryCategories(ctx, repositories.Query{})
	})
}

// HomeCategories loads the first categories shown on the landing view.
func (s *CatalogService) HomeCategories() state.Stream[[]models.Category] {
	return state.FromCall(s.exec, func(ctx context.Context) ([]models.Category, error) {
		return s.queryCategories(ctx, repositories.Query{Limit: s.homeLimit})
	})
}

// AllProducts loads every product once.
func (s *CatalogService) AllProducts() state.Stream[[]models.Product] {
	return state.FromCall(s.exec, func(ctx context.Context) ([]models.Product, error) {
		return s.queryProducts(ctx, repositories.Query{})
	})
}

// ProductsByCategory follows the products of one category live.
func (s *CatalogService) ProductsByCategory(category string) state.Stream[[]models.Product] {
	return liveQuery[models.Product](s.store, repositories.CollectionProducts, repositories.Where("category", category))
}

// ProductByID loads one product. A missing product is reported as
// "Product not found".
func (s *CatalogService) ProductByID(id string) state.Stream[models.Product] {
	return state.FromCall(s.exec, func(ctx context.Context) (models.Product, error) {
		var product models.Product
		rec, err := s.store.Get(ctx, repositories.CollectionProducts, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return product, state.Message("Product not found")
			}
			return product, err
		}
		err = repositories.DecodeRecord(rec, &product)
		return product, err
	})
}

// HomeData combines the home categories with all products.
func (s *CatalogService) HomeData() state.Stream[HomeData] {
	return state.Combine2(LabelCategories, s.HomeCategories(), LabelProducts, s.AllProducts())
}

// CreateCategory validates and stores a category, returning its new ID.
func (s *CatalogService) CreateCategory(ctx context.Context, category models.Category) (string, error) {
	if err := models.Validate(category); err != nil {
		return "", err
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	doc, err := repositories.EncodeDocument(category)
	if err != nil {
		return "", err
	}
	id, err := s.store.Add(ctx, repositories.CollectionCategories, doc)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to create category %s", category.Name)
	}
	return id, nil
}

// CreateProduct validates and stores a product, returning its new ID.
func (s *CatalogService) CreateProduct(ctx context.Context, product models.Product) (string, error) {
	if err := models.Validate(product); err != nil {
		return "", err
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	doc, err := repositories.EncodeDocument(product)
	if err != nil {
		return "", err
	}
	id, err := s.store.Add(ctx, repositories.CollectionProducts, doc)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to create product %s", product.Name)
	}
	return id, nil
}

// CountCategories and CountProducts let seeding skip a populated catalog.
func (s *CatalogService) CountCategories(ctx context.Context) (int, error) {
	records, err := s.store.Query(ctx, repositories.CollectionCategories, repositories.Query{Limit: 1})
	return len(records), err
}

func (s *CatalogService) CountProducts(ctx context.Context) (int, error) {
	records, err := s.store.Query(ctx, repositories.CollectionProducts, repositories.Query{Limit: 1})
	return len(records), err
}
