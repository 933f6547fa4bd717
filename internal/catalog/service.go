package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/tiendamx/tienda-backend/internal/categories"
	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
)

// Service is the storefront read surface: only active products leave it.
type Service interface {
	ListProducts(ctx context.Context, query ListQuery) ([]models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListCategories(ctx context.Context) ([]categories.CategoryWithCount, error)
}

// ListQuery narrows the storefront listing.
type ListQuery struct {
	CategorySlug string
	Search       string
}

type service struct {
	products   products.Repository
	categories categories.Repository
}

// NewService wires the storefront catalog service.
func NewService(productRepo products.Repository, categoryRepo categories.Repository) (Service, error) {
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if categoryRepo == nil {
		return nil, fmt.Errorf("categories repository required")
	}
	return &service{products: productRepo, categories: categoryRepo}, nil
}

func (s *service) ListProducts(ctx context.Context, query ListQuery) ([]models.Product, error) {
	filter := products.Filter{Search: strings.TrimSpace(query.Search)}

	if slug := strings.TrimSpace(query.CategorySlug); slug != "" {
		category, err := s.categories.GetBySlug(ctx, slug)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
		}
		id := category.ID
		filter.CategoryID = &id
	}

	listed, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return listed, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}

	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ListCategories(ctx context.Context) ([]categories.CategoryWithCount, error) {
	rows, err := s.categories.ListWithCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}
	return rows, nil
}
