package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/internal/categories"
	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
)

type fakeProductRepo struct {
	products.Repository
	bySlug     map[string]*models.Product
	lastFilter products.Filter
	listed     []models.Product
}

func (f *fakeProductRepo) List(_ context.Context, filter products.Filter) ([]models.Product, error) {
	f.lastFilter = filter
	return f.listed, nil
}

func (f *fakeProductRepo) GetBySlug(_ context.Context, slug string) (*models.Product, error) {
	product, ok := f.bySlug[slug]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

type fakeCategoryRepo struct {
	categories.Repository
	bySlug map[string]*models.Category
	rows   []categories.CategoryWithCount
}

func (f *fakeCategoryRepo) GetBySlug(_ context.Context, slug string) (*models.Category, error) {
	category, ok := f.bySlug[slug]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return category, nil
}

func (f *fakeCategoryRepo) ListWithCounts(_ context.Context) ([]categories.CategoryWithCount, error) {
	return f.rows, nil
}

func TestListProductsFiltersByCategorySlug(t *testing.T) {
	categoryID := uuid.New()
	productRepo := &fakeProductRepo{listed: []models.Product{{Name: "Playera"}}}
	categoryRepo := &fakeCategoryRepo{bySlug: map[string]*models.Category{
		"playeras": {ID: categoryID, Name: "Playeras", Slug: "playeras"},
	}}

	svc, err := NewService(productRepo, categoryRepo)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	listed, err := svc.ListProducts(context.Background(), ListQuery{CategorySlug: "playeras", Search: " gorra "})
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d products", len(listed))
	}
	if productRepo.lastFilter.CategoryID == nil || *productRepo.lastFilter.CategoryID != categoryID {
		t.Errorf("category filter = %v", productRepo.lastFilter.CategoryID)
	}
	if productRepo.lastFilter.Search != "gorra" {
		t.Errorf("search filter = %q", productRepo.lastFilter.Search)
	}
	if productRepo.lastFilter.IncludeInactive {
		t.Error("storefront must never list inactive products")
	}
}

func TestListProductsUnknownCategory(t *testing.T) {
	svc, _ := NewService(&fakeProductRepo{}, &fakeCategoryRepo{bySlug: map[string]*models.Category{}})

	_, err := svc.ListProducts(context.Background(), ListQuery{CategorySlug: "nope"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetProductBySlugHidesInactive(t *testing.T) {
	productRepo := &fakeProductRepo{bySlug: map[string]*models.Product{
		"retirada": {Name: "Retirada", Slug: "retirada", IsActive: false},
		"activa":   {Name: "Activa", Slug: "activa", IsActive: true},
	}}
	svc, _ := NewService(productRepo, &fakeCategoryRepo{})

	if _, err := svc.GetProductBySlug(context.Background(), "activa"); err != nil {
		t.Fatalf("active product: %v", err)
	}

	_, err := svc.GetProductBySlug(context.Background(), "retirada")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("inactive product must look missing, got %v", err)
	}
}

func TestGetProductBySlugBlank(t *testing.T) {
	svc, _ := NewService(&fakeProductRepo{}, &fakeCategoryRepo{})
	_, err := svc.GetProductBySlug(context.Background(), "  ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
