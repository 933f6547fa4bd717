package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	accountingsvc "github.com/tiendamx/tienda-backend/internal/accounting"
	authsvc "github.com/tiendamx/tienda-backend/internal/auth"
	cartsvc "github.com/tiendamx/tienda-backend/internal/cart"
	catalogsvc "github.com/tiendamx/tienda-backend/internal/catalog"
	"github.com/tiendamx/tienda-backend/internal/categories"
	checkoutsvc "github.com/tiendamx/tienda-backend/internal/checkout"
	mediasvc "github.com/tiendamx/tienda-backend/internal/media"
	ordersvc "github.com/tiendamx/tienda-backend/internal/orders"
	productsvc "github.com/tiendamx/tienda-backend/internal/products"
	pkgAuth "github.com/tiendamx/tienda-backend/pkg/auth"
	"github.com/tiendamx/tienda-backend/pkg/config"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	"github.com/tiendamx/tienda-backend/pkg/enums"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/pagination"
)

type stubCatalogService struct{}

func (stubCatalogService) ListProducts(ctx context.Context, query catalogsvc.ListQuery) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (stubCatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return &models.Product{Slug: slug}, nil
}

func (stubCatalogService) ListCategories(ctx context.Context) ([]categories.CategoryWithCount, error) {
	return []categories.CategoryWithCount{}, nil
}

type stubCartService struct{}

func (stubCartService) QuoteCart(ctx context.Context, input cartsvc.Cart) (*cartsvc.Quote, error) {
	panic("unimplemented")
}

type stubCheckoutService struct{}

func (stubCheckoutService) Checkout(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Result, error) {
	panic("unimplemented")
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, input authsvc.LoginInput) (*authsvc.Session, error) {
	panic("unimplemented")
}

func (stubAuthService) Register(ctx context.Context, input authsvc.RegisterInput) (*authsvc.AdminProfile, error) {
	panic("unimplemented")
}

type stubCategoryService struct{}

func (stubCategoryService) List(ctx context.Context) ([]categories.CategoryWithCount, error) {
	return []categories.CategoryWithCount{}, nil
}

func (stubCategoryService) Create(ctx context.Context, input categories.CreateCategoryInput) (*models.Category, error) {
	panic("unimplemented")
}

func (stubCategoryService) Update(ctx context.Context, id uuid.UUID, input categories.UpdateCategoryInput) (*models.Category, error) {
	panic("unimplemented")
}

func (stubCategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

type stubProductService struct{}

func (stubProductService) List(ctx context.Context, filter productsvc.Filter) ([]models.Product, error) {
	return []models.Product{}, nil
}

func (stubProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductService) Create(ctx context.Context, input productsvc.CreateProductInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductService) Update(ctx context.Context, id uuid.UUID, input productsvc.UpdateProductInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductService) Delete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubProductService) CreateVariant(ctx context.Context, productID uuid.UUID, input productsvc.VariantInput) (*models.ProductVariant, error) {
	panic("unimplemented")
}

func (stubProductService) UpdateVariant(ctx context.Context, variantID uuid.UUID, input productsvc.VariantInput) (*models.ProductVariant, error) {
	panic("unimplemented")
}

func (stubProductService) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	panic("unimplemented")
}

type stubOrderService struct{}

func (stubOrderService) List(ctx context.Context, filter ordersvc.ListFilter, params pagination.Params) (*ordersvc.Page, error) {
	return &ordersvc.Page{}, nil
}

func (stubOrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	panic("unimplemented")
}

type stubAccountingService struct{}

func (stubAccountingService) ListSales(ctx context.Context) ([]models.AccountingSale, error) {
	return []models.AccountingSale{}, nil
}

func (stubAccountingService) CreateSale(ctx context.Context, input accountingsvc.SaleInput) (*models.AccountingSale, error) {
	panic("unimplemented")
}

func (stubAccountingService) UpdateSale(ctx context.Context, id uuid.UUID, input accountingsvc.SaleInput) (*models.AccountingSale, error) {
	panic("unimplemented")
}

func (stubAccountingService) DeleteSale(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubAccountingService) ListExpenses(ctx context.Context) ([]models.AccountingExpense, error) {
	return []models.AccountingExpense{}, nil
}

func (stubAccountingService) CreateExpense(ctx context.Context, input accountingsvc.ExpenseInput) (*models.AccountingExpense, error) {
	panic("unimplemented")
}

func (stubAccountingService) UpdateExpense(ctx context.Context, id uuid.UUID, input accountingsvc.ExpenseInput) (*models.AccountingExpense, error) {
	panic("unimplemented")
}

func (stubAccountingService) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubAccountingService) ListExternalItems(ctx context.Context) ([]models.AccountingExternalItem, error) {
	return []models.AccountingExternalItem{}, nil
}

func (stubAccountingService) CreateExternalItem(ctx context.Context, input accountingsvc.ExternalItemInput) (*models.AccountingExternalItem, error) {
	panic("unimplemented")
}

func (stubAccountingService) DeleteExternalItem(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubAccountingService) Summary(ctx context.Context) (*accountingsvc.Summary, error) {
	return &accountingsvc.Summary{}, nil
}

type stubMediaService struct{}

func (stubMediaService) UploadImage(ctx context.Context, upload mediasvc.Upload) (*mediasvc.Asset, error) {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "tienda-test",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:     cfg,
		Logger:     logg,
		Catalog:    stubCatalogService{},
		Cart:       stubCartService{},
		Checkout:   stubCheckoutService{},
		Auth:       stubAuthService{},
		Categories: stubCategoryService{},
		Products:   stubProductService{},
		Orders:     stubOrderService{},
		Accounting: stubAccountingService{},
		Media:      stubMediaService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		AdminID: uuid.New(),
		Email:   "ops@example.com",
		Name:    "Ops",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestStorefrontRoutesArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/api/v1/products", "/api/v1/products/gorra-negra", "/api/v1/categories"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestAdminGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAdminGroupAcceptsValidJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	for _, path := range []string{
		"/api/v1/admin/orders",
		"/api/v1/admin/products",
		"/api/v1/admin/categories",
		"/api/v1/admin/accounting/summary",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestRegisterRouteHiddenInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = "production"
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for register in production got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}
