package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiendamx/tienda-backend/api/controllers"
	webhookcontrollers "github.com/tiendamx/tienda-backend/api/controllers/webhooks"
	"github.com/tiendamx/tienda-backend/api/middleware"
	accountingsvc "github.com/tiendamx/tienda-backend/internal/accounting"
	authsvc "github.com/tiendamx/tienda-backend/internal/auth"
	cartsvc "github.com/tiendamx/tienda-backend/internal/cart"
	catalogsvc "github.com/tiendamx/tienda-backend/internal/catalog"
	categorysvc "github.com/tiendamx/tienda-backend/internal/categories"
	checkoutsvc "github.com/tiendamx/tienda-backend/internal/checkout"
	mediasvc "github.com/tiendamx/tienda-backend/internal/media"
	ordersvc "github.com/tiendamx/tienda-backend/internal/orders"
	productsvc "github.com/tiendamx/tienda-backend/internal/products"
	mercadopagowebhook "github.com/tiendamx/tienda-backend/internal/webhooks/mercadopago"
	"github.com/tiendamx/tienda-backend/pkg/config"
	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/metrics"
	"github.com/tiendamx/tienda-backend/pkg/redis"
)

// RouterParams collects everything the HTTP surface needs.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Registry   *prometheus.Registry
	HTTPStats  *metrics.HTTPMetrics
	Webhooks   *metrics.WebhookMetrics
	Catalog    catalogsvc.Service
	Cart       cartsvc.Service
	Checkout   checkoutsvc.Service
	Auth       authsvc.Service
	Categories categorysvc.Service
	Products   productsvc.Service
	Orders     ordersvc.Service
	Accounting accountingsvc.Service
	Media      mediasvc.Service
	Webhook    *mercadopagowebhook.Service
}

// NewRouter builds the full route tree: public storefront endpoints, the
// payment webhook, auth, and the JWT-guarded admin surface.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPStats),
		middleware.CORS(cfg.App.PublicBaseURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.StorefrontListProducts(p.Catalog, logg))
		r.Get("/products/{slug}", controllers.StorefrontGetProduct(p.Catalog, logg))
		r.Get("/categories", controllers.StorefrontListCategories(p.Catalog, logg))

		r.Post("/cart/quote", controllers.QuoteCart(p.Cart, logg))
		r.Post("/checkout", controllers.Checkout(p.Checkout, logg))

		r.Post("/webhooks/mercadopago", webhookcontrollers.MercadoPago(p.Webhook, p.Webhooks, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", controllers.AdminLogin(p.Auth, logg))
			if !cfg.App.IsProd() {
				r.Post("/register", controllers.AdminRegister(p.Auth, logg))
			}
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.AdminListCategories(p.Categories, logg))
				r.Post("/", controllers.AdminCreateCategory(p.Categories, logg))
				r.Patch("/{id}", controllers.AdminUpdateCategory(p.Categories, logg))
				r.Delete("/{id}", controllers.AdminDeleteCategory(p.Categories, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.AdminListProducts(p.Products, logg))
				r.Post("/", controllers.AdminCreateProduct(p.Products, logg))
				r.Get("/{id}", controllers.AdminGetProduct(p.Products, logg))
				r.Patch("/{id}", controllers.AdminUpdateProduct(p.Products, logg))
				r.Delete("/{id}", controllers.AdminDeleteProduct(p.Products, logg))
				r.Post("/{id}/variants", controllers.AdminCreateVariant(p.Products, logg))
			})
			r.Route("/variants", func(r chi.Router) {
				r.Patch("/{variantId}", controllers.AdminUpdateVariant(p.Products, logg))
				r.Delete("/{variantId}", controllers.AdminDeleteVariant(p.Products, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(p.Orders, logg))
				r.Get("/{id}", controllers.AdminGetOrder(p.Orders, logg))
				r.Patch("/{id}/status", controllers.AdminUpdateOrderStatus(p.Orders, logg))
			})

			r.Route("/accounting", func(r chi.Router) {
				r.Get("/summary", controllers.AdminAccountingSummary(p.Accounting, logg))
				r.Route("/sales", func(r chi.Router) {
					r.Get("/", controllers.AdminListSales(p.Accounting, logg))
					r.Post("/", controllers.AdminCreateSale(p.Accounting, logg))
					r.Patch("/{id}", controllers.AdminUpdateSale(p.Accounting, logg))
					r.Delete("/{id}", controllers.AdminDeleteSale(p.Accounting, logg))
				})
				r.Route("/expenses", func(r chi.Router) {
					r.Get("/", controllers.AdminListExpenses(p.Accounting, logg))
					r.Post("/", controllers.AdminCreateExpense(p.Accounting, logg))
					r.Patch("/{id}", controllers.AdminUpdateExpense(p.Accounting, logg))
					r.Delete("/{id}", controllers.AdminDeleteExpense(p.Accounting, logg))
				})
				r.Route("/external-items", func(r chi.Router) {
					r.Get("/", controllers.AdminListExternalItems(p.Accounting, logg))
					r.Post("/", controllers.AdminCreateExternalItem(p.Accounting, logg))
					r.Delete("/{id}", controllers.AdminDeleteExternalItem(p.Accounting, logg))
				})
			})

			r.Post("/media/images", controllers.AdminUploadImage(p.Media, logg))
		})
	})

	return r
}
