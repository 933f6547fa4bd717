package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tiendamx/tienda-backend/api/routes"
	"github.com/tiendamx/tienda-backend/internal/accounting"
	"github.com/tiendamx/tienda-backend/internal/adminusers"
	authsvc "github.com/tiendamx/tienda-backend/internal/auth"
	"github.com/tiendamx/tienda-backend/internal/cart"
	"github.com/tiendamx/tienda-backend/internal/catalog"
	"github.com/tiendamx/tienda-backend/internal/categories"
	checkoutsvc "github.com/tiendamx/tienda-backend/internal/checkout"
	"github.com/tiendamx/tienda-backend/internal/customers"
	"github.com/tiendamx/tienda-backend/internal/media"
	"github.com/tiendamx/tienda-backend/internal/orders"
	"github.com/tiendamx/tienda-backend/internal/products"
	mercadopagowebhook "github.com/tiendamx/tienda-backend/internal/webhooks/mercadopago"
	"github.com/tiendamx/tienda-backend/pkg/cloudinary"
	"github.com/tiendamx/tienda-backend/pkg/config"
	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/mercadopago"
	"github.com/tiendamx/tienda-backend/pkg/metrics"
	"github.com/tiendamx/tienda-backend/pkg/migrate"
	"github.com/tiendamx/tienda-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	mpClient, err := mercadopago.NewClient(context.Background(), cfg.MercadoPago, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercadopago client", err)
		os.Exit(1)
	}

	cloudinaryClient, err := cloudinary.NewClient(context.Background(), cfg.Cloudinary, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cloudinary client", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(dbClient.DB())
	categoryRepo := categories.NewRepository(dbClient.DB())
	customerRepo := customers.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	accountingRepo := accounting.NewRepository(dbClient.DB())
	adminRepo := adminusers.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(productRepo, categoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		productRepo,
		customerRepo,
		orderRepo,
		mpClient,
		cfg.MercadoPago,
		cfg.App.PublicBaseURL,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}
	categoryService, err := categories.NewService(categoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}
	productService, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}
	orderService, err := orders.NewService(orderRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	accountingService, err := accounting.NewService(dbClient, accountingRepo, productRepo, cfg.Accounting, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounting service", err)
		os.Exit(1)
	}
	mediaService, err := media.NewService(cloudinaryClient, cfg.Media, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}
	authService, err := authsvc.NewService(
		adminRepo,
		redisClient,
		cfg.App,
		cfg.JWT,
		cfg.Password,
		cfg.AuthRateLimit,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	webhookGuard, err := mercadopagowebhook.NewIdempotencyGuard(redisClient, cfg.MercadoPago.WebhookIdempotencyTTL, "mercadopago")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}
	webhookService, err := mercadopagowebhook.NewService(mercadopagowebhook.ServiceParams{
		Guard:             webhookGuard,
		Provider:          mpClient,
		OrderRepo:         orderRepo,
		ProductRepo:       productRepo,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Registry:   registry,
			HTTPStats:  metrics.NewHTTPMetrics(registry),
			Webhooks:   metrics.NewWebhookMetrics(registry),
			Catalog:    catalogService,
			Cart:       cartService,
			Checkout:   checkoutService,
			Auth:       authService,
			Categories: categoryService,
			Products:   productService,
			Orders:     orderService,
			Accounting: accountingService,
			Media:      mediaService,
			Webhook:    webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
