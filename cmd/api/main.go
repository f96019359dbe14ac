package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	webhookcontrollers "github.com/sandroescobar/lovemenow-sub001/api/controllers/webhooks"
	"github.com/sandroescobar/lovemenow-sub001/api/routes"
	cartsvc "github.com/sandroescobar/lovemenow-sub001/internal/cart"
	checkoutsvc "github.com/sandroescobar/lovemenow-sub001/internal/checkout"
	"github.com/sandroescobar/lovemenow-sub001/internal/discounts"
	"github.com/sandroescobar/lovemenow-sub001/internal/dispatch"
	"github.com/sandroescobar/lovemenow-sub001/internal/notifications"
	ordersvc "github.com/sandroescobar/lovemenow-sub001/internal/orders"
	product "github.com/sandroescobar/lovemenow-sub001/internal/products"
	wishlistsvc "github.com/sandroescobar/lovemenow-sub001/internal/wishlist"
	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
	"github.com/sandroescobar/lovemenow-sub001/pkg/metrics"
	"github.com/sandroescobar/lovemenow-sub001/pkg/migrate"
	"github.com/sandroescobar/lovemenow-sub001/pkg/redis"
	pkgstripe "github.com/sandroescobar/lovemenow-sub001/pkg/stripe"
	"github.com/sandroescobar/lovemenow-sub001/pkg/uber"
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient.DB()); err != nil {
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}
	intentClient := pkgstripe.NewPaymentIntentClient(stripeClient)

	var uberClient *uber.Client
	if cfg.Uber.ClientID != "" {
		uberClient, err = uber.NewClient(cfg.Uber)
		if err != nil {
			logg.Error(context.Background(), "failed to initialize uber direct", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "uber direct not configured, courier delivery disabled")
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	productRepo := product.NewRepository(dbClient.DB())
	cartRepo := cartsvc.NewRepository(dbClient.DB())
	discountRepo := discounts.NewRepository(dbClient.DB())
	wishlistRepo := wishlistsvc.NewRepository(dbClient.DB())
	orderRepo := ordersvc.NewRepository(dbClient.DB())

	productService, err := product.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}
	cartService, err := cartsvc.NewService(cartRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	discountService, err := discounts.NewService(discountRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount service", err)
		os.Exit(1)
	}
	wishlistService, err := wishlistsvc.NewService(wishlistRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	sessionStore, err := checkoutsvc.NewSessionStore(redisClient, cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout session store", err)
		os.Exit(1)
	}

	var courierQuotes interface {
		CreateQuote(ctx context.Context, req uber.QuoteRequest) (*uber.Quote, error)
	}
	var dispatcher ordersvc.Dispatcher
	if uberClient != nil {
		courierQuotes = uberClient
		coordinator, coordErr := dispatch.NewCoordinator(uberClient, orderRepo, cfg.StoreOrigin, logg)
		if coordErr != nil {
			logg.Error(context.Background(), "failed to create dispatch coordinator", coordErr)
			os.Exit(1)
		}
		dispatcher = coordinator
	}

	checkoutService, err := checkoutsvc.NewService(
		cartRepo,
		discountService,
		intentClient,
		courierQuotes,
		sessionStore,
		cfg.Checkout,
		cfg.StoreOrigin,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	notifier, err := notifications.NewService(
		notifications.NewEmailSender(cfg.Sendgrid),
		notifications.NewSlackNotifier(cfg.Slack),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	orderService, err := ordersvc.NewService(
		orderRepo,
		dbClient,
		intentClient,
		cartRepo,
		productRepo,
		sessionStore,
		dispatcher,
		notifier,
		cfg.Checkout,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Registry:     registry,
		Products:     productService,
		Cart:         cartService,
		Wishlist:     wishlistService,
		Checkout:     checkoutService,
		Orders:       orderService,
		StripeClient: stripeClient,
		WebhookGuard: webhookcontrollers.NewEventGuard(redisClient),
	})

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
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
