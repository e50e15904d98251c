package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/phenomboxing/storefront/api/routes"
	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/internal/cart/storage"
	"github.com/phenomboxing/storefront/internal/catalog"
	"github.com/phenomboxing/storefront/internal/checkout"
	"github.com/phenomboxing/storefront/internal/orders"
	"github.com/phenomboxing/storefront/pkg/config"
	"github.com/phenomboxing/storefront/pkg/db"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/mercadopago"
	"github.com/phenomboxing/storefront/pkg/metrics"
	"github.com/phenomboxing/storefront/pkg/migrate"
	"github.com/phenomboxing/storefront/pkg/redis"
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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
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

	// redis is optional unless it backs the carts
	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	storageDeps := storage.Deps{DB: dbClient.DB()}
	if redisClient != nil {
		storageDeps.Redis = redisClient
	}
	factory, err := storage.NewFactory(cfg.Cart, storageDeps)
	if err != nil {
		logg.Error(context.Background(), "failed to configure cart storage", err)
		os.Exit(1)
	}
	carts := cart.NewRegistry(factory, cart.RegistryOptions{
		Logger:      logg,
		Metrics:     metrics.NewCartMetrics(reg),
		SaveTimeout: cfg.Cart.SaveTimeout,
	})

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	// without a token the checkout surface answers 503 instead of refusing to boot
	var gateway *mercadopago.Client
	if cfg.MercadoPago.AccessToken != "" {
		gateway, err = mercadopago.NewClient(cfg.MercadoPago.AccessToken, mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL))
		if err != nil {
			logg.Error(context.Background(), "failed to create mercadopago client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "mercadopago access token not set, checkout is disabled")
	}

	checkoutService, err := checkout.NewService(checkout.Params{
		Repo:        checkout.NewRepository(dbClient.DB()),
		Gateway:     gateway,
		Carts:       carts,
		MercadoPago: cfg.MercadoPago,
		Checkout:    cfg.Checkout,
		Metrics:     metrics.NewCheckoutMetrics(reg),
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	deps := routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Carts:          carts,
		Catalog:        catalogService,
		Checkout:       checkoutService,
		Orders:         orderService,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if redisClient != nil {
		deps.Redis = redisClient
		deps.Idempotency = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"cart_backend": cfg.Cart.NormalizedBackend(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweepCarts(gctx, logg, carts, cfg.App.CartIdleTimeout)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "shutting down api server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if closeErr := carts.Close(shutdownCtx); closeErr != nil {
			logg.Error(ctx, "failed to flush carts", closeErr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

// sweepCarts evicts carts idle for longer than idle. Their last snapshot is
// already persisted, so an evicted session rehydrates on its next request.
func sweepCarts(ctx context.Context, logg *logger.Logger, carts *cart.Registry, idle time.Duration) {
	if idle <= 0 {
		return
	}
	interval := idle / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped, err := carts.Sweep(ctx, idle)
			if err != nil {
				logg.WarnErr(ctx, "cart sweep finished with errors", err)
			}
			if dropped > 0 {
				logg.Debug(logg.WithField(ctx, "dropped", dropped), "idle carts evicted")
			}
		}
	}
}
