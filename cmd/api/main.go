package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/cropchain/cropchain-backend/api/controllers"
	"github.com/cropchain/cropchain-backend/api/routes"
	"github.com/cropchain/cropchain-backend/internal/cart"
	"github.com/cropchain/cropchain-backend/internal/checkout"
	"github.com/cropchain/cropchain-backend/internal/i18n"
	"github.com/cropchain/cropchain-backend/internal/notifications"
	"github.com/cropchain/cropchain-backend/internal/orders"
	pkgAuth "github.com/cropchain/cropchain-backend/pkg/auth"
	"github.com/cropchain/cropchain-backend/pkg/config"
	"github.com/cropchain/cropchain-backend/pkg/db"
	"github.com/cropchain/cropchain-backend/pkg/docstore"
	"github.com/cropchain/cropchain-backend/pkg/docstore/fsstore"
	"github.com/cropchain/cropchain-backend/pkg/docstore/sqlstore"
	"github.com/cropchain/cropchain-backend/pkg/env"
	"github.com/cropchain/cropchain-backend/pkg/instance"
	"github.com/cropchain/cropchain-backend/pkg/logger"
	"github.com/cropchain/cropchain-backend/pkg/metrics"
	"github.com/cropchain/cropchain-backend/pkg/migrate"
	"github.com/cropchain/cropchain-backend/pkg/redis"
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
		InstanceID:  instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	readiness := map[string]controllers.Pinger{}

	store, err := openDocStore(ctx, cfg, logg, &closers, readiness)
	if err != nil {
		return fmt.Errorf("bootstrap document store: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	closers = append(closers, redisClient)
	readiness["redis"] = redisClient

	verifier, err := pkgAuth.NewVerifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap %s auth: %w", cfg.Auth.Provider, err)
	}

	catalog, err := i18n.Load(cfg.I18n.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	cartRepo, err := cart.NewRedisRepository(redisClient, cfg.Cart.TTL)
	if err != nil {
		return fmt.Errorf("create cart repository: %w", err)
	}
	cartService, err := cart.NewService(cartRepo, logg)
	if err != nil {
		return fmt.Errorf("create cart service: %w", err)
	}

	checkoutService, err := checkout.NewService(store, metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		return fmt.Errorf("create checkout service: %w", err)
	}

	ordersService, err := orders.NewService(store)
	if err != nil {
		return fmt.Errorf("create orders service: %w", err)
	}

	renderer, err := notifications.NewRenderer(catalog)
	if err != nil {
		return fmt.Errorf("create notification renderer: %w", err)
	}
	notificationsService, err := notifications.NewService(store, renderer, logg)
	if err != nil {
		return fmt.Errorf("create notifications service: %w", err)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"docstore": cfg.DocStore.Driver,
		"auth":     cfg.Auth.Provider,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			verifier,
			readiness,
			redisClient,
			prometheus.DefaultGatherer,
			catalog,
			cartService,
			checkoutService,
			ordersService,
			notificationsService,
		),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case serveErr := <-errCh:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", serveErr)
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(serverCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// openDocStore builds the configured document store and registers it for
// readiness checks and shutdown.
func openDocStore(ctx context.Context, cfg *config.Config, logg *logger.Logger, closers *[]io.Closer, readiness map[string]controllers.Pinger) (docstore.Store, error) {
	if cfg.DocStore.UsesFirestore() {
		store, err := fsstore.New(ctx, cfg.Firestore, logg)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, store)
		readiness["firestore"] = store
		return store, nil
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, dbClient)
	readiness["database"] = dbClient

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return nil, err
	}
	store, err := sqlstore.New(dbClient.DB(), dbClient)
	if err != nil {
		return nil, err
	}
	return store, nil
}
