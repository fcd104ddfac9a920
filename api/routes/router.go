package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cropchain/cropchain-backend/api/controllers"
	cartcontrollers "github.com/cropchain/cropchain-backend/api/controllers/cart"
	ordercontrollers "github.com/cropchain/cropchain-backend/api/controllers/orders"
	"github.com/cropchain/cropchain-backend/api/middleware"
	"github.com/cropchain/cropchain-backend/internal/cart"
	checkoutsvc "github.com/cropchain/cropchain-backend/internal/checkout"
	"github.com/cropchain/cropchain-backend/internal/i18n"
	"github.com/cropchain/cropchain-backend/internal/notifications"
	"github.com/cropchain/cropchain-backend/internal/orders"
	pkgAuth "github.com/cropchain/cropchain-backend/pkg/auth"
	"github.com/cropchain/cropchain-backend/pkg/config"
	"github.com/cropchain/cropchain-backend/pkg/logger"
	pkgredis "github.com/cropchain/cropchain-backend/pkg/redis"
)

// KeyValueStore backs request idempotency and rate limiting.
type KeyValueStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	verifier pkgAuth.Verifier,
	readiness map[string]controllers.Pinger,
	kv KeyValueStore,
	gatherer prometheus.Gatherer,
	catalog *i18n.Catalog,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
		middleware.Logging(logg),
		middleware.Language(catalog, logg),
	)

	// a nil interface keeps idempotency and rate limiting switched off
	var idem pkgredis.IdempotencyStore
	var limiter interface {
		FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	}
	if kv != nil {
		idem, limiter = kv, kv
	}

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(verifier, logg))
		r.Use(middleware.Idempotency(idem, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(cartService, catalog, logg))
			r.Delete("/", cartcontrollers.Clear(cartService, catalog, logg))
			r.Post("/items", cartcontrollers.AddItem(cartService, catalog, logg))
			r.Patch("/items/{itemId}", cartcontrollers.UpdateItem(cartService, catalog, logg))
			r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(cartService, catalog, logg))
		})

		r.With(middleware.RateLimit(checkoutPolicy, limiter, logg)).
			Post("/checkout", controllers.Checkout(checkoutService, cartService, catalog, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, catalog, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})
	})

	return r
}
