package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/virtualmandi/mandi-backend/api/controllers"
	"github.com/virtualmandi/mandi-backend/api/middleware"
	"github.com/virtualmandi/mandi-backend/internal/identity"
	"github.com/virtualmandi/mandi-backend/internal/marketplace"
	"github.com/virtualmandi/mandi-backend/internal/prefs"
	"github.com/virtualmandi/mandi-backend/pkg/auth/session"
	"github.com/virtualmandi/mandi-backend/pkg/config"
	"github.com/virtualmandi/mandi-backend/pkg/enums"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
	"github.com/virtualmandi/mandi-backend/pkg/metrics"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
}

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Redis          rateLimitedCache
	SessionManager sessionManager
	Identity       *identity.Manager
	Registry       *marketplace.Registry
	Prefs          prefs.Service
	HTTPMetrics    *metrics.HTTPMetrics
	PromRegistry   prometheus.Gatherer
}

type rateLimitedCache interface {
	Ping(ctx context.Context) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	if deps.PromRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.PromRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Identity, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Identity, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Identity, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))

		r.Route("/profile", func(r chi.Router) {
			r.Get("/me", controllers.ProfileMe(deps.Identity, logg))
			r.Put("/me", controllers.ProfileUpdate(deps.Identity, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.UserRoleSeller, logg)).
				Post("/", controllers.ProductsCreate(deps.Registry, logg))
			r.Get("/", controllers.ProductsList(deps.Registry, logg))
			r.Get("/mine", controllers.ProductsMine(deps.Registry, logg))
			r.Get("/nearby", controllers.ProductsNearby(deps.Registry, cfg.Geo, logg))
			r.Patch("/{productId}", controllers.ProductsUpdate(deps.Registry, logg))
			r.Delete("/{productId}", controllers.ProductsDelete(deps.Registry, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.RequestsSend(deps.Registry, logg))
			r.Get("/sent", controllers.RequestsSent(deps.Registry, logg))
			r.Get("/received", controllers.RequestsReceived(deps.Registry, logg))
			r.Patch("/{requestId}/status", controllers.RequestsDecide(deps.Registry, logg))
		})

		r.Post("/marketplace/refresh", controllers.MarketplaceRefresh(deps.Registry, logg))

		r.Route("/prefs", func(r chi.Router) {
			r.Get("/", controllers.PrefsGet(deps.Prefs, logg))
			r.Put("/language", controllers.PrefsSetLanguage(deps.Prefs, logg))
		})
	})

	return r
}
