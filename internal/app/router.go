package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tavola-pos/tavola/internal/fulfillment"
	"github.com/tavola-pos/tavola/internal/menu"
	"github.com/tavola-pos/tavola/internal/notify"
	"github.com/tavola-pos/tavola/internal/observability"
	"github.com/tavola-pos/tavola/internal/orders"
	"github.com/tavola-pos/tavola/internal/tables"
	"github.com/tavola-pos/tavola/jobs"
)

// RouterConfig collects every handler the HTTP surface mounts.
type RouterConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	Orders      *orders.Handler
	Fulfillment *fulfillment.Handler
	Menu        *menu.Handler
	Tables      *tables.Handler
	Notify      *notify.Handler
	Jobs        *jobs.Handler
}

// NewRouter assembles the HTTP surface. Staff terminals and the kitchen
// display use /api; guest terminals use the rate-limited /guest routes.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: cfg.Logger, Config: cfg.Config, Metrics: cfg.Metrics}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		if cfg.Orders != nil {
			cfg.Orders.MountRoutes(api)
		}
		if cfg.Fulfillment != nil {
			cfg.Fulfillment.MountRoutes(api)
		}
		if cfg.Menu != nil {
			cfg.Menu.MountRoutes(api)
		}
		if cfg.Tables != nil {
			cfg.Tables.MountRoutes(api)
		}
		if cfg.Jobs != nil {
			api.Route("/jobs", cfg.Jobs.MountRoutes)
		}
	})

	r.Route("/guest", func(guest chi.Router) {
		guest.Use(GuestRateLimiter(cfg.Config))
		if cfg.Menu != nil {
			cfg.Menu.MountGuestRoutes(guest)
		}
		if cfg.Tables != nil {
			cfg.Tables.MountGuestRoutes(guest)
		}
		if cfg.Orders != nil {
			cfg.Orders.MountGuestRoutes(guest)
		}
	})

	if cfg.Notify != nil {
		cfg.Notify.MountRoutes(r)
	}

	return r
}
