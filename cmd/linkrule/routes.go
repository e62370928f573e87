package main

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-linkrule/pkg/config"
	"github.com/tendant/simple-linkrule/pkg/linkflow"
	linkapi "github.com/tendant/simple-linkrule/pkg/linkflow/api"
	"github.com/tendant/simple-linkrule/pkg/ratelimit"
)

// mountRoutes registers the health checks and the link routes under the
// configured prefix. The rate limiter sweeper stops with ctx.
func mountRoutes(ctx context.Context, r *chi.Mux, cfg *config.Config, reconciler *linkflow.Reconciler) {
	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)

	handler := linkapi.NewHandler(reconciler)
	r.Route(cfg.RoutePrefix, func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			limiter := ratelimit.NewMiddleware(ratelimit.Config{
				Capacity:       cfg.RateLimit.Capacity,
				RefillRate:     cfg.RateLimit.RefillRate,
				BucketTTL:      ratelimit.DefaultConfig().BucketTTL,
				IncludeHeaders: true,
			})
			go limiter.Limiter().Run(ctx)
			r.Use(limiter.Handler)
			slog.Info("Rate limiting configured", "capacity", cfg.RateLimit.Capacity, "refill_rate", cfg.RateLimit.RefillRate)
		}
		handler.RegisterRoutes(r)
	})
}
