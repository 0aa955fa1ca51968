package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sipico/apptokens/internal/auth"
	"github.com/sipico/apptokens/internal/logging"
	"github.com/sipico/apptokens/internal/metrics"
	"github.com/sipico/apptokens/internal/middleware"
	"github.com/sipico/apptokens/internal/session"
)

// NewRouter creates the public router.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	// Bodies are capped before the debug logger buffers them
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodySize))
	r.Use(middleware.HTTPLogging(h.logger, logging.SensitiveFields))
	r.Use(metrics.Middleware)
	r.Use(session.Middleware(h.sessions))

	// Public endpoints (no auth)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)

	// Session cookie or app password
	r.Route("/settings/personal/authtokens", func(r chi.Router) {
		r.Use(auth.BasicMiddleware(h.validator, h.logger))
		r.Use(auth.RequireUser)

		r.Get("/", h.HandleListTokens)
		r.Post("/", h.HandleCreateToken)
		r.Put("/{id}", h.HandleUpdateToken)
		r.Delete("/{id}", h.HandleDeleteToken)
	})

	return r
}

// NewInternalRouter creates the operator router served on the metrics
// listener: Prometheus metrics and runtime log level changes.
func (h *Handler) NewInternalRouter(metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)

	r.Handle("/metrics", metricsHandler)
	r.Post("/api/loglevel", h.HandleSetLogLevel)

	return r
}
