// Package transport assembles the HTTP router from the per-domain handlers.
package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pitchside/internal/platform/middleware"
	"pitchside/internal/transport/shared"
)

const requestTimeout = 15 * time.Second

// Registrar is implemented by every domain handler that mounts routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of an external dependency.
type HealthChecker func() error

// NewRouter builds the full route tree. The live handler is mounted outside
// the request timeout middleware because its stream stays open indefinitely.
func NewRouter(logger *slog.Logger, live Registrar, health HealthChecker, timed ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": err.Error(),
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	live.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		for _, h := range timed {
			h.Register(r)
		}
	})

	return r
}
