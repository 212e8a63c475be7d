package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/marketplace/internal/health"
)

// Handler регистрирует свои маршруты на роутере.
type Handler interface {
	Register(r chi.Router)
}

// NewRouter собирает HTTP-роутер сервиса: стандартные middleware, health
// probes и маршруты переданных handler-ов.
func NewRouter(healthHandler *health.Handler, handlers ...Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if healthHandler != nil {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Get("/health/live", health.LivenessHandler)
		r.Get("/health/ready", healthHandler.ReadinessHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		for _, h := range handlers {
			h.Register(api)
		}
	})

	return r
}
