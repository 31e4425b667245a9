package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *APIHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/monitors/{group}", h.GetMonitor)
		r.Put("/monitors/{group}/devices/{slaveID}/range", h.SetTimeRange)
		r.Get("/worklogs", h.ListWorkLogs)
	})

	r.Get("/ws", h.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
