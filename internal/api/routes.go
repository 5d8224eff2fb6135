package api

import (
	"fmt"
	"net/http"
	"time"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /metrics", h.metrics)

	// Runs
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
	mux.Handle("GET /api/v1/runs/{id}/phases", chain(http.HandlerFunc(h.ListRunPhases)))

	// Events
	if h.hub != nil {
		mux.Handle("GET /api/v1/events", chain(http.HandlerFunc(h.hub.ServeWS)))
	}
}

// Healthz отвечает ok и временем работы.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ok %s", time.Since(h.started).Round(time.Second))
}
