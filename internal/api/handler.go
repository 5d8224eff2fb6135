package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/beadprep/internal/repo"
)

// Handler — обработчик API с зависимостями.
type Handler struct {
	store   repo.Store
	hub     *Hub
	metrics http.Handler
	logger  *slog.Logger
	started time.Time
}

// Config — конфигурация Handler.
type Config struct {
	// Store — журнал runs.
	Store repo.Store

	// Hub — трансляция событий в websocket. Nil отключает /api/v1/events.
	Hub *Hub

	// Metrics — обработчик /metrics (default: promhttp.Handler()).
	Metrics http.Handler

	Logger *slog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	return &Handler{
		store:   cfg.Store,
		hub:     cfg.Hub,
		metrics: metrics,
		logger:  logger,
		started: time.Now(),
	}
}
