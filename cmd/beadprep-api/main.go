// beadprep-api — HTTP API журнала прогонов и поток событий.
//
// API:
//   - читает историю runs из журнала (PostgreSQL или SQLite)
//   - потребляет события из RabbitMQ и транслирует их в websocket
//   - отдаёт /healthz и /metrics
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/beadprep/internal/api"
	"github.com/shaiso/beadprep/internal/config"
	"github.com/shaiso/beadprep/internal/mq"
	"github.com/shaiso/beadprep/internal/repo"
	"github.com/shaiso/beadprep/internal/telemetry"
)

var reqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "beadprep_api_http_requests_total",
	Help: "Total HTTP requests handled by beadprep-api",
}, []string{"method"})

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting beadprep-api")

	env, err := config.FromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := repo.Open(ctx, repo.Config{
		DatabaseURL: env.DatabaseURL,
		SQLitePath:  env.SQLitePath,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to open journal", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	hub := api.NewHub(logger)
	defer hub.Close()

	// Без брокера API отдаёт только историю
	if env.RabbitMQURL != "" {
		conn, err := mq.Dial(env.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, live events disabled", "error", err)
		} else {
			defer conn.Close()

			if err := mq.SetupTopology(ctx, conn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			logger.Debug(mq.TopologyInfo())

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Queue:   mq.QueueEventsAPI,
				Handler: mq.EventHandler(hub.HandleEvent),
			})
			go func() {
				if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("event consumer stopped", "error", err)
				}
			}()
			defer consumer.Stop()
		}
	}

	handler := api.NewHandler(api.Config{
		Store:   store,
		Hub:     hub,
		Metrics: promhttp.Handler(),
		Logger:  logger,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr: env.APIAddr(),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqTotal.WithLabelValues(r.Method).Inc()
			mux.ServeHTTP(w, r)
		}),
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Websocket-соединения закрываются hub, Shutdown их не ждёт
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
