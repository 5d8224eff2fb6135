// Package telemetry обеспечивает наблюдаемость протокола.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики прогонов
//
// Раннер и API используют единый формат логирования;
// метрики отдаются на /metrics (API всегда, раннер — при METRICS_ADDR).
package telemetry
