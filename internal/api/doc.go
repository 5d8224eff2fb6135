// Package api — HTTP API журнала прогонов.
//
// Маршруты:
//   - GET /healthz                   — liveness
//   - GET /metrics                   — Prometheus
//   - GET /api/v1/runs               — история runs (?status=&limit=&offset=)
//   - GET /api/v1/runs/{id}          — один run
//   - GET /api/v1/runs/{id}/phases   — фазы run
//   - GET /api/v1/events             — websocket с живыми событиями
//
// Ответы обёрнуты в {"data": ...} или {"error": {"code", "message"}}.
package api
