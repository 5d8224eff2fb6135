// Package mq — шина событий run поверх RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация событий секвенсора
//   - consumer.go   — потребление событий (API транслирует их в websocket)
//
// Routing key совпадает с типом события (run.started, phase.completed, ...),
// поэтому подписчик может выбрать подмножество через topic-шаблон.
//
// Exchanges:
//   - beadprep.events — события run (topic)
//   - beadprep.dlq    — недоставленные события
package mq
