// Package sequencer выполняет протокол очистки от начала до конца.
//
// Sequencer:
//   - Проверяет параметры и создаёт запись run
//   - Запускает монитор двери
//   - Выполняет фазы строго по порядку
//   - Журналирует run и фазы, публикует события, пишет метрики
//   - Финализирует run (SUCCEEDED/FAILED/CANCELLED)
//
// Повторов нет: первая ошибка драйвера прерывает run. Журнал и шина
// событий необязательны, их ошибки только логируются.
package sequencer
