// Package cli реализует инструмент командной строки beadprep.
//
// # Обзор
//
// Команды делятся на две группы:
//   - локальные (run, plan, height, profiles) — выполняют протокол на
//     драйвере робота или считают план без HTTP;
//   - удалённые (history, watch) — клиент beadprep-api.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент API: история runs, фазы, websocket-поток событий.
//
//	client := cli.NewClient("http://localhost:8090")
//	runs, err := client.ListRuns(cli.ListRunsOpts{Status: "FAILED"})
//
// ## Output
//
// Таблицы (text/tabwriter) по умолчанию или JSON с флагом --json.
// Данные идут в stdout, сообщения (Success/Error) — в stderr, поэтому
// работает pipe: beadprep history list --json | jq .
//
// Каждая группа команд создаётся фабрикой (NewHistoryCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после разбора PersistentFlags.
package cli
