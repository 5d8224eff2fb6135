package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	          (или) → CANCELLED (из PENDING или RUNNING)
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — run успешно завершён.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — run прерван ошибкой драйвера.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — процесс остановлен оператором.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// ParseRunStatus парсит строку в RunStatus.
// Возвращает false для неизвестного значения.
func ParseRunStatus(s string) (RunStatus, bool) {
	switch RunStatus(s) {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return RunStatus(s), true
	default:
		return "", false
	}
}

// PhaseStatus — статус выполнения фазы.
//
// Жизненный цикл:
//
//	RUNNING → SUCCEEDED
//	        ↘ FAILED
type PhaseStatus string

const (
	// PhaseStatusRunning — фаза выполняется.
	PhaseStatusRunning PhaseStatus = "RUNNING"

	// PhaseStatusSucceeded — фаза завершена.
	PhaseStatusSucceeded PhaseStatus = "SUCCEEDED"

	// PhaseStatusFailed — фаза прервана ошибкой.
	PhaseStatusFailed PhaseStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s PhaseStatus) IsTerminal() bool {
	return s == PhaseStatusSucceeded || s == PhaseStatusFailed
}
