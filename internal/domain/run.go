package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск протокола очистки на роботе.
//
// Run создаётся секвенсором перед загрузкой деки и обновляется
// на каждом переходе между фазами. Запись хранится в журнале
// (см. пакет repo) и отдаётся через API.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Params — параметры запуска.
	Params Params `json:"params"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Phase — текущая (или последняя выполненная) фаза.
	Phase Phase `json:"phase,omitempty"`

	// Driver — имя драйвера робота ("sim", ...).
	Driver string `json:"driver"`

	// Profile — имя калибровочного профиля планшета.
	Profile string `json:"profile"`

	// Pauses — сколько раз run приостанавливался из-за открытой двери.
	Pauses int `json:"pauses"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED или CANCELLED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(params Params, driver, profile string) *Run {
	return &Run{
		ID:        uuid.New(),
		Params:    params,
		Status:    RunStatusPending,
		Driver:    driver,
		Profile:   profile,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// EnterPhase фиксирует начало фазы.
func (r *Run) EnterPhase(p Phase) {
	r.Phase = p
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled(reason string) {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.Error = reason
}

// PhaseRecord — запись журнала о выполнении одной фазы.
type PhaseRecord struct {
	RunID      uuid.UUID   `json:"run_id"`
	Phase      Phase       `json:"phase"`
	Ordinal    int         `json:"ordinal"`
	Status     PhaseStatus `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// NewPhaseRecord создаёт запись о начале фазы.
func NewPhaseRecord(runID uuid.UUID, p Phase) *PhaseRecord {
	return &PhaseRecord{
		RunID:     runID,
		Phase:     p,
		Ordinal:   p.Ordinal(),
		Status:    PhaseStatusRunning,
		StartedAt: time.Now(),
	}
}

// Finish завершает фазу. err == nil означает успех.
func (r *PhaseRecord) Finish(err error) {
	now := time.Now()
	r.FinishedAt = &now
	if err != nil {
		r.Status = PhaseStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = PhaseStatusSucceeded
}

// Duration возвращает продолжительность фазы.
func (r *PhaseRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
