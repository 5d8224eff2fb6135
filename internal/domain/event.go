package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType — тип события run.
type EventType string

// Типы событий.
const (
	EventRunStarted     EventType = "run.started"
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"
	EventRunPaused      EventType = "run.paused"
	EventRunResumed     EventType = "run.resumed"
	EventRunSucceeded   EventType = "run.succeeded"
	EventRunFailed      EventType = "run.failed"
	EventRunCancelled   EventType = "run.cancelled"
)

// Event — событие run, публикуемое в шину и транслируемое в API.
type Event struct {
	Type      EventType `json:"type"`
	RunID     uuid.UUID `json:"run_id"`
	Phase     Phase     `json:"phase,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent создаёт событие с текущим временем.
func NewEvent(t EventType, runID uuid.UUID, phase Phase, msg string) Event {
	return Event{
		Type:      t,
		RunID:     runID,
		Phase:     phase,
		Message:   msg,
		Timestamp: time.Now(),
	}
}

// TerminalEvent возвращает тип финального события для статуса run.
func TerminalEvent(s RunStatus) EventType {
	switch s {
	case RunStatusSucceeded:
		return EventRunSucceeded
	case RunStatusCancelled:
		return EventRunCancelled
	default:
		return EventRunFailed
	}
}
