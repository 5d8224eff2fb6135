package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/beadprep/internal/domain"
)

// RunResponse — ответ с run.
type RunResponse struct {
	ID         uuid.UUID        `json:"id"`
	Params     domain.Params    `json:"params"`
	Columns    int              `json:"columns"`
	Status     domain.RunStatus `json:"status"`
	Phase      domain.Phase     `json:"phase,omitempty"`
	Driver     string           `json:"driver"`
	Profile    string           `json:"profile"`
	Pauses     int              `json:"pauses"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	DurationMS int64            `json:"duration_ms,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Params:     r.Params,
		Columns:    r.Params.Columns(),
		Status:     r.Status,
		Phase:      r.Phase,
		Driver:     r.Driver,
		Profile:    r.Profile,
		Pauses:     r.Pauses,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: r.Duration().Milliseconds(),
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
	}
}

// PhaseResponse — ответ с записью фазы.
type PhaseResponse struct {
	Phase      domain.Phase       `json:"phase"`
	Ordinal    int                `json:"ordinal"`
	Status     domain.PhaseStatus `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	DurationMS int64              `json:"duration_ms,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// PhaseFromDomain конвертирует domain.PhaseRecord в PhaseResponse.
func PhaseFromDomain(p domain.PhaseRecord) PhaseResponse {
	return PhaseResponse{
		Phase:      p.Phase,
		Ordinal:    p.Ordinal,
		Status:     p.Status,
		StartedAt:  p.StartedAt,
		FinishedAt: p.FinishedAt,
		DurationMS: p.Duration().Milliseconds(),
		Error:      p.Error,
	}
}
