package domain

import "fmt"

// Phase — имя фазы протокола очистки.
type Phase string

// Фазы в порядке выполнения.
const (
	PhaseSetup        Phase = "setup"
	PhaseBeadBinding  Phase = "bead_binding"
	PhaseCapture      Phase = "magnetic_capture"
	PhaseRemoval      Phase = "supernatant_removal"
	PhaseWash         Phase = "wash"
	PhaseElution      Phase = "elution"
	PhaseTransfer     Phase = "release_transfer"
	PhaseFinalization Phase = "finalization"
)

// phaseOrder — порядок фаз. Фаза не начинается, пока не завершена предыдущая.
var phaseOrder = []Phase{
	PhaseSetup,
	PhaseBeadBinding,
	PhaseCapture,
	PhaseRemoval,
	PhaseWash,
	PhaseElution,
	PhaseTransfer,
	PhaseFinalization,
}

// Phases возвращает все фазы в порядке выполнения.
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// Ordinal возвращает номер фазы (начиная с 1) или 0 для неизвестной.
func (p Phase) Ordinal() int {
	for i, ph := range phaseOrder {
		if ph == p {
			return i + 1
		}
	}
	return 0
}

// String возвращает строковое представление Phase.
func (p Phase) String() string {
	return string(p)
}

// ParsePhase парсит имя фазы.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if p.Ordinal() == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownPhase, s)
	}
	return p, nil
}
