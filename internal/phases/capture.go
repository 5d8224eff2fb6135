package phases

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/robot"
)

const (
	// captureDelay — выдержка до и после подъёма магнитов.
	captureDelay = 5 * time.Minute

	removalFlow = 90.0

	// removalTail — объём, добираемый у дна в несколько приёмов.
	removalTail = 5.0
)

// removalTailHeights — высоты добора остатка супернатанта, мм.
var removalTailHeights = []float64{0.5, 0.2, 0.1, 0}

// MagneticCapture собирает бусины магнитом.
type MagneticCapture struct{}

// NewMagneticCapture создаёт фазу захвата.
func NewMagneticCapture() *MagneticCapture {
	return &MagneticCapture{}
}

// Name возвращает имя фазы.
func (c *MagneticCapture) Name() domain.Phase {
	return domain.PhaseCapture
}

// Execute: выдержка, подъём магнитов, выдержка.
func (c *MagneticCapture) Execute(ctx context.Context, env *Env) error {
	deck, err := env.deck()
	if err != nil {
		return err
	}

	if err := env.delay(ctx, captureDelay, "binding incubation"); err != nil {
		return err
	}
	if err := deck.Mag.Engage(ctx); err != nil {
		return fmt.Errorf("engage: %w", err)
	}
	if err := env.delay(ctx, captureDelay, "bead capture"); err != nil {
		return err
	}

	env.phaseLogger(c.Name()).Info("beads captured")
	return nil
}

// SupernatantRemoval удаляет жидкость над бусинами.
type SupernatantRemoval struct{}

// NewSupernatantRemoval создаёт фазу удаления супернатанта.
func NewSupernatantRemoval() *SupernatantRemoval {
	return &SupernatantRemoval{}
}

// Name возвращает имя фазы.
func (s *SupernatantRemoval) Name() domain.Phase {
	return domain.PhaseRemoval
}

// Execute удаляет супернатант из каждой колонки новым наконечником.
//
// Основной объём набирается в две половины (z=5 и z=2), остаток —
// по 5 мкл всё ближе к дну. Наконечник сбрасывается вместе с жидкостью.
func (s *SupernatantRemoval) Execute(ctx context.Context, env *Env) error {
	deck, err := env.deck()
	if err != nil {
		return err
	}

	p := deck.Large
	columns := env.Params.Columns()
	half := env.Params.TotalVolume()/2 - removalTail

	for i := 1; i <= columns; i++ {
		sample := deck.Sample(i)

		if err := p.PickUpTip(ctx); err != nil {
			return columnError(i, err)
		}
		p.SetFlowRate(robot.FlowRate{Aspirate: removalFlow, Dispense: p.FlowRate().Dispense})

		if half > 0 {
			for _, z := range []float64{5, 2} {
				if err := p.Aspirate(ctx, half, sample.Bottom(z), 1); err != nil {
					return columnError(i, err)
				}
			}
		}
		for _, z := range removalTailHeights {
			if err := p.Aspirate(ctx, removalTail, sample.Bottom(z), 1); err != nil {
				return columnError(i, err)
			}
		}

		if err := p.DropTip(ctx); err != nil {
			return columnError(i, err)
		}
	}

	env.phaseLogger(s.Name()).Info("supernatant removed", "columns", columns)
	return nil
}
