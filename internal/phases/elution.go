package phases

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/liquid"
	"github.com/shaiso/beadprep/internal/robot"
)

var elutionFlow = robot.FlowRate{Aspirate: 120, Dispense: 120}

const (
	// dryDelay — подсушивание бусин после удаления этанола.
	dryDelay = 5 * time.Minute

	bufferAspirateZ = 3.0

	elutionMixReps = 30
	elutionMixAsp  = 0.4
	elutionMixDisp = 1.5
)

// Elution подсушивает бусины, опускает магниты и ресуспендирует
// бусины в элюирующем буфере.
type Elution struct{}

// NewElution создаёт фазу элюирования.
func NewElution() *Elution {
	return &Elution{}
}

// Name возвращает имя фазы.
func (e *Elution) Name() domain.Phase {
	return domain.PhaseElution
}

// Execute выполняет элюирование для всех колонок.
func (e *Elution) Execute(ctx context.Context, env *Env) error {
	deck, err := env.deck()
	if err != nil {
		return err
	}

	if err := env.delay(ctx, dryDelay, "air dry"); err != nil {
		return err
	}
	if err := deck.Mag.Disengage(ctx); err != nil {
		return fmt.Errorf("disengage: %w", err)
	}

	p := deck.Large
	params := env.Params
	buffer := deck.Reservoir.Well(env.Layout.ElutionWell)
	opts := robot.TransferOptions{BlowOut: true, BlowOutAtDestination: true}

	for i := 1; i <= params.Columns(); i++ {
		sample := deck.Sample(i)

		p.SetFlowRate(elutionFlow)
		if err := p.PickUpTip(ctx); err != nil {
			return columnError(i, err)
		}
		if err := p.Transfer(ctx, params.ElutionVolume, buffer.Bottom(bufferAspirateZ), sample.AtClearance(), opts); err != nil {
			return columnError(i, fmt.Errorf("add elution buffer: %w", err))
		}
		if err := liquid.Mix(ctx, p, elutionMixReps, params.ElutionMixVolume(), sample, elutionMixAsp, elutionMixDisp); err != nil {
			return columnError(i, fmt.Errorf("elution mix: %w", err))
		}
		if err := p.DropTip(ctx); err != nil {
			return columnError(i, err)
		}
	}

	env.phaseLogger(e.Name()).Info("beads resuspended", "elution_volume", params.ElutionVolume)
	return nil
}
