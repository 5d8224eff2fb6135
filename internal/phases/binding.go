package phases

import (
	"context"
	"fmt"

	"github.com/shaiso/beadprep/internal/calib"
	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/liquid"
	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/telemetry"
)

// Режимы связывания.
var (
	preMixFlow     = robot.FlowRate{Aspirate: 9, Dispense: 9}
	beadFlow       = robot.FlowRate{Aspirate: 120, Dispense: 30}
	bindingMixFlow = robot.FlowRate{Aspirate: 60, Dispense: 60}
)

const (
	preMixReps   = 30
	preMixVolume = 15.0
	preMixAsp    = 3.0
	preMixDisp   = 6.0

	beadAspirateZ = 3.0
	beadDispenseZ = 5.0
	beadReturnZ   = 20.0

	bindingMixReps = 15
	bindingMixAsp  = 0.6
	bindingMixDisp = 3.0
)

// BeadBinding добавляет бусины в каждую колонку и перемешивает.
type BeadBinding struct{}

// NewBeadBinding создаёт фазу связывания.
func NewBeadBinding() *BeadBinding {
	return &BeadBinding{}
}

// Name возвращает имя фазы.
func (b *BeadBinding) Name() domain.Phase {
	return domain.PhaseBeadBinding
}

// Execute выполняет связывание для всех колонок.
//
// Для числа колонок из calib.PreMixColumnCounts бусины в резервуаре
// перед набором дополнительно перемешиваются.
func (b *BeadBinding) Execute(ctx context.Context, env *Env) error {
	deck, err := env.deck()
	if err != nil {
		return err
	}

	p := deck.Large
	params := env.Params
	columns := params.Columns()
	beads := deck.Reservoir.Well(env.Layout.BeadWell)
	preMix := calib.NeedsPreMix(columns)
	log := env.phaseLogger(b.Name())

	for i := 1; i <= columns; i++ {
		sample := deck.Sample(i)
		telemetry.WithColumn(log, i).Debug("adding beads",
			"volume", params.BeadVolume(),
			"pre_mix", preMix,
		)

		if err := p.PickUpTip(ctx); err != nil {
			return columnError(i, err)
		}

		if preMix {
			p.SetFlowRate(preMixFlow)
			if err := liquid.Mix(ctx, p, preMixReps, preMixVolume, beads, preMixAsp, preMixDisp); err != nil {
				return columnError(i, fmt.Errorf("bead pre-mix: %w", err))
			}
		}

		p.SetFlowRate(beadFlow)
		if err := p.Aspirate(ctx, params.BeadVolume()+domain.BeadExcess, beads.Bottom(beadAspirateZ), 1); err != nil {
			return columnError(i, err)
		}
		if err := p.Dispense(ctx, params.BeadVolume(), sample.Bottom(beadDispenseZ), 1); err != nil {
			return columnError(i, err)
		}

		// Избыток возвращается в резервуар сверху, чтобы не задеть бусины
		if err := p.Dispense(ctx, domain.BeadExcess, beads.Bottom(beadReturnZ), 1); err != nil {
			return columnError(i, err)
		}
		if err := p.BlowOut(ctx, beads.Bottom(beadReturnZ)); err != nil {
			return columnError(i, err)
		}

		p.SetFlowRate(bindingMixFlow)
		if err := liquid.Mix(ctx, p, bindingMixReps, params.BindingMixVolume(), sample, bindingMixAsp, bindingMixDisp); err != nil {
			return columnError(i, fmt.Errorf("binding mix: %w", err))
		}

		if err := p.DropTip(ctx); err != nil {
			return columnError(i, err)
		}
	}

	log.Info("beads added", "columns", columns, "bead_volume", params.BeadVolume(), "pre_mix", preMix)
	return nil
}
