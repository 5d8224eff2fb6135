package phases

import (
	"context"
	"time"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/liquid"
	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/telemetry"
)

var (
	ethanolFlow       = robot.FlowRate{Aspirate: 60, Dispense: 30}
	ethanolRemoveFlow = robot.FlowRate{Aspirate: 90, Dispense: 100}
)

const (
	ethanolVolume    = 190.0
	ethanolAspirateZ = 3.0
	ethanolRate      = 3.0
	ethanolSteps     = 10

	// При малом числе колонок этанол держится не меньше 30 с.
	fewColumns  = 4
	settleDelay = 30 * time.Second

	trashDispenseZ = 3.0
)

// ethanolDraw — порция удаления этанола.
type ethanolDraw struct {
	volume float64
	offset robot.Point
}

// ethanolDraws — порядок удаления этанола относительно центра лунки (z=0.3).
// Сумма объёмов — 220 мкл, с запасом к 190 мкл этанола.
var ethanolDraws = []ethanolDraw{
	{150, robot.Point{Z: 1.2}},
	{30, robot.Point{}},
	{20, robot.Point{X: 0.3, Y: 0.3, Z: 0.1}},
	{20, robot.Point{X: -0.3, Y: -0.3, Z: 0.1}},
}

const ethanolCenterZ = 0.3

// Wash промывает бусины этанолом WashCycleCount раз.
//
// Каждая колонка использует свой наконечник из штатива промывки
// во всех циклах: наконечник возвращается после добавления этанола и
// после удаления в промежуточных циклах, сбрасывается в последнем.
type Wash struct{}

// NewWash создаёт фазу промывки.
func NewWash() *Wash {
	return &Wash{}
}

// Name возвращает имя фазы.
func (w *Wash) Name() domain.Phase {
	return domain.PhaseWash
}

// Execute выполняет все циклы промывки.
func (w *Wash) Execute(ctx context.Context, env *Env) error {
	deck, err := env.deck()
	if err != nil {
		return err
	}

	cycles := env.Params.WashCycleCount
	log := env.phaseLogger(w.Name())

	for cycle := 1; cycle <= cycles; cycle++ {
		if err := w.addEthanol(ctx, env, deck); err != nil {
			return err
		}

		if env.Params.Columns() < fewColumns {
			if err := env.delay(ctx, settleDelay, "ethanol contact"); err != nil {
				return err
			}
		}

		if err := w.removeEthanol(ctx, env, deck, cycle == cycles); err != nil {
			return err
		}

		log.Info("wash cycle completed", "cycle", cycle, "of", cycles)
	}
	return nil
}

// addEthanol добавляет этанол ступенчатым дозированием.
func (w *Wash) addEthanol(ctx context.Context, env *Env, deck *Deck) error {
	p := deck.Large
	p.SetFlowRate(ethanolFlow)

	for i := 1; i <= env.Params.Columns(); i++ {
		col := domain.ColumnWell(i)

		if err := p.PickUpTipFrom(ctx, deck.WashRack.Well(col)); err != nil {
			return columnError(i, err)
		}
		if err := p.Aspirate(ctx, ethanolVolume, deck.Ethanol.Well(col).Bottom(ethanolAspirateZ), ethanolRate); err != nil {
			return columnError(i, err)
		}
		if err := liquid.StepwiseDispense(ctx, p, ethanolVolume, deck.Sample(i), ethanolSteps, env.Profile); err != nil {
			return columnError(i, err)
		}
		if err := p.ReturnTip(ctx); err != nil {
			return columnError(i, err)
		}
	}
	return nil
}

// removeEthanol удаляет этанол в резервуар отходов той же колонки.
func (w *Wash) removeEthanol(ctx context.Context, env *Env, deck *Deck, final bool) error {
	p := deck.Large
	p.SetFlowRate(ethanolRemoveFlow)

	var total float64
	for _, d := range ethanolDraws {
		total += d.volume
	}

	for i := 1; i <= env.Params.Columns(); i++ {
		col := domain.ColumnWell(i)
		center := deck.Sample(i).Bottom(ethanolCenterZ)

		if err := p.PickUpTipFrom(ctx, deck.WashRack.Well(col)); err != nil {
			return columnError(i, err)
		}
		for _, d := range ethanolDraws {
			if err := p.Aspirate(ctx, d.volume, center.Move(d.offset), 1); err != nil {
				return columnError(i, err)
			}
		}
		if err := p.Dispense(ctx, total, deck.Trash.Well(col).Bottom(trashDispenseZ), 1); err != nil {
			return columnError(i, err)
		}

		var err error
		if final {
			err = p.DropTip(ctx)
		} else {
			err = p.ReturnTip(ctx)
		}
		if err != nil {
			return columnError(i, err)
		}

		telemetry.WithColumn(env.logger(), i).Debug("ethanol removed", "final", final)
	}
	return nil
}
