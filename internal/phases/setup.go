package phases

import (
	"context"
	"fmt"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/robot"
)

// Setup включает подсветку, загружает деку и опускает магниты.
type Setup struct{}

// NewSetup создаёт фазу Setup.
func NewSetup() *Setup {
	return &Setup{}
}

// Name возвращает имя фазы.
func (s *Setup) Name() domain.Phase {
	return domain.PhaseSetup
}

// Execute загружает оборудование по env.Layout и заполняет env.Deck.
func (s *Setup) Execute(ctx context.Context, env *Env) error {
	layout := env.Layout.WithDefaults()
	if err := layout.Validate(); err != nil {
		return err
	}
	env.Layout = layout

	r := env.Robot
	log := env.phaseLogger(s.Name())

	if err := r.SetRailLights(ctx, true); err != nil {
		return fmt.Errorf("rail lights: %w", err)
	}

	deck := &Deck{}
	var err error

	deck.Mag, err = r.LoadModule(ctx, layout.MagModule, layout.MagSlot)
	if err != nil {
		return fmt.Errorf("load magnetic module: %w", err)
	}
	deck.SamplePlate, err = deck.Mag.LoadLabware(ctx, layout.SamplePlate)
	if err != nil {
		return fmt.Errorf("load sample plate: %w", err)
	}
	if err := deck.Mag.Disengage(ctx); err != nil {
		return fmt.Errorf("disengage: %w", err)
	}

	load := func(what, loadName string, slot int) (robot.Labware, error) {
		lw, err := r.LoadLabware(ctx, loadName, slot)
		if err != nil {
			return robot.Labware{}, fmt.Errorf("load %s: %w", what, err)
		}
		return lw, nil
	}

	if deck.Reservoir, err = load("reservoir", layout.Reservoir, layout.ReservoirSlot); err != nil {
		return err
	}
	if deck.Ethanol, err = load("ethanol reservoir", layout.Reservoir, layout.EthanolSlot); err != nil {
		return err
	}
	if deck.Trash, err = load("trash reservoir", layout.Reservoir, layout.TrashSlot); err != nil {
		return err
	}
	if deck.CleanPlate, err = load("clean plate", layout.SamplePlate, layout.CleanPlateSlot); err != nil {
		return err
	}
	if deck.WashRack, err = load("wash tip rack", layout.TipRack, layout.WashTipSlot); err != nil {
		return err
	}

	// Общие наконечники расходуются по порядку TipRackSlots;
	// штатив промывки последний и автоматически берётся только
	// после исчерпания остальных.
	racks := make([]robot.Labware, 0, len(layout.TipRackSlots)+1)
	for _, slot := range layout.TipRackSlots {
		rack, err := load("tip rack", layout.TipRack, slot)
		if err != nil {
			return err
		}
		racks = append(racks, rack)
	}
	racks = append(racks, deck.WashRack)

	large, err := r.LoadInstrument(ctx, layout.LargePipette, layout.LargeMount, racks)
	if err != nil {
		return fmt.Errorf("load %s: %w", layout.LargePipette, err)
	}

	smallRack, err := load("small tip rack", layout.SmallTipRack, layout.SmallTipRackSlot)
	if err != nil {
		return err
	}
	small, err := r.LoadInstrument(ctx, layout.SmallPipette, layout.SmallMount, []robot.Labware{smallRack})
	if err != nil {
		return fmt.Errorf("load %s: %w", layout.SmallPipette, err)
	}

	deck.Large = large
	deck.Small = small
	if env.WrapPipette != nil {
		deck.Large = env.WrapPipette(large)
		deck.Small = env.WrapPipette(small)
	}

	env.Deck = deck

	log.Info("deck loaded",
		"columns", env.Params.Columns(),
		"large_pipette", layout.LargePipette,
		"small_pipette", layout.SmallPipette,
	)
	return nil
}
