package sequencer

import (
	"context"

	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/telemetry"
)

// meteredPipette учитывает наконечники и объёмы в метриках.
// Счётчики увеличиваются только после успешной команды.
type meteredPipette struct {
	robot.Pipette
	metrics *telemetry.Metrics
}

func meter(m *telemetry.Metrics) func(robot.Pipette) robot.Pipette {
	return func(p robot.Pipette) robot.Pipette {
		if m == nil {
			return p
		}
		return &meteredPipette{Pipette: p, metrics: m}
	}
}

func (p *meteredPipette) PickUpTip(ctx context.Context) error {
	if err := p.Pipette.PickUpTip(ctx); err != nil {
		return err
	}
	p.metrics.Tip(p.Name(), telemetry.TipPicked)
	return nil
}

func (p *meteredPipette) PickUpTipFrom(ctx context.Context, tip robot.Well) error {
	if err := p.Pipette.PickUpTipFrom(ctx, tip); err != nil {
		return err
	}
	p.metrics.Tip(p.Name(), telemetry.TipPicked)
	return nil
}

func (p *meteredPipette) DropTip(ctx context.Context) error {
	if err := p.Pipette.DropTip(ctx); err != nil {
		return err
	}
	p.metrics.Tip(p.Name(), telemetry.TipDropped)
	return nil
}

func (p *meteredPipette) ReturnTip(ctx context.Context) error {
	if err := p.Pipette.ReturnTip(ctx); err != nil {
		return err
	}
	p.metrics.Tip(p.Name(), telemetry.TipReturned)
	return nil
}

func (p *meteredPipette) Aspirate(ctx context.Context, volume float64, loc robot.Location, rate float64) error {
	if err := p.Pipette.Aspirate(ctx, volume, loc, rate); err != nil {
		return err
	}
	p.metrics.Volume(p.Name(), "aspirate", volume)
	return nil
}

func (p *meteredPipette) Dispense(ctx context.Context, volume float64, loc robot.Location, rate float64) error {
	if err := p.Pipette.Dispense(ctx, volume, loc, rate); err != nil {
		return err
	}
	p.metrics.Volume(p.Name(), "dispense", volume)
	return nil
}

func (p *meteredPipette) Transfer(ctx context.Context, volume float64, src, dst robot.Location, opts robot.TransferOptions) error {
	if err := p.Pipette.Transfer(ctx, volume, src, dst, opts); err != nil {
		return err
	}
	p.metrics.Volume(p.Name(), "transfer", volume)
	return nil
}
