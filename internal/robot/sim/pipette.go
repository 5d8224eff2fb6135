package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shaiso/beadprep/internal/robot"
)

// volumeEpsilon — допуск при сравнении объёмов, мкл.
const volumeEpsilon = 1e-6

// tipState — состояние позиции штатива.
type tipState int

const (
	tipFresh    tipState = iota // новый наконечник
	tipInUse                    // надет на пипетку
	tipReturned                 // использован и возвращён в штатив
	tipGone                     // сброшен в отходы
)

// model — характеристики модели пипетки.
type model struct {
	name      string
	maxVolume float64
	flowRate  robot.FlowRate
}

var models = map[string]model{
	"p10_multi":       {name: "p10_multi", maxVolume: 10, flowRate: robot.FlowRate{Aspirate: 5, Dispense: 10}},
	"p20_multi_gen2":  {name: "p20_multi_gen2", maxVolume: 20, flowRate: robot.FlowRate{Aspirate: 7.6, Dispense: 7.6}},
	"p300_multi":      {name: "p300_multi", maxVolume: 300, flowRate: robot.FlowRate{Aspirate: 150, Dispense: 300}},
	"p300_multi_gen2": {name: "p300_multi_gen2", maxVolume: 300, flowRate: robot.FlowRate{Aspirate: 94, Dispense: 94}},
}

// Pipette — симулируемая многоканальная пипетка.
type Pipette struct {
	robot *Robot
	model model
	mount robot.Mount
	racks []robot.Labware

	// Поля ниже защищены robot.mu.
	flowRate  robot.FlowRate
	clearance robot.Clearance
	tip       robot.Well
	hasTip    bool
	volume    float64
}

// Name возвращает имя модели.
func (p *Pipette) Name() string {
	return p.model.name
}

// MaxVolume возвращает объём наконечника.
func (p *Pipette) MaxVolume() float64 {
	return p.model.maxVolume
}

// SetFlowRate задаёт скорости потока.
func (p *Pipette) SetFlowRate(r robot.FlowRate) {
	p.robot.mu.Lock()
	defer p.robot.mu.Unlock()
	p.flowRate = r
}

// FlowRate возвращает текущие скорости потока.
func (p *Pipette) FlowRate() robot.FlowRate {
	p.robot.mu.Lock()
	defer p.robot.mu.Unlock()
	return p.flowRate
}

// SetClearance задаёт высоту по умолчанию.
func (p *Pipette) SetClearance(c robot.Clearance) {
	p.robot.mu.Lock()
	defer p.robot.mu.Unlock()
	p.clearance = c
}

// Clearance возвращает высоту по умолчанию.
func (p *Pipette) Clearance() robot.Clearance {
	p.robot.mu.Lock()
	defer p.robot.mu.Unlock()
	return p.clearance
}

// HasTip сообщает, надет ли наконечник.
func (p *Pipette) HasTip() bool {
	p.robot.mu.Lock()
	defer p.robot.mu.Unlock()
	return p.hasTip
}

// Volume возвращает объём жидкости в наконечнике.
func (p *Pipette) Volume() float64 {
	p.robot.mu.Lock()
	defer p.robot.mu.Unlock()
	return p.volume
}

// PickUpTip берёт первый новый наконечник из штативов пипетки.
func (p *Pipette) PickUpTip(ctx context.Context) error {
	cmd := Command{Kind: KindPickUpTip, Pipette: p.model.name}
	return p.robot.exec(ctx, &cmd, tipTime, func() error {
		if p.hasTip {
			return ErrTipAttached
		}
		for _, rack := range p.racks {
			states := p.robot.tips[rack.ID]
			for i, s := range states {
				if s == tipFresh {
					states[i] = tipInUse
					p.attach(rack.Well(fmt.Sprintf("A%d", i+1)), &cmd)
					return nil
				}
			}
		}
		return fmt.Errorf("%w: %s", ErrOutOfTips, p.model.name)
	})
}

// PickUpTipFrom берёт наконечник из заданной позиции.
// Допускается повторное использование возвращённого наконечника.
func (p *Pipette) PickUpTipFrom(ctx context.Context, tip robot.Well) error {
	cmd := Command{Kind: KindPickUpTip, Pipette: p.model.name, Tip: tip}
	return p.robot.exec(ctx, &cmd, tipTime, func() error {
		if p.hasTip {
			return ErrTipAttached
		}
		state, err := p.robot.tipSlot(tip)
		if err != nil {
			return err
		}
		if *state == tipInUse || *state == tipGone {
			return fmt.Errorf("%w: %s", ErrTipUnavailable, tip)
		}
		*state = tipInUse
		p.attach(tip, &cmd)
		return nil
	})
}

// DropTip сбрасывает наконечник вместе с остатком жидкости.
func (p *Pipette) DropTip(ctx context.Context) error {
	cmd := Command{Kind: KindDropTip, Pipette: p.model.name}
	return p.robot.exec(ctx, &cmd, tipTime, func() error {
		if !p.hasTip {
			return ErrNoTip
		}
		state, err := p.robot.tipSlot(p.tip)
		if err != nil {
			return err
		}
		*state = tipGone
		cmd.Tip = p.tip
		p.detach()
		return nil
	})
}

// ReturnTip возвращает наконечник в исходную позицию штатива.
func (p *Pipette) ReturnTip(ctx context.Context) error {
	cmd := Command{Kind: KindReturnTip, Pipette: p.model.name}
	return p.robot.exec(ctx, &cmd, tipTime, func() error {
		if !p.hasTip {
			return ErrNoTip
		}
		state, err := p.robot.tipSlot(p.tip)
		if err != nil {
			return err
		}
		*state = tipReturned
		cmd.Tip = p.tip
		p.detach()
		return nil
	})
}

// Aspirate набирает жидкость.
func (p *Pipette) Aspirate(ctx context.Context, volume float64, loc robot.Location, rate float64) error {
	rate = normRate(rate)
	cmd := Command{Kind: KindAspirate, Pipette: p.model.name, Volume: volume, Rate: rate}
	return p.robot.exec(ctx, &cmd, 0, func() error {
		if volume <= 0 {
			return fmt.Errorf("%w: %v", ErrInvalidVolume, volume)
		}
		if !p.hasTip {
			return ErrNoTip
		}
		if err := p.robot.checkLocation(loc); err != nil {
			return err
		}
		if p.volume+volume > p.model.maxVolume+volumeEpsilon {
			return fmt.Errorf("%w: %.2f + %.2f > %.0f µl", ErrOverCapacity, p.volume, volume, p.model.maxVolume)
		}
		p.volume += volume
		cmd.Location = p.resolve(loc, p.clearance.Aspirate)
		cmd.FlowRate = p.flowRate
		return nil
	})
}

// Dispense дозирует жидкость.
func (p *Pipette) Dispense(ctx context.Context, volume float64, loc robot.Location, rate float64) error {
	rate = normRate(rate)
	cmd := Command{Kind: KindDispense, Pipette: p.model.name, Volume: volume, Rate: rate}
	return p.robot.exec(ctx, &cmd, 0, func() error {
		if volume <= 0 {
			return fmt.Errorf("%w: %v", ErrInvalidVolume, volume)
		}
		if !p.hasTip {
			return ErrNoTip
		}
		if err := p.robot.checkLocation(loc); err != nil {
			return err
		}
		if volume > p.volume+volumeEpsilon {
			return fmt.Errorf("%w: %.2f > %.2f µl", ErrInsufficientVolume, volume, p.volume)
		}
		p.volume = math.Max(0, p.volume-volume)
		cmd.Location = p.resolve(loc, p.clearance.Dispense)
		cmd.FlowRate = p.flowRate
		return nil
	})
}

// BlowOut выдувает остаток жидкости.
func (p *Pipette) BlowOut(ctx context.Context, loc robot.Location) error {
	cmd := Command{Kind: KindBlowOut, Pipette: p.model.name, Location: loc}
	return p.robot.exec(ctx, &cmd, moveTime, func() error {
		if !p.hasTip {
			return ErrNoTip
		}
		if err := p.robot.checkLocation(loc); err != nil {
			return err
		}
		p.volume = 0
		return nil
	})
}

// Transfer переносит жидкость, разбивая объём на равные части
// не больше объёма наконечника.
func (p *Pipette) Transfer(ctx context.Context, volume float64, src, dst robot.Location, opts robot.TransferOptions) error {
	if volume <= 0 {
		return fmt.Errorf("transfer: %w: %v", ErrInvalidVolume, volume)
	}

	parts := int(math.Ceil(volume/p.model.maxVolume - volumeEpsilon))
	if parts < 1 {
		parts = 1
	}
	part := volume / float64(parts)

	if opts.NewTip {
		if err := p.PickUpTip(ctx); err != nil {
			return err
		}
	}

	for i := 0; i < parts; i++ {
		if err := p.Aspirate(ctx, part, src, 1); err != nil {
			return err
		}
		if err := p.Dispense(ctx, part, dst, 1); err != nil {
			return err
		}
		if opts.BlowOut {
			target := robot.Location{Well: p.robot.Trash()}
			if opts.BlowOutAtDestination {
				target = dst
			}
			if err := p.BlowOut(ctx, target); err != nil {
				return err
			}
		}
	}

	if opts.NewTip {
		return p.DropTip(ctx)
	}
	return nil
}

// Home отводит пипетку в исходное положение.
func (p *Pipette) Home(ctx context.Context) error {
	cmd := Command{Kind: KindHome, Pipette: p.model.name}
	return p.robot.exec(ctx, &cmd, homeTime, nil)
}

// attach надевает наконечник. Вызывается под robot.mu.
func (p *Pipette) attach(tip robot.Well, cmd *Command) {
	p.tip = tip
	p.hasTip = true
	p.volume = 0
	cmd.Tip = tip
}

// detach снимает наконечник. Вызывается под robot.mu.
func (p *Pipette) detach() {
	p.tip = robot.Well{}
	p.hasTip = false
	p.volume = 0
}

// resolve подставляет clearance для точек без явной высоты.
func (p *Pipette) resolve(loc robot.Location, clearance float64) robot.Location {
	if loc.FromClearance {
		loc.FromClearance = false
		loc.Point.Z += clearance
	}
	return loc
}

// liquidTime — длительность набора/дозирования при текущей скорости.
func liquidTime(volume, flow, rate float64) time.Duration {
	if flow <= 0 {
		return moveTime
	}
	return moveTime + time.Duration(volume/(flow*rate)*float64(time.Second))
}

func normRate(rate float64) float64 {
	if rate <= 0 {
		return 1
	}
	return rate
}

// tipSlot возвращает состояние позиции штатива. Вызывается под robot.mu.
func (r *Robot) tipSlot(tip robot.Well) (*tipState, error) {
	states, ok := r.tips[tip.Labware]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLabware, tip.Labware)
	}

	var col int
	if _, err := fmt.Sscanf(tip.Name, "A%d", &col); err != nil || col < 1 || col > len(states) {
		return nil, fmt.Errorf("%w: %s", ErrTipUnavailable, tip)
	}
	return &states[col-1], nil
}
