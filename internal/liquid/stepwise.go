package liquid

import (
	"context"
	"fmt"

	"github.com/shaiso/beadprep/internal/calib"
	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/telemetry"
)

// Step — одна порция ступенчатого дозирования.
type Step struct {
	// Volume — объём порции, мкл.
	Volume float64 `json:"volume"`

	// Height — высота дозирования над дном лунки, мм.
	Height float64 `json:"height"`

	// Cumulative — объём в лунке после порции, мкл.
	Cumulative float64 `json:"cumulative"`
}

// StepPlan рассчитывает порции ступенчатого дозирования.
//
// Порция i (с 1) дозируется на высоте profile.Height(i*step), где
// step = volume/steps, то есть у поверхности жидкости после порции.
// Объём последней порции — остаток, поэтому сумма порций равна volume.
func StepPlan(volume float64, steps int, profile calib.Profile) ([]Step, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: steps must be >= 1, got %d", ErrInvalidArgument, steps)
	}
	if volume <= 0 {
		return nil, fmt.Errorf("%w: volume must be > 0, got %v", ErrInvalidArgument, volume)
	}

	step := volume / float64(steps)
	plan := make([]Step, 0, steps)
	for i := 1; i <= steps; i++ {
		v := step
		if i == steps {
			v = volume - float64(steps-1)*step
		}
		cumulative := float64(i) * step
		if i == steps {
			cumulative = volume
		}
		plan = append(plan, Step{
			Volume:     v,
			Height:     profile.Height(cumulative),
			Cumulative: cumulative,
		})
	}
	return plan, nil
}

// StepwiseDispense дозирует volume мкл в лунку за steps порций,
// поднимая наконечник вслед за уровнем жидкости.
//
// Жидкость должна быть уже набрана в наконечник.
func StepwiseDispense(ctx context.Context, p robot.Pipette, volume float64, well robot.Well, steps int, profile calib.Profile) error {
	plan, err := StepPlan(volume, steps, profile)
	if err != nil {
		return err
	}

	telemetry.FromContext(ctx).Debug("stepwise dispense",
		"pipette", p.Name(),
		"well", well.String(),
		"volume", volume,
		"steps", steps,
	)

	for i, s := range plan {
		if err := p.Dispense(ctx, s.Volume, well.Bottom(s.Height), 1); err != nil {
			return fmt.Errorf("stepwise dispense %s step %d/%d: %w", well, i+1, steps, err)
		}
	}
	return nil
}
