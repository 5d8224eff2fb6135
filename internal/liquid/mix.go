package liquid

import (
	"context"
	"fmt"

	"github.com/shaiso/beadprep/internal/robot"
)

// Mix перемешивает содержимое лунки: reps циклов набора и слива volume мкл.
//
// Набор выполняется на высоте aspHeight, слив — на dispHeight (мм над дном),
// через clearance пипетки. При любом выходе, включая ошибку драйвера
// и отмену ctx, clearance возвращается к robot.DefaultClearance.
//
// reps == 0 допустим: clearance выставляется и сразу восстанавливается.
func Mix(ctx context.Context, p robot.Pipette, reps int, volume float64, well robot.Well, aspHeight, dispHeight float64) error {
	if reps < 0 {
		return fmt.Errorf("%w: mix repetitions must be >= 0, got %d", ErrInvalidArgument, reps)
	}
	if volume <= 0 {
		return fmt.Errorf("%w: mix volume must be > 0, got %v", ErrInvalidArgument, volume)
	}

	p.SetClearance(robot.Clearance{Aspirate: aspHeight, Dispense: dispHeight})
	defer p.SetClearance(robot.DefaultClearance)

	loc := well.AtClearance()
	for i := 0; i < reps; i++ {
		if err := p.Aspirate(ctx, volume, loc, 1); err != nil {
			return fmt.Errorf("mix %s cycle %d: %w", well, i+1, err)
		}
		if err := p.Dispense(ctx, volume, loc, 1); err != nil {
			return fmt.Errorf("mix %s cycle %d: %w", well, i+1, err)
		}
	}
	return nil
}
