package phases

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/robot"
)

var smallFlow = robot.FlowRate{Aspirate: 3, Dispense: 10}

const (
	// releaseDelay — выдержка после подъёма магнитов перед переносом элюата.
	releaseDelay = time.Minute

	eluateZ = 1.0
)

// ReleaseTransfer собирает бусины магнитом и переносит элюат
// малой пипеткой в чистый планшет.
type ReleaseTransfer struct{}

// NewReleaseTransfer создаёт фазу переноса.
func NewReleaseTransfer() *ReleaseTransfer {
	return &ReleaseTransfer{}
}

// Name возвращает имя фазы.
func (t *ReleaseTransfer) Name() domain.Phase {
	return domain.PhaseTransfer
}

// Execute переносит ElutionVolume − 3 мкл каждой колонки.
// Объём больше наконечника малой пипетки делится на равные части.
func (t *ReleaseTransfer) Execute(ctx context.Context, env *Env) error {
	deck, err := env.deck()
	if err != nil {
		return err
	}

	if err := deck.Mag.Engage(ctx); err != nil {
		return fmt.Errorf("engage: %w", err)
	}
	if err := env.delay(ctx, releaseDelay, "bead capture before transfer"); err != nil {
		return err
	}

	p := deck.Small
	p.SetFlowRate(smallFlow)
	volume := env.Params.ElutionMixVolume()

	for i := 1; i <= env.Params.Columns(); i++ {
		col := domain.ColumnWell(i)

		if err := p.PickUpTip(ctx); err != nil {
			return columnError(i, err)
		}
		src := deck.SamplePlate.Well(col).Bottom(eluateZ)
		dst := deck.CleanPlate.Well(col).Bottom(eluateZ)
		if err := p.Transfer(ctx, volume, src, dst, robot.TransferOptions{}); err != nil {
			return columnError(i, fmt.Errorf("transfer eluate: %w", err))
		}
		if err := p.BlowOut(ctx, robot.Location{}); err != nil {
			return columnError(i, err)
		}
		if err := p.DropTip(ctx); err != nil {
			return columnError(i, err)
		}
	}

	env.phaseLogger(t.Name()).Info("eluate transferred", "volume", volume)
	return nil
}
