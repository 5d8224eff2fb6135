package phases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/beadprep/internal/calib"
	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/telemetry"
)

// Ошибки фаз.
var (
	// ErrPhaseNotFound — фаза не найдена в реестре.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrDeckNotLoaded — фаза запущена до Setup.
	ErrDeckNotLoaded = errors.New("deck not loaded")
)

// Phase — одна фаза протокола.
type Phase interface {
	// Name возвращает имя фазы.
	Name() domain.Phase

	// Execute выполняет фазу. Первая ошибка драйвера прерывает фазу.
	Execute(ctx context.Context, env *Env) error
}

// Env — окружение выполнения фаз.
type Env struct {
	Robot   robot.Protocol
	Params  domain.Params
	Profile calib.Profile
	Layout  DeckLayout
	Logger  *slog.Logger

	// WrapPipette оборачивает загруженные пипетки (например, для учёта метрик).
	WrapPipette func(robot.Pipette) robot.Pipette

	// OnDone вызывается финализацией после парковки оборудования.
	OnDone func()

	// Deck заполняется фазой Setup.
	Deck *Deck
}

// Deck — загруженное оборудование.
type Deck struct {
	Mag robot.MagneticModule

	SamplePlate robot.Labware
	Reservoir   robot.Labware
	Ethanol     robot.Labware
	Trash       robot.Labware
	CleanPlate  robot.Labware

	// WashRack — штатив с наконечниками промывки: колонка i
	// использует наконечник Ai во всех циклах.
	WashRack robot.Labware

	Large robot.Pipette
	Small robot.Pipette
}

// Sample возвращает лунку образцов колонки i.
func (d *Deck) Sample(i int) robot.Well {
	return d.SamplePlate.Well(domain.ColumnWell(i))
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Env) phaseLogger(p domain.Phase) *slog.Logger {
	return telemetry.WithPhase(e.logger(), p.String())
}

func (e *Env) deck() (*Deck, error) {
	if e.Deck == nil {
		return nil, ErrDeckNotLoaded
	}
	return e.Deck, nil
}

// delay приостанавливает протокол через драйвер.
func (e *Env) delay(ctx context.Context, d time.Duration, reason string) error {
	e.logger().Debug("delay", "duration", d, "reason", reason)
	if err := e.Robot.Delay(ctx, d); err != nil {
		return fmt.Errorf("delay %s (%s): %w", d, reason, err)
	}
	return nil
}

// Sequence возвращает фазы в порядке выполнения.
func Sequence() []Phase {
	return []Phase{
		NewSetup(),
		NewBeadBinding(),
		NewMagneticCapture(),
		NewSupernatantRemoval(),
		NewWash(),
		NewElution(),
		NewReleaseTransfer(),
		NewFinalization(),
	}
}

// columnError оборачивает ошибку номером колонки.
func columnError(i int, err error) error {
	return fmt.Errorf("column %d: %w", i, err)
}
