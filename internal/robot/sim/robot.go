package sim

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shaiso/beadprep/internal/robot"
)

// DriverName — имя симулятора в реестре драйверов.
const DriverName = "sim"

// Номинальные длительности движений для оценки времени протокола.
const (
	moveTime    = 2 * time.Second
	tipTime     = 4 * time.Second
	homeTime    = 5 * time.Second
	magnetTime  = 3 * time.Second
	trashSlot   = 12
	tipColumns  = 12
	trashLoadID = "fixed_trash"
)

// Options — настройки симулятора.
type Options struct {
	// Realtime — выполнять Delay в реальном времени.
	Realtime bool

	// Fail вызывается перед каждой аппаратной командой.
	// Ненулевая ошибка имитирует отказ драйвера: команда не выполняется.
	Fail func(Command) error

	Logger *slog.Logger
}

// Robot — симулятор робота-дозатора.
//
// Ведёт журнал команд, виртуальные часы, учёт наконечников и объёмов
// в пипетках. Во время паузы все аппаратные команды блокируются
// до Resume, как на реальном роботе.
type Robot struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	commands []Command
	clock    time.Duration
	labware  map[string]robot.Labware
	slots    map[int]string
	tips     map[string][]tipState
	lights   bool

	doorClosed bool
	paused     bool
	resumeCh   chan struct{}
}

// New создаёт симулятор с закрытой дверью.
func New(opts Options) *Robot {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Robot{
		opts:       opts,
		logger:     logger,
		labware:    make(map[string]robot.Labware),
		slots:      make(map[int]string),
		tips:       make(map[string][]tipState),
		doorClosed: true,
	}
	r.labware[trashLoadID] = robot.Labware{ID: trashLoadID, LoadName: trashLoadID, Slot: trashSlot}
	r.slots[trashSlot] = trashLoadID
	return r
}

// Register регистрирует симулятор в реестре драйверов.
func Register(reg *robot.Registry) {
	reg.Register(DriverName, func(cfg robot.DriverConfig) (robot.Protocol, error) {
		return New(Options{Realtime: cfg.Realtime, Logger: cfg.Logger}), nil
	})
}

// Trash возвращает ссылку на лоток для сброса.
func (r *Robot) Trash() robot.Well {
	return robot.Well{Labware: trashLoadID, Name: "A1"}
}

// --- robot.Protocol ---

// LoadModule загружает модуль. Поддерживается только магнитный модуль.
func (r *Robot) LoadModule(ctx context.Context, name string, slot int) (robot.MagneticModule, error) {
	if !strings.HasPrefix(name, "magnetic module") && !strings.HasPrefix(name, "magdeck") {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}

	cmd := Command{Kind: KindLoadModule, Message: fmt.Sprintf("%s in slot %d", name, slot)}
	if err := r.exec(ctx, &cmd, 0, func() error {
		return r.occupy(slot, "module:"+name)
	}); err != nil {
		return nil, err
	}

	return &magModule{robot: r, name: name, slot: slot}, nil
}

// LoadLabware загружает посуду в слот.
func (r *Robot) LoadLabware(ctx context.Context, loadName string, slot int) (robot.Labware, error) {
	var lw robot.Labware
	cmd := Command{Kind: KindLoadLabware, Message: fmt.Sprintf("%s in slot %d", loadName, slot)}
	err := r.exec(ctx, &cmd, 0, func() error {
		if err := r.occupy(slot, loadName); err != nil {
			return err
		}
		lw = r.addLabware(loadName, slot)
		return nil
	})
	return lw, err
}

// LoadInstrument устанавливает пипетку.
func (r *Robot) LoadInstrument(ctx context.Context, name string, mount robot.Mount, tipRacks []robot.Labware) (robot.Pipette, error) {
	model, ok := models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, name)
	}

	cmd := Command{Kind: KindLoadInstrument, Pipette: name, Message: fmt.Sprintf("%s on %s", name, mount)}
	err := r.exec(ctx, &cmd, 0, func() error {
		for _, rack := range tipRacks {
			if _, ok := r.tips[rack.ID]; !ok {
				return fmt.Errorf("%w: %s is not a tip rack", ErrUnknownLabware, rack.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	racks := make([]robot.Labware, len(tipRacks))
	copy(racks, tipRacks)

	return &Pipette{
		robot:     r,
		model:     model,
		mount:     mount,
		racks:     racks,
		flowRate:  model.flowRate,
		clearance: robot.DefaultClearance,
	}, nil
}

// Delay учитывает задержку на виртуальных часах.
// В режиме Realtime задержка выполняется на самом деле и прерывается отменой ctx.
func (r *Robot) Delay(ctx context.Context, d time.Duration) error {
	cmd := Command{Kind: KindDelay, Duration: d}
	return r.exec(ctx, &cmd, d, func() error {
		if !r.opts.Realtime {
			return nil
		}

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	})
}

// DoorClosed возвращает состояние двери. Не блокируется паузой.
func (r *Robot) DoorClosed(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doorClosed, nil
}

// Pause приостанавливает выполнение. Повторный вызов ничего не делает.
func (r *Robot) Pause(ctx context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return nil
	}
	r.paused = true
	r.resumeCh = make(chan struct{})
	r.appendLocked(Command{Kind: KindPause, Message: msg})
	r.logger.Info("robot paused", "message", msg)
	return nil
}

// Resume возобновляет выполнение.
func (r *Robot) Resume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.paused {
		return nil
	}
	r.paused = false
	close(r.resumeCh)
	r.resumeCh = nil
	r.appendLocked(Command{Kind: KindResume})
	r.logger.Info("robot resumed")
	return nil
}

// SetRailLights переключает подсветку.
func (r *Robot) SetRailLights(ctx context.Context, on bool) error {
	cmd := Command{Kind: KindRailLights, Message: fmt.Sprintf("%t", on)}
	return r.exec(ctx, &cmd, 0, func() error {
		r.lights = on
		return nil
	})
}

// Comment записывает сообщение в журнал команд.
func (r *Robot) Comment(ctx context.Context, msg string) error {
	cmd := Command{Kind: KindComment, Message: msg}
	return r.exec(ctx, &cmd, 0, nil)
}

// --- Управление симулятором ---

// SetDoorClosed меняет состояние двери.
func (r *Robot) SetDoorClosed(closed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doorClosed = closed
}

// IsPaused сообщает, приостановлен ли протокол.
func (r *Robot) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// RailLights возвращает состояние подсветки.
func (r *Robot) RailLights() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lights
}

// Elapsed возвращает виртуальное время протокола.
func (r *Robot) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock
}

// Commands возвращает копию журнала команд.
func (r *Robot) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Filter возвращает команды, для которых keep возвращает true.
func (r *Robot) Filter(keep func(Command) bool) []Command {
	var out []Command
	for _, c := range r.Commands() {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Count возвращает число команд данного типа.
func (r *Robot) Count(kind Kind) int {
	return len(r.Filter(func(c Command) bool { return c.Kind == kind }))
}

// --- internal ---

// exec выполняет аппаратную команду: ждёт снятия паузы, вызывает
// Options.Fail, применяет изменения состояния и пишет команду в журнал.
// apply может дополнять cmd (вычисленная точка, наконечник).
func (r *Robot) exec(ctx context.Context, cmd *Command, cost time.Duration, apply func() error) error {
	if err := r.waitWhilePaused(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.opts.Fail != nil {
		if err := r.opts.Fail(*cmd); err != nil {
			return fmt.Errorf("%s: %w", cmd.Kind, err)
		}
	}

	if apply != nil {
		if cmd.Kind == KindDelay {
			// Задержка в реальном времени не должна держать блокировку.
			if err := apply(); err != nil {
				return err
			}
		} else {
			r.mu.Lock()
			err := apply()
			r.mu.Unlock()
			if err != nil {
				return fmt.Errorf("%s: %w", cmd.Kind, err)
			}
		}
	}

	if cmd.IsLiquid() {
		cost = liquidTime(cmd.Volume, cmd.flow(), cmd.Rate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(*cmd)
	r.clock += cost
	return nil
}

// waitWhilePaused блокируется, пока протокол на паузе.
func (r *Robot) waitWhilePaused(ctx context.Context) error {
	for {
		r.mu.Lock()
		ch := r.resumeCh
		r.mu.Unlock()

		if ch == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (r *Robot) appendLocked(cmd Command) {
	cmd.Seq = len(r.commands) + 1
	cmd.At = r.clock
	r.commands = append(r.commands, cmd)
	r.logger.Debug("sim command", "seq", cmd.Seq, "command", cmd.String())
}

func (r *Robot) occupy(slot int, what string) error {
	if cur, ok := r.slots[slot]; ok {
		return fmt.Errorf("%w: slot %d holds %s", ErrSlotOccupied, slot, cur)
	}
	r.slots[slot] = what
	return nil
}

func (r *Robot) addLabware(loadName string, slot int) robot.Labware {
	lw := robot.Labware{
		ID:       fmt.Sprintf("%s-%d", loadName, slot),
		LoadName: loadName,
		Slot:     slot,
	}
	r.labware[lw.ID] = lw
	if strings.Contains(loadName, "tiprack") {
		r.tips[lw.ID] = make([]tipState, tipColumns)
	}
	return lw
}

func (r *Robot) checkLocation(loc robot.Location) error {
	if loc.IsZero() {
		return nil
	}
	if _, ok := r.labware[loc.Well.Labware]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLabware, loc.Well.Labware)
	}
	return nil
}
