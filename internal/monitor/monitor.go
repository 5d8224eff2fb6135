package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/beadprep/internal/telemetry"
)

const defaultInterval = time.Second

// PauseMessage — сообщение драйверу при паузе.
const PauseMessage = "Protocol paused. Close the door to the robot to resume."

// Door — часть драйвера робота, нужная монитору.
// robot.Protocol удовлетворяет этому интерфейсу.
type Door interface {
	DoorClosed(ctx context.Context) (bool, error)
	Pause(ctx context.Context, msg string) error
	Resume(ctx context.Context) error
}

// Transition — результат одной проверки двери.
type Transition int

const (
	// TransitionNone — состояние не изменилось (или проверка не удалась).
	TransitionNone Transition = iota

	// TransitionPaused — дверь открылась, протокол приостановлен.
	TransitionPaused

	// TransitionResumed — дверь закрылась, протокол возобновлён.
	TransitionResumed

	// TransitionStillOpen — протокол на паузе, дверь всё ещё открыта.
	TransitionStillOpen
)

// String возвращает имя перехода.
func (t Transition) String() string {
	switch t {
	case TransitionPaused:
		return "paused"
	case TransitionResumed:
		return "resumed"
	case TransitionStillOpen:
		return "still_open"
	default:
		return "none"
	}
}

// Config — конфигурация монитора.
type Config struct {
	Door Door

	// Interval — период опроса двери (default: 1s).
	Interval time.Duration

	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	// OnTransition вызывается из горутины монитора при паузе и возобновлении.
	OnTransition func(Transition)
}

// Monitor — монитор двери.
type Monitor struct {
	door         Door
	interval     time.Duration
	logger       *slog.Logger
	metrics      *telemetry.Metrics
	onTransition func(Transition)

	// paused пишет только монитор, читать можно из любой горутины.
	paused atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopMu    sync.Mutex
	done      chan struct{}
	wg        sync.WaitGroup
}

// New создаёт монитор.
func New(cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		door:         cfg.Door,
		interval:     interval,
		logger:       logger,
		metrics:      cfg.Metrics,
		onTransition: cfg.OnTransition,
		done:         make(chan struct{}),
	}
}

// Start запускает горутину опроса. Повторный вызов ничего не делает.
//
// Отмена ctx означает, что управляющий процесс завершается:
// горутина выходит без дальнейших проверок.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		select {
		case <-m.done:
			// Stop до Start
			return
		default:
		}

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.loop(ctx)
		}()

		m.logger.Debug("door monitor started", "interval", m.interval)
	})
}

// Stop останавливает монитор и ждёт завершения горутины.
// Если протокол остался на паузе, Stop возобновляет драйвер:
// после остановки монитора снять паузу больше некому.
// Безопасен для повторного вызова и вызова без Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()

	m.stopMu.Lock()
	defer m.stopMu.Unlock()
	if !m.paused.Load() {
		return
	}

	if err := m.door.Resume(context.Background()); err != nil {
		m.logger.Error("failed to resume protocol on stop", "error", err)
		return
	}
	m.paused.Store(false)
	m.metrics.SetPaused(false)
	m.logger.Info("door monitor stopped, protocol resumed")
	m.notify(TransitionResumed)
}

// Paused сообщает, приостановлен ли протокол монитором.
func (m *Monitor) Paused() bool {
	return m.paused.Load()
}

// loop — цикл опроса.
func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("door monitor cancelled")
			return
		case <-m.done:
			m.logger.Debug("door monitor stopped")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check выполняет одну проверку двери.
//
// Ошибки драйвера логируются и оставляют флаг паузы без изменений,
// следующая проверка повторит попытку.
// Check не предназначен для параллельного вызова из нескольких горутин.
func (m *Monitor) Check(ctx context.Context) Transition {
	closed, err := m.door.DoorClosed(ctx)
	if err != nil {
		m.logger.Warn("failed to query door state", "error", err)
		return TransitionNone
	}

	paused := m.paused.Load()

	switch {
	case !paused && !closed:
		if err := m.door.Pause(ctx, PauseMessage); err != nil {
			m.logger.Error("failed to pause protocol", "error", err)
			return TransitionNone
		}
		m.paused.Store(true)
		m.metrics.SetPaused(true)
		m.logger.Info("door opened, protocol paused")
		m.notify(TransitionPaused)
		return TransitionPaused

	case paused && closed:
		if err := m.door.Resume(ctx); err != nil {
			m.logger.Error("failed to resume protocol", "error", err)
			return TransitionNone
		}
		m.paused.Store(false)
		m.metrics.SetPaused(false)
		m.logger.Info("door closed, protocol resumed")
		m.notify(TransitionResumed)
		return TransitionResumed

	case paused && !closed:
		m.logger.Info(PauseMessage)
		return TransitionStillOpen
	}

	return TransitionNone
}

func (m *Monitor) notify(t Transition) {
	if m.onTransition != nil {
		m.onTransition(t)
	}
}
