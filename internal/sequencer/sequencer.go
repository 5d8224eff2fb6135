package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/beadprep/internal/calib"
	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/monitor"
	"github.com/shaiso/beadprep/internal/phases"
	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/telemetry"
)

// sinkTimeout — таймаут записи в журнал и шину после отмены ctx.
const sinkTimeout = 5 * time.Second

// Config — конфигурация Sequencer.
type Config struct {
	// Robot — контекст протокола от драйвера.
	Robot robot.Protocol

	// DriverName — имя драйвера для записи run.
	DriverName string

	Params  domain.Params
	Profile calib.Profile
	Layout  phases.DeckLayout

	// Phases — реестр фаз (default: phases.DefaultRegistry()).
	Phases *phases.Registry

	// Journal, Events и Metrics необязательны.
	Journal Journal
	Events  EventSink
	Metrics *telemetry.Metrics

	// DoorInterval — период опроса двери (default: 1s).
	DoorInterval time.Duration

	Logger *slog.Logger
}

// Sequencer выполняет протокол очистки.
//
// Один Sequencer выполняет не больше одного run одновременно.
type Sequencer struct {
	cfg    Config
	phases *phases.Registry
	logger *slog.Logger

	running atomic.Bool
	pauses  atomic.Int64

	// done закрывается один раз, когда run завершён.
	mu   sync.Mutex
	done chan struct{}
}

// New создаёт Sequencer.
func New(cfg Config) *Sequencer {
	reg := cfg.Phases
	if reg == nil {
		reg = phases.DefaultRegistry()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Profile.Name == "" {
		cfg.Profile = calib.Biorad200()
	}
	if cfg.DriverName == "" {
		cfg.DriverName = "unknown"
	}

	return &Sequencer{
		cfg:    cfg,
		phases: reg,
		logger: logger,
	}
}

// Done возвращает канал, который закрывается по завершении текущего run.
// До первого Run возвращает nil.
func (s *Sequencer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Running сообщает, выполняется ли run.
func (s *Sequencer) Running() bool {
	return s.running.Load()
}

// Run выполняет протокол целиком.
//
// Возвращает запись run в финальном статусе. При ошибке фазы или отмене
// ctx run помечается FAILED или CANCELLED, а ошибка оборачивает ErrRunFailed.
// Некорректные параметры возвращают *domain.ValidationError без записи run.
func (s *Sequencer) Run(ctx context.Context) (*domain.Run, error) {
	if s.cfg.Robot == nil {
		return nil, ErrNoRobot
	}
	if err := s.cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if err := s.cfg.Profile.Validate(); err != nil {
		return nil, err
	}

	ordered, err := s.phases.Ordered()
	if err != nil {
		return nil, err
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	run := domain.NewRun(s.cfg.Params, s.cfg.DriverName, s.cfg.Profile.Name)
	log := telemetry.WithRunID(s.logger, run.ID.String())

	s.pauses.Store(0)
	s.mu.Lock()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	mon := monitor.New(monitor.Config{
		Door:         s.cfg.Robot,
		Interval:     s.cfg.DoorInterval,
		Logger:       log,
		Metrics:      s.cfg.Metrics,
		OnTransition: s.onTransition(ctx, run.ID, log),
	})

	// finish помечает run завершённым и останавливает монитор.
	// Вызывается финализацией или при ошибке, повторный вызов безопасен.
	var once sync.Once
	finish := func() {
		once.Do(func() { close(done) })
		mon.Stop()
	}
	defer finish()

	run.MarkRunning()
	s.journal(ctx, log, "create run", func(ctx context.Context) error {
		return s.cfg.Journal.CreateRun(ctx, run)
	})
	s.publish(ctx, log, domain.NewEvent(domain.EventRunStarted, run.ID, "", ""))

	log.Info("run started",
		"samples", run.Params.SampleCount,
		"columns", run.Params.Columns(),
		"wash_cycles", run.Params.WashCycleCount,
		"driver", run.Driver,
		"profile", run.Profile,
	)

	mon.Start(ctx)

	env := &phases.Env{
		Robot:       s.cfg.Robot,
		Params:      s.cfg.Params,
		Profile:     s.cfg.Profile,
		Layout:      s.cfg.Layout,
		Logger:      log,
		WrapPipette: meter(s.cfg.Metrics),
		OnDone:      finish,
	}

	for _, ph := range ordered {
		if err := s.runPhase(ctx, log, run, env, ph); err != nil {
			finish()
			return s.fail(ctx, log, run, ph.Name(), err)
		}
	}

	finish()
	run.Pauses = int(s.pauses.Load())
	run.MarkSucceeded()
	s.journal(ctx, log, "update run", func(ctx context.Context) error {
		return s.cfg.Journal.UpdateRun(ctx, run)
	})
	s.publish(ctx, log, domain.NewEvent(domain.EventRunSucceeded, run.ID, run.Phase, ""))
	s.cfg.Metrics.RunFinished(run.Status.String())

	log.Info("run succeeded", "duration", run.Duration(), "pauses", run.Pauses)
	return run, nil
}

// runPhase выполняет одну фазу с журналом, событиями и метриками.
func (s *Sequencer) runPhase(ctx context.Context, log *slog.Logger, run *domain.Run, env *phases.Env, ph phases.Phase) error {
	name := ph.Name()
	plog := telemetry.WithPhase(log, name.String())

	run.EnterPhase(name)
	run.Pauses = int(s.pauses.Load())
	rec := domain.NewPhaseRecord(run.ID, name)

	s.journal(ctx, plog, "update run", func(ctx context.Context) error {
		return s.cfg.Journal.UpdateRun(ctx, run)
	})
	s.journal(ctx, plog, "record phase", func(ctx context.Context) error {
		return s.cfg.Journal.RecordPhase(ctx, rec)
	})
	s.publish(ctx, plog, domain.NewEvent(domain.EventPhaseStarted, run.ID, name, ""))
	plog.Info("phase started", "ordinal", rec.Ordinal)

	err := ph.Execute(telemetry.WithLogger(ctx, plog), env)
	rec.Finish(err)
	s.cfg.Metrics.ObservePhase(name.String(), rec.Duration().Seconds())

	s.journal(ctx, plog, "record phase", func(ctx context.Context) error {
		return s.cfg.Journal.RecordPhase(ctx, rec)
	})

	if err != nil {
		s.publish(ctx, plog, domain.NewEvent(domain.EventPhaseFailed, run.ID, name, err.Error()))
		plog.Error("phase failed", "error", err)
		return err
	}

	s.publish(ctx, plog, domain.NewEvent(domain.EventPhaseCompleted, run.ID, name, ""))
	plog.Info("phase completed", "duration", rec.Duration())
	return nil
}

// fail финализирует run после ошибки фазы.
func (s *Sequencer) fail(ctx context.Context, log *slog.Logger, run *domain.Run, phase domain.Phase, cause error) (*domain.Run, error) {
	run.Pauses = int(s.pauses.Load())

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(cause, ctxErr) {
		run.MarkCancelled(ctxErr.Error())
		log.Warn("run cancelled", "phase", phase, "error", cause)
	} else {
		run.MarkFailed(cause.Error())
		log.Error("run failed", "phase", phase, "error", cause)
	}

	s.journal(ctx, log, "update run", func(ctx context.Context) error {
		return s.cfg.Journal.UpdateRun(ctx, run)
	})
	s.publish(ctx, log, domain.NewEvent(domain.TerminalEvent(run.Status), run.ID, phase, run.Error))
	s.cfg.Metrics.RunFinished(run.Status.String())

	return run, fmt.Errorf("%w: %s: %w", ErrRunFailed, phase, cause)
}

// onTransition учитывает паузы и публикует события монитора.
func (s *Sequencer) onTransition(ctx context.Context, runID uuid.UUID, log *slog.Logger) func(monitor.Transition) {
	return func(t monitor.Transition) {
		switch t {
		case monitor.TransitionPaused:
			s.pauses.Add(1)
			s.publish(ctx, log, domain.NewEvent(domain.EventRunPaused, runID, "", monitor.PauseMessage))
		case monitor.TransitionResumed:
			s.publish(ctx, log, domain.NewEvent(domain.EventRunResumed, runID, "", ""))
		}
	}
}

// journal выполняет запись в журнал, если он настроен.
// Ошибки журнала не прерывают run.
func (s *Sequencer) journal(ctx context.Context, log *slog.Logger, op string, fn func(context.Context) error) {
	if s.cfg.Journal == nil {
		return
	}

	ctx, cancel := sinkContext(ctx)
	defer cancel()

	if err := fn(ctx); err != nil {
		log.Warn("journal write failed", "op", op, "error", err)
	}
}

// publish отправляет событие, если шина настроена.
func (s *Sequencer) publish(ctx context.Context, log *slog.Logger, event domain.Event) {
	if s.cfg.Events == nil {
		return
	}

	ctx, cancel := sinkContext(ctx)
	defer cancel()

	if err := s.cfg.Events.PublishEvent(ctx, event); err != nil {
		log.Warn("failed to publish event", "type", event.Type, "error", err)
	}
}

// sinkContext отвязывает запись от отмены run: финальный статус
// должен попасть в журнал и после Ctrl+C.
func sinkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
}
