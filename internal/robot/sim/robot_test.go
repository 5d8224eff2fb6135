package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/beadprep/internal/robot"
)

func setup(t *testing.T, opts Options) (*Robot, robot.Labware, robot.Labware, robot.Pipette) {
	t.Helper()
	ctx := context.Background()

	r := New(opts)
	plate, err := r.LoadLabware(ctx, "biorad_96_wellplate_200ul_pcr", 3)
	if err != nil {
		t.Fatalf("load plate: %v", err)
	}
	rack, err := r.LoadLabware(ctx, "opentrons_96_tiprack_300ul", 7)
	if err != nil {
		t.Fatalf("load rack: %v", err)
	}
	p, err := r.LoadInstrument(ctx, "p300_multi", robot.MountRight, []robot.Labware{rack})
	if err != nil {
		t.Fatalf("load instrument: %v", err)
	}
	return r, plate, rack, p
}

func TestRobot_SlotOccupied(t *testing.T) {
	r, _, _, _ := setup(t, Options{})

	_, err := r.LoadLabware(context.Background(), "usascientific_96_wellplate_2.4ml_deep", 3)
	if !errors.Is(err, ErrSlotOccupied) {
		t.Errorf("expected ErrSlotOccupied, got %v", err)
	}
}

func TestPipette_TipTracking(t *testing.T) {
	r, _, rack, p := setup(t, Options{})
	ctx := context.Background()

	if err := p.PickUpTip(ctx); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if err := p.PickUpTip(ctx); !errors.Is(err, ErrTipAttached) {
		t.Errorf("expected ErrTipAttached, got %v", err)
	}
	if err := p.DropTip(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := p.DropTip(ctx); !errors.Is(err, ErrNoTip) {
		t.Errorf("expected ErrNoTip, got %v", err)
	}

	// Сброшенный наконечник нельзя взять снова
	if err := p.PickUpTipFrom(ctx, rack.Well("A1")); !errors.Is(err, ErrTipUnavailable) {
		t.Errorf("expected ErrTipUnavailable, got %v", err)
	}

	// Возвращённый наконечник можно взять повторно
	if err := p.PickUpTipFrom(ctx, rack.Well("A5")); err != nil {
		t.Fatalf("pick up A5: %v", err)
	}
	if err := p.ReturnTip(ctx); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := p.PickUpTipFrom(ctx, rack.Well("A5")); err != nil {
		t.Errorf("returned tip should be reusable: %v", err)
	}

	picks := r.Filter(func(c Command) bool { return c.Kind == KindPickUpTip })
	if len(picks) != 3 {
		t.Fatalf("expected 3 pick ups, got %d", len(picks))
	}
	if picks[0].Tip != rack.Well("A1") {
		t.Errorf("first automatic pick should be A1, got %s", picks[0].Tip)
	}
}

func TestPipette_OutOfTips(t *testing.T) {
	_, _, _, p := setup(t, Options{})
	ctx := context.Background()

	for i := 0; i < tipColumns; i++ {
		if err := p.PickUpTip(ctx); err != nil {
			t.Fatalf("pick %d: %v", i, err)
		}
		if err := p.DropTip(ctx); err != nil {
			t.Fatalf("drop %d: %v", i, err)
		}
	}

	if err := p.PickUpTip(ctx); !errors.Is(err, ErrOutOfTips) {
		t.Errorf("expected ErrOutOfTips, got %v", err)
	}
}

func TestPipette_Volumes(t *testing.T) {
	_, plate, _, p := setup(t, Options{})
	ctx := context.Background()
	well := plate.Well("A1")

	if err := p.Aspirate(ctx, 10, well.Bottom(1), 1); !errors.Is(err, ErrNoTip) {
		t.Errorf("expected ErrNoTip, got %v", err)
	}

	_ = p.PickUpTip(ctx)

	if err := p.Aspirate(ctx, 250, well.Bottom(1), 1); err != nil {
		t.Fatalf("aspirate: %v", err)
	}
	if err := p.Aspirate(ctx, 60, well.Bottom(1), 1); !errors.Is(err, ErrOverCapacity) {
		t.Errorf("expected ErrOverCapacity, got %v", err)
	}
	if err := p.Dispense(ctx, 260, well.Bottom(1), 1); !errors.Is(err, ErrInsufficientVolume) {
		t.Errorf("expected ErrInsufficientVolume, got %v", err)
	}
	if err := p.Dispense(ctx, 250, well.Bottom(1), 1); err != nil {
		t.Errorf("dispense: %v", err)
	}

	other := robot.Well{Labware: "missing", Name: "A1"}
	if err := p.Aspirate(ctx, 5, other.Bottom(1), 1); !errors.Is(err, ErrUnknownLabware) {
		t.Errorf("expected ErrUnknownLabware, got %v", err)
	}
}

func TestPipette_ClearanceResolved(t *testing.T) {
	r, plate, _, p := setup(t, Options{})
	ctx := context.Background()

	_ = p.PickUpTip(ctx)
	p.SetClearance(robot.Clearance{Aspirate: 0.6, Dispense: 3})

	_ = p.Aspirate(ctx, 20, plate.Well("A1").AtClearance(), 1)
	_ = p.Dispense(ctx, 20, plate.Well("A1").AtClearance(), 1)

	liquid := r.Filter(Command.IsLiquid)
	if len(liquid) != 2 {
		t.Fatalf("expected 2 liquid commands, got %d", len(liquid))
	}
	if liquid[0].Location.Point.Z != 0.6 {
		t.Errorf("aspirate height: expected 0.6, got %v", liquid[0].Location.Point.Z)
	}
	if liquid[1].Location.Point.Z != 3 {
		t.Errorf("dispense height: expected 3, got %v", liquid[1].Location.Point.Z)
	}
}

func TestPipette_TransferSplitsVolume(t *testing.T) {
	ctx := context.Background()
	r := New(Options{})
	src, _ := r.LoadLabware(ctx, "biorad_96_wellplate_200ul_pcr", 1)
	dst, _ := r.LoadLabware(ctx, "biorad_96_wellplate_200ul_pcr", 3)
	rack, _ := r.LoadLabware(ctx, "opentrons_96_tiprack_10ul", 11)
	p10, err := r.LoadInstrument(ctx, "p10_multi", robot.MountLeft, []robot.Labware{rack})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	_ = p10.PickUpTip(ctx)
	if err := p10.Transfer(ctx, 12, src.Well("A1").Bottom(1), dst.Well("A1").Bottom(1), robot.TransferOptions{}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	asp := r.Filter(func(c Command) bool { return c.Kind == KindAspirate })
	if len(asp) != 2 {
		t.Fatalf("expected 2 aspirations, got %d", len(asp))
	}
	for _, c := range asp {
		if c.Volume != 6 {
			t.Errorf("expected 6 µl parts, got %v", c.Volume)
		}
	}
}

func TestRobot_PauseBlocksCommands(t *testing.T) {
	r, _, _, p := setup(t, Options{})
	ctx := context.Background()

	if err := r.Pause(ctx, "door open"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !r.IsPaused() {
		t.Fatal("robot should be paused")
	}

	done := make(chan error, 1)
	go func() {
		done <- p.PickUpTip(ctx)
	}()

	select {
	case <-done:
		t.Fatal("command should block while paused")
	case <-time.After(50 * time.Millisecond):
	}

	if err := r.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("command did not resume")
	}
}

func TestRobot_PausedCommandCancelled(t *testing.T) {
	r, _, _, p := setup(t, Options{})

	_ = r.Pause(context.Background(), "door open")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := p.PickUpTip(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRobot_FailInjection(t *testing.T) {
	injected := errors.New("motor stall")
	r, _, _, p := setup(t, Options{
		Fail: func(c Command) error {
			if c.Kind == KindPickUpTip {
				return injected
			}
			return nil
		},
	})

	if err := p.PickUpTip(context.Background()); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
	if r.Count(KindPickUpTip) != 0 {
		t.Error("failed command should not be recorded")
	}
}

func TestRobot_DelayVirtualClock(t *testing.T) {
	r := New(Options{})
	start := time.Now()

	if err := r.Delay(context.Background(), 5*time.Minute); err != nil {
		t.Fatalf("delay: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("virtual delay should not sleep")
	}
	if r.Elapsed() != 5*time.Minute {
		t.Errorf("expected 5m elapsed, got %s", r.Elapsed())
	}
}

func TestRobot_RealtimeDelayCancelled(t *testing.T) {
	r := New(Options{Realtime: true})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := r.Delay(ctx, time.Minute); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	reg := robot.NewRegistry()
	Register(reg)

	proto, err := reg.Open(DriverName, robot.DriverConfig{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := proto.(*Robot); !ok {
		t.Errorf("expected *Robot, got %T", proto)
	}

	if _, err := reg.Open("ot2-http", robot.DriverConfig{}); !errors.Is(err, robot.ErrDriverNotFound) {
		t.Errorf("expected ErrDriverNotFound, got %v", err)
	}
}
