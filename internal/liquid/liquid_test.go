package liquid

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/beadprep/internal/calib"
	"github.com/shaiso/beadprep/internal/robot"
	"github.com/shaiso/beadprep/internal/robot/sim"
	"github.com/shaiso/beadprep/internal/telemetry"
)

func newDeck(t *testing.T, opts sim.Options) (*sim.Robot, robot.Labware, robot.Pipette) {
	t.Helper()
	ctx := context.Background()

	r := sim.New(opts)
	plate, err := r.LoadLabware(ctx, "biorad_96_wellplate_200ul_pcr", 3)
	require.NoError(t, err)
	rack, err := r.LoadLabware(ctx, "opentrons_96_tiprack_300ul", 8)
	require.NoError(t, err)
	p, err := r.LoadInstrument(ctx, "p300_multi", robot.MountRight, []robot.Labware{rack})
	require.NoError(t, err)
	require.NoError(t, p.PickUpTip(ctx))
	return r, plate, p
}

func TestMix(t *testing.T) {
	r, plate, p := newDeck(t, sim.Options{})

	err := Mix(context.Background(), p, 15, 26, plate.Well("A1"), 0.6, 3)
	require.NoError(t, err)

	liquid := r.Filter(sim.Command.IsLiquid)
	require.Len(t, liquid, 30)
	for i, c := range liquid {
		assert.Equal(t, 26.0, c.Volume)
		assert.Equal(t, 1.0, c.Rate)
		if i%2 == 0 {
			assert.Equal(t, sim.KindAspirate, c.Kind)
			assert.Equal(t, 0.6, c.Location.Point.Z)
		} else {
			assert.Equal(t, sim.KindDispense, c.Kind)
			assert.Equal(t, 3.0, c.Location.Point.Z)
		}
	}
	assert.Equal(t, robot.DefaultClearance, p.Clearance())
}

func TestMix_RestoresClearanceOnFailure(t *testing.T) {
	stall := errors.New("plunger stall")
	dispenses := 0
	_, plate, p := newDeck(t, sim.Options{
		Fail: func(c sim.Command) error {
			if c.Kind != sim.KindDispense {
				return nil
			}
			dispenses++
			if dispenses == 3 {
				return stall
			}
			return nil
		},
	})

	err := Mix(context.Background(), p, 10, 20, plate.Well("A1"), 0.4, 1.5)
	require.ErrorIs(t, err, stall)
	assert.Equal(t, robot.DefaultClearance, p.Clearance())
}

func TestMix_RestoresClearanceOnCancel(t *testing.T) {
	_, plate, p := newDeck(t, sim.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Mix(ctx, p, 5, 20, plate.Well("A1"), 3, 6)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, robot.DefaultClearance, p.Clearance())
}

func TestMix_InvalidArguments(t *testing.T) {
	r, plate, p := newDeck(t, sim.Options{})
	p.SetClearance(robot.Clearance{Aspirate: 7, Dispense: 7})

	err := Mix(context.Background(), p, -1, 20, plate.Well("A1"), 1, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = Mix(context.Background(), p, 3, 0, plate.Well("A1"), 1, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Пипетка не затронута
	assert.Equal(t, robot.Clearance{Aspirate: 7, Dispense: 7}, p.Clearance())
	assert.Empty(t, r.Filter(sim.Command.IsLiquid))
}

func TestMix_ZeroReps(t *testing.T) {
	r, plate, p := newDeck(t, sim.Options{})

	require.NoError(t, Mix(context.Background(), p, 0, 20, plate.Well("A1"), 2, 2))
	assert.Empty(t, r.Filter(sim.Command.IsLiquid))
	assert.Equal(t, robot.DefaultClearance, p.Clearance())
}

func TestStepPlan_SumsToTotal(t *testing.T) {
	profile := calib.Biorad200()

	for _, tc := range []struct {
		volume float64
		steps  int
	}{
		{190, 10},
		{190, 1},
		{100, 3},
		{17.5, 7},
		{0.1, 9},
	} {
		plan, err := StepPlan(tc.volume, tc.steps, profile)
		require.NoError(t, err)
		require.Len(t, plan, tc.steps)

		var sum float64
		for _, s := range plan {
			sum += s.Volume
		}
		assert.InDelta(t, tc.volume, sum, 1e-9, "volume %v in %d steps", tc.volume, tc.steps)
		assert.Equal(t, tc.volume, plan[len(plan)-1].Cumulative)
	}
}

func TestStepPlan_HeightsRise(t *testing.T) {
	profile := calib.Biorad200()

	plan, err := StepPlan(190, 10, profile)
	require.NoError(t, err)

	assert.InDelta(t, profile.Height(19), plan[0].Height, 1e-12)
	assert.InDelta(t, profile.Height(190), plan[9].Height, 1e-12)
	for i := 1; i < len(plan); i++ {
		assert.Greater(t, plan[i].Height, plan[i-1].Height)
	}
}

func TestStepPlan_Invalid(t *testing.T) {
	_, err := StepPlan(100, 0, calib.Biorad200())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = StepPlan(0, 5, calib.Biorad200())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStepwiseDispense(t *testing.T) {
	r, plate, p := newDeck(t, sim.Options{})
	ctx := context.Background()
	well := plate.Well("A2")

	require.NoError(t, p.Aspirate(ctx, 190, well.Bottom(3), 1))
	require.NoError(t, StepwiseDispense(ctx, p, 190, well, 10, calib.Biorad200()))

	dispenses := r.Filter(func(c sim.Command) bool { return c.Kind == sim.KindDispense })
	require.Len(t, dispenses, 10)

	plan, _ := StepPlan(190, 10, calib.Biorad200())
	for i, c := range dispenses {
		assert.Equal(t, well, c.Location.Well)
		assert.InDelta(t, plan[i].Height, c.Location.Point.Z, 1e-12)
	}
	assert.InDelta(t, 0, p.(*sim.Pipette).Volume(), 1e-9)
}

func TestStepPlan_LastStepAtTotalHeight(t *testing.T) {
	profile := calib.Biorad200()

	for _, tc := range []struct {
		volume float64
		steps  int
	}{
		{0.7, 10},
		{190, 7},
		{33.3, 3},
	} {
		plan, err := StepPlan(tc.volume, tc.steps, profile)
		require.NoError(t, err)

		last := plan[len(plan)-1]
		assert.Equal(t, tc.volume, last.Cumulative)
		assert.Equal(t, profile.Height(tc.volume), last.Height)
	}
}

func TestStepwiseDispense_LogsWithContextLogger(t *testing.T) {
	_, plate, p := newDeck(t, sim.Options{})
	well := plate.Well("A1")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := telemetry.WithLogger(context.Background(), logger.With("phase", "wash"))

	require.NoError(t, p.Aspirate(ctx, 100, well.Bottom(3), 1))
	require.NoError(t, StepwiseDispense(ctx, p, 100, well, 4, calib.Biorad200()))

	out := buf.String()
	assert.Contains(t, out, "stepwise dispense")
	assert.Contains(t, out, "phase=wash")
	assert.Contains(t, out, "steps=4")
}
