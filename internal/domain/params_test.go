package domain

import (
	"errors"
	"testing"
)

func TestParams_Columns(t *testing.T) {
	tests := []struct {
		samples int
		want    int
	}{
		{1, 1},
		{8, 1},
		{9, 2},
		{20, 3},
		{48, 6},
		{95, 12},
		{96, 12},
		{0, 0},
	}

	for _, tt := range tests {
		p := Params{SampleCount: tt.samples}
		if got := p.Columns(); got != tt.want {
			t.Errorf("Columns(%d) = %d, want %d", tt.samples, got, tt.want)
		}
	}
}

func TestParams_DerivedVolumes(t *testing.T) {
	p := Params{SampleCount: 8, SampleVolume: 20, BeadRatio: 0.8, WashCycleCount: 1, ElutionVolume: 15}

	if got := p.BeadVolume(); got != 16 {
		t.Errorf("BeadVolume = %v, want 16", got)
	}
	if got := p.TotalVolume(); got != 36 {
		t.Errorf("TotalVolume = %v, want 36", got)
	}
	if got := p.BindingMixVolume(); got != 26 {
		t.Errorf("BindingMixVolume = %v, want 26", got)
	}
	if got := p.ElutionMixVolume(); got != 12 {
		t.Errorf("ElutionMixVolume = %v, want 12", got)
	}
}

func TestParams_Validate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params should be valid: %v", err)
	}

	tests := []struct {
		name  string
		mut   func(p *Params)
		field string
	}{
		{"zero samples", func(p *Params) { p.SampleCount = 0 }, "sample_count"},
		{"too many samples", func(p *Params) { p.SampleCount = 97 }, "sample_count"},
		{"zero sample volume", func(p *Params) { p.SampleVolume = 0 }, "sample_volume"},
		{"negative ratio", func(p *Params) { p.BeadRatio = -1 }, "bead_ratio"},
		{"no washes", func(p *Params) { p.WashCycleCount = 0 }, "wash_cycle_count"},
		{"zero elution", func(p *Params) { p.ElutionVolume = 0 }, "elution_volume"},
		{"tiny elution", func(p *Params) { p.ElutionVolume = 2 }, "elution_volume"},
		{"tiny mixture", func(p *Params) { p.SampleVolume = 4; p.BeadRatio = 1 }, "sample_volume"},
		{"overfilled well", func(p *Params) { p.SampleVolume = 150; p.BeadRatio = 1 }, "sample_volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mut(&p)

			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestColumnWell(t *testing.T) {
	if got := ColumnWell(1); got != "A1" {
		t.Errorf("expected A1, got %s", got)
	}
	if got := ColumnWell(12); got != "A12" {
		t.Errorf("expected A12, got %s", got)
	}
}

func TestPhaseOrder(t *testing.T) {
	phases := Phases()
	if phases[0] != PhaseSetup || phases[len(phases)-1] != PhaseFinalization {
		t.Fatalf("unexpected phase order: %v", phases)
	}

	for i, p := range phases {
		if p.Ordinal() != i+1 {
			t.Errorf("phase %s: ordinal %d, want %d", p, p.Ordinal(), i+1)
		}
	}

	if _, err := ParsePhase("wash"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParsePhase("centrifuge"); !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("expected ErrUnknownPhase, got %v", err)
	}
}

func TestRun_Lifecycle(t *testing.T) {
	run := NewRun(DefaultParams(), "sim", "biorad")
	if run.Status != RunStatusPending {
		t.Fatalf("expected PENDING, got %s", run.Status)
	}

	run.MarkRunning()
	if run.StartedAt == nil || run.IsFinished() {
		t.Fatal("run should be started and not finished")
	}

	run.MarkFailed("pipette crashed")
	if !run.IsFinished() || run.Status != RunStatusFailed {
		t.Errorf("expected FAILED, got %s", run.Status)
	}
	if run.Error != "pipette crashed" {
		t.Errorf("unexpected error text: %s", run.Error)
	}
	if TerminalEvent(run.Status) != EventRunFailed {
		t.Errorf("expected run.failed event")
	}
}
