package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/phases"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"DB_URL", "SQLITE_PATH", "RABBITMQ_URL", "API_PORT", "METRICS_ADDR", "DOOR_POLL_INTERVAL"} {
		t.Setenv(k, "")
	}

	env, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIPort, env.APIPort)
	assert.Equal(t, ":8090", env.APIAddr())
	assert.Equal(t, time.Second, env.DoorPollInterval)
	assert.Empty(t, env.DatabaseURL)
	assert.Empty(t, env.MetricsAddr)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_URL", "postgresql://localhost/beadprep")
	t.Setenv("API_PORT", "9000")
	t.Setenv("METRICS_ADDR", ":9100")
	t.Setenv("DOOR_POLL_INTERVAL", "250ms")

	env, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgresql://localhost/beadprep", env.DatabaseURL)
	assert.Equal(t, ":9000", env.APIAddr())
	assert.Equal(t, ":9100", env.MetricsAddr)
	assert.Equal(t, 250*time.Millisecond, env.DoorPollInterval)
}

func TestFromEnv_BadInterval(t *testing.T) {
	for _, v := range []string{"soon", "-1s", "0s"} {
		t.Setenv("DOOR_POLL_INTERVAL", v)
		_, err := FromEnv()
		assert.ErrorIs(t, err, ErrInvalidConfig, v)
	}
}

func TestParseRunFile_PartialOverride(t *testing.T) {
	rf, err := ParseRunFile([]byte(`
profile: custom_plate
params:
  sample_count: 24
  wash_cycle_count: 2
layout:
  mag_slot: 4
`))
	require.NoError(t, err)

	assert.Equal(t, "custom_plate", rf.Profile)
	assert.Equal(t, 24, rf.Params.SampleCount)
	assert.Equal(t, 2, rf.Params.WashCycleCount)
	assert.Equal(t, domain.DefaultSampleVolume, rf.Params.SampleVolume)
	assert.Equal(t, domain.DefaultBeadRatio, rf.Params.BeadRatio)

	assert.Equal(t, 4, rf.Layout.MagSlot)
	assert.Equal(t, phases.DefaultLayout().TipRackSlots, rf.Layout.TipRackSlots)
}

func TestParseRunFile_Empty(t *testing.T) {
	rf, err := ParseRunFile(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRunFile().Params, rf.Params)
	assert.Empty(t, rf.Profile)
}

func TestParseRunFile_Invalid(t *testing.T) {
	_, err := ParseRunFile([]byte("params:\n  sample_count: 97\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	_, err = ParseRunFile([]byte("layout:\n  mag_slot: 2\n"))
	assert.ErrorIs(t, err, phases.ErrInvalidLayout)

	_, err = ParseRunFile([]byte("params: [1, 2"))
	assert.Error(t, err)
}

func TestLoadParamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("params:\n  sample_count: 8\n"), 0o644))

	rf, err := LoadParamsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, rf.Params.Columns())

	_, err = LoadParamsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
