package calib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeight_ZeroVolume(t *testing.T) {
	p := Biorad200()

	a, b, c, margin := 2.5, 4.9, 1.42, 1.0
	literal := (-a + math.Sqrt((a*a)+b+c*0)) + margin
	assert.Equal(t, literal, p.Height(0))
	assert.InDelta(t, 1.839, p.Height(0), 1e-3)
}

func TestHeight_MatchesLiteralFormula(t *testing.T) {
	p := Biorad200()

	a, b, c, margin := 2.5, 4.9, 1.42, 1.0
	for _, v := range []float64{1, 19, 95, 190, 200} {
		literal := (-a + math.Sqrt((a*a)+b+c*v)) + margin
		assert.Equal(t, literal, Height(p, v), "volume %v", v)
	}
}

func TestHeight_Monotonic(t *testing.T) {
	p := Biorad200()

	prev := p.Height(0)
	for v := 0.5; v <= 300; v += 0.5 {
		h := p.Height(v)
		require.GreaterOrEqual(t, h, prev, "height decreased at %v µl", v)
		prev = h
	}
}

func TestHeight_NegativeVolumeClamped(t *testing.T) {
	p := Biorad200()
	assert.Equal(t, p.Height(0), p.Height(-5))
}

func TestProfile_Validate(t *testing.T) {
	require.NoError(t, Biorad200().Validate())

	bad := []Profile{
		{},
		{Name: "neg", A: 1, B: -5, C: 1},
		{Name: "flat", A: 1, B: 1, C: 0},
		{Name: "margin", A: 1, B: 1, C: 1, Margin: -1},
	}
	for _, p := range bad {
		assert.ErrorIs(t, p.Validate(), ErrInvalidProfile, "profile %q", p.Name)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	p, err := r.Get(DefaultProfileName)
	require.NoError(t, err)
	assert.Equal(t, 1.42, p.C)

	_, err = r.Get("corning_384")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	require.NoError(t, r.Register(Profile{Name: "alpha", A: 2, B: 3, C: 1, Margin: 0.5}))
	names := []string{}
	for _, p := range r.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"alpha", DefaultProfileName}, names)
}

func TestParseProfiles(t *testing.T) {
	data := []byte(`
profiles:
  - name: deepwell_2ml
    a: 4
    b: 2
    c: 0.35
    margin: 2
`)
	profiles, err := ParseProfiles(data)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "deepwell_2ml", profiles[0].Name)
	assert.Equal(t, 0.35, profiles[0].C)

	_, err = ParseProfiles([]byte("profiles:\n  - name: broken\n    c: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestNeedsPreMix(t *testing.T) {
	for cols := 1; cols <= 12; cols++ {
		want := cols == 1 || cols == 6
		assert.Equal(t, want, NeedsPreMix(cols), "columns=%d", cols)
	}
}
