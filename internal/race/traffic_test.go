package race

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrafficBandFactor(t *testing.T) {
	b := DefaultTrafficBand()

	testCases := []struct {
		name string
		gap  float64
		want float64
	}{
		{"touching", 0, 0.75},
		{"half_threshold", 0.10, 0.825},
		{"at_threshold", 0.20, 1.0},
		{"far", 3.0, 1.0},
		{"negative_gap", -0.1, 0.75},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, b.Factor(tc.gap), 1e-12)
		})
	}

	narrow := NarrowTrafficBand()
	assert.InDelta(t, 0.85, narrow.Factor(0), 1e-12)
	assert.InDelta(t, 0.90, narrow.Factor(0.10), 1e-12)
}

func TestForwardGapWraps(t *testing.T) {
	assert.InDelta(t, 0.2, ForwardGap(TwoPi-0.1, 0.1), 1e-12)
	assert.InDelta(t, TwoPi-0.2, ForwardGap(0.1, TwoPi-0.1), 1e-12)
	assert.Equal(t, 0.0, ForwardGap(1, 1))
}

func TestTrafficFactors(t *testing.T) {
	band := DefaultTrafficBand()
	lead := NewCar(1, 1.10, 1, StyleNormal)
	chase := NewCar(2, 1.00, 1, StyleNormal)
	alone := NewCar(3, 4.00, 1, StyleNormal)
	cars := []*Car{lead, chase, alone}

	got := TrafficFactors(cars, band)
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0])
	assert.InDelta(t, band.Factor(0.10), got[1], 1e-12)
	assert.Equal(t, 1.0, got[2])
}

func TestTrafficIgnoresPittedCars(t *testing.T) {
	band := DefaultTrafficBand()
	pitted := NewCar(1, 1.05, 1, StyleNormal)
	pitted.InPit = true
	pitted.Phase = PhasePitIn
	chase := NewCar(2, 1.00, 1, StyleNormal)

	got := TrafficFactors([]*Car{pitted, chase}, band)
	assert.Equal(t, 1.0, got[1])
}

func TestTrafficIgnoresCarsAtSameAngle(t *testing.T) {
	a := NewCar(1, 2.0, 1, StyleNormal)
	b := NewCar(2, 2.0, 1, StyleNormal)
	got := TrafficFactors([]*Car{a, b}, DefaultTrafficBand())
	assert.Equal(t, []float64{1, 1}, got)
}

func TestSafetyCarLifecycle(t *testing.T) {
	cfg := DefaultSafetyCarConfig()
	cfg.TriggerChance = 1
	sc := NewSafetyCar(cfg, rand.New(rand.NewSource(7)))

	assert.False(t, sc.Active)
	assert.Equal(t, 1.0, sc.Factor)

	sc.Update(0.1)
	require.True(t, sc.Active)
	assert.Equal(t, 1, sc.Deployments)
	assert.GreaterOrEqual(t, sc.Remaining, cfg.DurationMin)
	assert.LessOrEqual(t, sc.Remaining, cfg.DurationMax)
	assert.GreaterOrEqual(t, sc.Factor, cfg.FactorMin)
	assert.LessOrEqual(t, sc.Factor, cfg.FactorMax)

	for sc.Active {
		sc.Update(0.1)
	}
	assert.Equal(t, 1.0, sc.Factor)
	assert.Equal(t, cfg.Cooldown, sc.Cooldown)

	// Cooldown blocks a new deployment even at certain trigger chance.
	for i := 0; i < 100; i++ {
		sc.Update(0.1)
	}
	assert.False(t, sc.Active)
	assert.Equal(t, 1, sc.Deployments)

	for i := 0; i < 60; i++ {
		sc.Update(0.1)
	}
	assert.True(t, sc.Active)
	assert.Equal(t, 2, sc.Deployments)
}

func TestSafetyCarNoTriggerLeavesStateUntouched(t *testing.T) {
	cfg := DefaultSafetyCarConfig()
	cfg.TriggerChance = 0
	sc := NewSafetyCar(cfg, rand.New(rand.NewSource(1)))

	for i := 0; i < 10000; i++ {
		sc.Update(1.0 / 60)
		require.False(t, sc.Active)
		require.Equal(t, 1.0, sc.Factor)
		require.Zero(t, sc.Remaining)
		require.Zero(t, sc.Cooldown)
	}
	assert.Zero(t, sc.Deployments)
}

func TestSafetyCarSeeded(t *testing.T) {
	run := func() []bool {
		sc := NewSafetyCar(DefaultSafetyCarConfig(), rand.New(rand.NewSource(99)))
		out := make([]bool, 0, 20000)
		for i := 0; i < 20000; i++ {
			sc.Update(1.0 / 60)
			out = append(out, sc.Active)
		}
		return out
	}
	assert.Equal(t, run(), run())
}
