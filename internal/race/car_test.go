package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noModifiers = Conditions{TrafficFactor: 1, SCFactor: 1}

func TestStyleWearRates(t *testing.T) {
	assert.Equal(t, 0.009, StyleAggressive.WearRate())
	assert.Equal(t, 0.006, StyleNormal.WearRate())
	assert.Equal(t, 0.004, StyleConservative.WearRate())

	s, err := ParseStyle(" Conservative ")
	require.NoError(t, err)
	assert.Equal(t, StyleConservative, s)

	_, err = ParseStyle("reckless")
	assert.Error(t, err)

	styles, err := ParseStyles("aggressive, normal,conservative")
	require.NoError(t, err)
	assert.Equal(t, []Style{StyleAggressive, StyleNormal, StyleConservative}, styles)

	_, err = ParseStyles("normal,,aggressive")
	assert.Error(t, err)
}

func TestAngularSpeedFreshTires(t *testing.T) {
	c := NewCar(1, 0, 1.3, StyleNormal)
	assert.Equal(t, 1.3, c.AngularSpeed())

	c.TireWear = 1
	assert.InDelta(t, 1.3*0.7, c.AngularSpeed(), 1e-12)
}

func TestRacingTickAdvancesAndWears(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, 3.0, 1.0, StyleAggressive)

	lap := c.Update(0.5, tr, Conditions{TrafficFactor: 0.8, SCFactor: 0.5})
	assert.False(t, lap)

	wear := 0.009 * 0.5
	assert.InDelta(t, wear, c.TireWear, 1e-12)
	speed := 1.0 * (1 - 0.3*wear) * 0.8 * 0.5
	assert.InDelta(t, speed, c.Speed, 1e-12)
	assert.InDelta(t, 3.0+speed*0.5, c.Angle, 1e-12)
	assert.InDelta(t, 0.5, c.SecondsInTraffic, 1e-12)
}

func TestTireWearClampsAtOne(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, 3.0, 0, StyleAggressive)
	c.TireWear = 0.999
	c.Update(10, tr, noModifiers)
	assert.Equal(t, 1.0, c.TireWear)
}

func TestLapCompletesOnWrap(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, TwoPi-0.01, 1.0, StyleNormal)

	lap := c.Update(1.0/60, tr, noModifiers)
	require.True(t, lap)
	assert.Equal(t, 1, c.LapCount)
	assert.Equal(t, 1, c.LapsSincePit)
	assert.Less(t, c.Angle, 1.0)
	assert.Len(t, c.LapSpeeds(), 1)
}

func TestLapCountIncrementsOncePerWrap(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, 0, 1.0, StyleConservative)

	dt := 1.0 / 60
	wraps := 0
	prev := c.Angle
	prevLaps := c.LapCount
	for i := 0; i < 60*60; i++ {
		lap := c.Update(dt, tr, noModifiers)
		if c.Angle < prev {
			wraps++
		}
		require.GreaterOrEqual(t, c.LapCount, prevLaps)
		if lap {
			assert.Equal(t, prevLaps+1, c.LapCount)
		} else {
			assert.Equal(t, prevLaps, c.LapCount)
		}
		prev, prevLaps = c.Angle, c.LapCount
	}
	assert.Equal(t, wraps, c.LapCount)
	assert.Greater(t, c.LapCount, 5)
}

func TestLapSpeedHistoryIsBounded(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, 0, 2.0, StyleConservative)
	for c.LapCount < 7 {
		c.Update(1.0/60, tr, noModifiers)
	}
	speeds := c.LapSpeeds()
	assert.Len(t, speeds, lapSpeedWindow)
	for _, s := range speeds {
		assert.InDelta(t, 2.0, s, 0.1)
	}
}

func TestRequestPitOnlyOnce(t *testing.T) {
	c := NewCar(1, 0, 1, StyleNormal)
	assert.True(t, c.RequestPit())
	assert.False(t, c.RequestPit())

	c.WantsPit = false
	c.InPit = true
	assert.False(t, c.RequestPit())
}

func TestPitStopCycle(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, tr.PitEntry-0.05, 1.0, StyleNormal)
	c.TireWear = 0.8
	c.LapsSincePit = 12
	require.True(t, c.RequestPit())

	dt := 1.0 / 60
	phases := []Phase{c.Phase}
	for i := 0; i < 60*30 && len(phases) < 5; i++ {
		c.Update(dt, tr, noModifiers)

		switch c.Phase {
		case PhasePitIn, PhasePitOut:
			assert.True(t, c.InPit)
			assert.Equal(t, tr.PitLanePoint(c.Angle), c.Position(tr))
		case PhasePitStop:
			assert.True(t, c.InPit)
			assert.Equal(t, tr.PitBox(), c.Angle)
		case PhaseRacing:
			assert.False(t, c.InPit)
		}

		if c.Phase != phases[len(phases)-1] {
			phases = append(phases, c.Phase)
		}
	}

	assert.Equal(t, []Phase{PhaseRacing, PhasePitIn, PhasePitStop, PhasePitOut, PhaseRacing}, phases)
	assert.Equal(t, tr.PitExit, c.Angle)
	assert.False(t, c.WantsPit)
	assert.Equal(t, 0, c.LapsSincePit)
	assert.Zero(t, c.TireWear)
	assert.Equal(t, tr.CenterlinePoint(c.Angle), c.Position(tr))
}

func TestPitStopDuration(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, tr.PitBox(), 1.0, StyleNormal)
	c.Phase = PhasePitStop
	c.InPit = true
	c.PitTimer = PitStopDuration
	c.TireWear = 0.9

	dt := 0.5
	ticks := 0
	for c.Phase == PhasePitStop {
		c.Update(dt, tr, noModifiers)
		ticks++
		require.Less(t, ticks, 100)
	}
	assert.Equal(t, 6, ticks)
	assert.Equal(t, PhasePitOut, c.Phase)
	assert.Equal(t, tr.PitBox(), c.Angle)
	assert.Equal(t, 1, c.PitStops)
}

func TestLapSpeedExcludesPitLane(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, 0, 1.0, StyleNormal)
	require.True(t, c.RequestPit())

	dt := 1.0 / 60
	for i := 0; i < 60*60 && c.LapCount < 1; i++ {
		c.Update(dt, tr, noModifiers)
	}
	require.Equal(t, 1, c.LapCount)
	assert.Equal(t, 1, c.PitStops)

	// Only racing ticks count, so the stop does not show up as lost pace.
	speeds := c.LapSpeeds()
	require.Len(t, speeds, 1)
	assert.InDelta(t, 1.0, speeds[0], 0.03)
	assert.Less(t, speeds[0], 1.0)
}

func TestNoPitEntryWithoutRequest(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, tr.PitEntry-0.01, 1.0, StyleNormal)
	for i := 0; i < 60; i++ {
		c.Update(1.0/60, tr, noModifiers)
	}
	assert.Equal(t, PhaseRacing, c.Phase)
	assert.False(t, c.InPit)
}

func TestPitLaneIgnoresModifiers(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())
	c := NewCar(1, tr.PitEntry, 1.0, StyleNormal)
	c.Phase = PhasePitIn
	c.InPit = true

	before := c.Angle
	c.Update(0.1, tr, Conditions{TrafficFactor: 0.5, SCFactor: 0.6})
	assert.InDelta(t, before+PitLaneSpeedFactor*0.1, c.Angle, 1e-12)
	assert.Zero(t, c.TireWear)
}
