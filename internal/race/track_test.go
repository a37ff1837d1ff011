package race

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackDerivedGeometry(t *testing.T) {
	tr, err := NewTrack(DefaultTrackConfig())
	require.NoError(t, err)

	assert.Equal(t, 300.0, tr.InnerRX)
	assert.Equal(t, 150.0, tr.InnerRY)
	assert.Equal(t, 350.0, tr.CenterRX)
	assert.Equal(t, 200.0, tr.CenterRY)
	assert.Equal(t, 250.0, tr.PitRX)
	assert.Equal(t, 100.0, tr.PitRY)
	assert.InDelta(t, math.Pi/2, tr.PitBox(), 1e-12)

	require.Len(t, tr.PitPoints, pitLanePolylineSteps+1)
	assert.Equal(t, tr.PitLanePoint(tr.PitEntry), tr.PitPoints[0])
	assert.Equal(t, tr.PitLanePoint(tr.PitExit), tr.PitPoints[pitLanePolylineSteps])
}

func TestNewTrackRejectsBadGeometry(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*TrackConfig)
	}{
		{"zero_radius", func(c *TrackConfig) { c.RX = 0 }},
		{"width_too_large", func(c *TrackConfig) { c.Width = 300 }},
		{"entry_after_exit", func(c *TrackConfig) { c.PitEntry, c.PitExit = 2.0, 1.0 }},
		{"exit_past_pi", func(c *TrackConfig) { c.PitExit = math.Pi + 0.1 }},
		{"negative_entry", func(c *TrackConfig) { c.PitEntry = -0.1 }},
		{"pit_lane_outside", func(c *TrackConfig) { c.PitLaneOffset = 200 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultTrackConfig()
			tc.mutate(&cfg)
			_, err := NewTrack(cfg)
			assert.Error(t, err)
		})
	}
}

func TestCenterlinePoint(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())

	p := tr.CenterlinePoint(0)
	assert.InDelta(t, 950, p.X, 1e-9)
	assert.InDelta(t, 400, p.Y, 1e-9)

	p = tr.CenterlinePoint(math.Pi / 2)
	assert.InDelta(t, 600, p.X, 1e-9)
	assert.InDelta(t, 600, p.Y, 1e-9)
}

func TestInPitZone(t *testing.T) {
	tr := MustNewTrack(DefaultTrackConfig())

	testCases := []struct {
		angle float64
		want  bool
	}{
		{0, false},
		{tr.PitEntry, true},
		{tr.PitBox(), true},
		{tr.PitExit, true},
		{tr.PitExit + 0.01, false},
		{tr.PitBox() + TwoPi, true},
		{tr.PitBox() - TwoPi, true},
		{5.0, false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, tr.InPitZone(tc.angle), "angle %g", tc.angle)
	}
}

func TestWrapAngle(t *testing.T) {
	assert.Equal(t, 0.0, wrapAngle(TwoPi))
	assert.InDelta(t, 1.0, wrapAngle(TwoPi+1), 1e-12)
	assert.InDelta(t, TwoPi-1, wrapAngle(-1), 1e-12)

	a := wrapAngle(-1e-18)
	assert.True(t, a >= 0 && a < TwoPi)
}
