package main

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitwall/internal/features"
	"github.com/banshee-data/pitwall/internal/fsutil"
	"github.com/banshee-data/pitwall/internal/monitoring"
	"github.com/banshee-data/pitwall/internal/nn"
	"github.com/banshee-data/pitwall/internal/race"
)

func quiet(t *testing.T) {
	t.Helper()
	prev := monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })
}

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags(flag.NewFlagSet("race", flag.ContinueOnError), nil)
	require.NoError(t, err)
	assert.Equal(t, "narrow", o.traffic)
	assert.Equal(t, "aggressive,normal,conservative", o.styles)
	assert.Empty(t, o.bundle)
}

func TestBuildRace(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()

	r, err := buildRace(options{styles: "normal,normal", traffic: "narrow", laps: 3, seed: 1}, fs)
	require.NoError(t, err)
	assert.Len(t, r.Cars, 2)
	assert.Equal(t, race.ModeAdvise, r.Config().Mode)
	assert.Equal(t, race.NarrowTrafficBand(), r.Config().Traffic)
	assert.Equal(t, 3, r.Config().TotalLaps)
	// The labelling rules never advise a live race.
	assert.Nil(t, r.Config().Decider)
	assert.Positive(t, r.Config().PitWearThreshold)

	require.NoError(t, nn.NewBundle(nn.New(1), make([]float64, features.Count), ones(features.Count)).Save(fs, "pit.bundle"))
	r, err = buildRace(options{styles: "aggressive", traffic: "wide", bundle: "pit.bundle", threshold: 0.7}, fs)
	require.NoError(t, err)
	adv, ok := r.Config().Decider.(*nn.Advisor)
	require.True(t, ok)
	assert.Equal(t, 0.7, adv.Threshold)
	assert.Equal(t, race.DefaultTrafficBand(), r.Config().Traffic)

	_, err = buildRace(options{styles: "normal", traffic: "heavy"}, fs)
	assert.Error(t, err)
	_, err = buildRace(options{styles: "normal", traffic: "narrow", bundle: "missing.bundle"}, fs)
	assert.Error(t, err)
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func TestHudLine(t *testing.T) {
	ev := race.LapEvent{
		CarID:     2,
		Style:     race.StyleAggressive,
		Lap:       7,
		Snapshot:  features.Snapshot{TireWear: 0.5, LapsSincePit: 7, GapAhead: 1.25, GapBehind: 30, SafetyCarActive: true},
		Decision:  race.Decision{Pit: true, Probability: 0.81},
		Requested: true,
	}
	line := hudLine(ev, 50)
	assert.True(t, strings.HasPrefix(line, "lap  7/50  car 2 aggressive"))
	assert.Contains(t, line, "wear=0.50")
	assert.Contains(t, line, "p(pit)=0.81")
	assert.True(t, strings.HasSuffix(line, "SC  BOX"))
}

func TestRunPrintsLapsAndChart(t *testing.T) {
	quiet(t)
	fs := fsutil.NewMemoryFileSystem()
	var out bytes.Buffer

	o := options{styles: "aggressive,conservative", traffic: "narrow", laps: 4, seed: 3, htmlDir: "charts", title: "Short race"}
	require.NoError(t, run(context.Background(), o, fs, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// One HUD line per car per lap, then the summary and chart lines.
	require.Len(t, lines, 2*4+2)
	assert.Contains(t, lines[8], "Race finished")
	assert.True(t, fs.Exists("charts/Short_race.html"))
}

func TestRunWithoutBundleUsesWearThreshold(t *testing.T) {
	quiet(t)
	fs := fsutil.NewMemoryFileSystem()
	r, err := buildRace(options{styles: "aggressive", traffic: "narrow", laps: 30, seed: 2}, fs)
	require.NoError(t, err)
	res := r.Run()
	require.False(t, res.Truncated)

	for _, ev := range res.Events {
		assert.Zero(t, ev.Decision.Probability)
		assert.False(t, ev.Requested)
	}
	// An aggressive stint reaches the wear threshold well inside 30 laps.
	assert.GreaterOrEqual(t, r.Cars[0].PitStops, 1)
}

func TestRunQuiet(t *testing.T) {
	quiet(t)
	var out bytes.Buffer
	o := options{styles: "normal", traffic: "narrow", laps: 2, seed: 1, quiet: true}
	require.NoError(t, run(context.Background(), o, fsutil.NewMemoryFileSystem(), &out))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}
