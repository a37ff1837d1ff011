package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitwall/internal/features"
	"github.com/banshee-data/pitwall/internal/fsutil"
	"github.com/banshee-data/pitwall/internal/race"
	"github.com/banshee-data/pitwall/internal/train"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func history(n int) []train.EpochStats {
	h := make([]train.EpochStats, n)
	for i := range h {
		h[i] = train.EpochStats{
			Epoch:       i + 1,
			TrainLoss:   0.7 / float64(i+1),
			ValLoss:     0.75 / float64(i+1),
			ValAccuracy: 0.6 + 0.3*float64(i)/float64(n),
		}
	}
	return h
}

func TestWriteLossPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLossPNG(&buf, history(20)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	assert.Error(t, WriteLossPNG(&buf, nil))
}

func TestSaveLossPNG(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, SaveLossPNG(fs, "out/loss.png", history(5)))

	data, err := fs.ReadFile("out/loss.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestWriteRaceHTML(t *testing.T) {
	events := []race.LapEvent{
		{CarID: 2, Style: race.StyleNormal, Lap: 1, Snapshot: features.Snapshot{TireWear: 0.05}},
		{CarID: 1, Style: race.StyleAggressive, Lap: 1, Snapshot: features.Snapshot{TireWear: 0.07}},
		{CarID: 1, Style: race.StyleAggressive, Lap: 2, Snapshot: features.Snapshot{TireWear: 0.14}, Decision: race.Decision{Pit: true, Probability: 0.8}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRaceHTML(&buf, "Race 1", events))
	html := buf.String()
	assert.Contains(t, html, "Race 1")
	assert.Contains(t, html, "car 1 (aggressive)")
	assert.Contains(t, html, "car 2 (normal)")
	assert.Contains(t, html, "Pit probability")
	assert.Less(t, strings.Index(html, "car 1 (aggressive)"), strings.Index(html, "car 2 (normal)"))

	assert.Error(t, WriteRaceHTML(&buf, "empty", nil))
}

func TestGroupByCarFillsGaps(t *testing.T) {
	events := []race.LapEvent{
		{CarID: 1, Lap: 1, Snapshot: features.Snapshot{TireWear: 0.1}},
		{CarID: 1, Lap: 3, Snapshot: features.Snapshot{TireWear: 0.3}},
	}
	cars, maxLap := groupByCar(events)
	require.Len(t, cars, 1)
	assert.Equal(t, 3, maxLap)

	data := lineData(cars[0].wear, maxLap)
	require.Len(t, data, 3)
	assert.Equal(t, 0.1, data[0].Value)
	assert.Equal(t, "-", data[1].Value)
	assert.Equal(t, 0.3, data[2].Value)
}

func TestSaveRaceHTML(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	events := []race.LapEvent{{CarID: 1, Style: race.StyleConservative, Lap: 1}}

	require.NoError(t, SaveRaceHTML(fs, "race.html", "Race", events))
	assert.True(t, fs.Exists("race.html"))
}
