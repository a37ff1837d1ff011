package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pitwall/internal/fsutil"
	"github.com/banshee-data/pitwall/internal/race"
)

// carSeries collects one car's per-lap values.
type carSeries struct {
	id    int
	style race.Style
	wear  map[int]float64
	prob  map[int]float64
	drop  map[int]float64
}

func groupByCar(events []race.LapEvent) ([]*carSeries, int) {
	byID := map[int]*carSeries{}
	maxLap := 0
	for _, ev := range events {
		s, ok := byID[ev.CarID]
		if !ok {
			s = &carSeries{id: ev.CarID, style: ev.Style, wear: map[int]float64{}, prob: map[int]float64{}, drop: map[int]float64{}}
			byID[ev.CarID] = s
		}
		s.wear[ev.Lap] = ev.Snapshot.TireWear
		s.prob[ev.Lap] = ev.Decision.Probability
		s.drop[ev.Lap] = ev.Snapshot.RecentPaceDrop
		if ev.Lap > maxLap {
			maxLap = ev.Lap
		}
	}
	out := make([]*carSeries, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, maxLap
}

func lineData(values map[int]float64, maxLap int) []opts.LineData {
	data := make([]opts.LineData, maxLap)
	for lap := 1; lap <= maxLap; lap++ {
		if v, ok := values[lap]; ok {
			data[lap-1] = opts.LineData{Value: v}
		} else {
			data[lap-1] = opts.LineData{Value: "-"}
		}
	}
	return data
}

func lapChart(title, subtitle, yName string, cars []*carSeries, maxLap int, pick func(*carSeries) map[int]float64) *charts.Line {
	laps := make([]int, maxLap)
	for i := range laps {
		laps[i] = i + 1
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lap", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Min: 0}),
	)
	line.SetXAxis(laps)
	for _, c := range cars {
		line.AddSeries(fmt.Sprintf("car %d (%s)", c.id, c.style), lineData(pick(c), maxLap))
	}
	return line
}

// WriteRaceHTML renders per-lap tire wear, pace drop and pit probability
// for every car as an HTML page.
func WriteRaceHTML(w io.Writer, title string, events []race.LapEvent) error {
	if len(events) == 0 {
		return fmt.Errorf("no lap events to chart")
	}
	cars, maxLap := groupByCar(events)
	subtitle := fmt.Sprintf("cars=%d laps=%d", len(cars), maxLap)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		lapChart("Tire wear", subtitle, "wear", cars, maxLap, func(c *carSeries) map[int]float64 { return c.wear }),
		lapChart("Recent pace drop", subtitle, "drop", cars, maxLap, func(c *carSeries) map[int]float64 { return c.drop }),
		lapChart("Pit probability", subtitle, "p(pit)", cars, maxLap, func(c *carSeries) map[int]float64 { return c.prob }),
	)
	return page.Render(w)
}

// SaveRaceHTML writes the race chart to path.
func SaveRaceHTML(fsys fsutil.FileSystem, path, title string, events []race.LapEvent) error {
	var buf bytes.Buffer
	if err := WriteRaceHTML(&buf, title, events); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save race chart: %w", err)
	}
	return nil
}
