// Package report renders training and race charts: a PNG loss curve with
// gonum/plot and an interactive HTML race chart with go-echarts.
package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pitwall/internal/fsutil"
	"github.com/banshee-data/pitwall/internal/train"
)

var (
	trainColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	valColor   = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	accColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// LossPlot builds the training/validation loss and accuracy plot.
func LossPlot(history []train.EpochStats) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("no training history to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pit-stop network training (%d epochs)", len(history))
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Loss / accuracy"
	p.Add(plotter.NewGrid())

	trainPts := make(plotter.XYs, len(history))
	valPts := make(plotter.XYs, len(history))
	accPts := make(plotter.XYs, len(history))
	for i, h := range history {
		x := float64(h.Epoch)
		trainPts[i] = plotter.XY{X: x, Y: h.TrainLoss}
		valPts[i] = plotter.XY{X: x, Y: h.ValLoss}
		accPts[i] = plotter.XY{X: x, Y: h.ValAccuracy}
	}

	series := []struct {
		name string
		pts  plotter.XYs
		c    color.Color
	}{
		{"train loss", trainPts, trainColor},
		{"val loss", valPts, valColor},
		{"val accuracy", accPts, accColor},
	}
	for _, s := range series {
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", s.name, err)
		}
		line.Width = vg.Points(1.5)
		line.Color = s.c
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteLossPNG renders the loss plot as PNG to w.
func WriteLossPNG(w io.Writer, history []train.EpochStats) error {
	p, err := LossPlot(history)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render loss plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveLossPNG writes the loss plot to path.
func SaveLossPNG(fsys fsutil.FileSystem, path string, history []train.EpochStats) error {
	var buf bytes.Buffer
	if err := WriteLossPNG(&buf, history); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save loss plot: %w", err)
	}
	return nil
}
