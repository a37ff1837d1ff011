package train

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/pitwall/internal/dataset"
	"github.com/banshee-data/pitwall/internal/nn"
)

// metricEpsilon keeps the ratio metrics finite when a class is absent.
const metricEpsilon = 1e-8

// Metrics summarises binary classification quality.
type Metrics struct {
	Loss      float64
	TP        int
	TN        int
	FP        int
	FN        int
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// Evaluate runs net on x and scores its thresholded predictions against
// the 0/1 labels in y.
func Evaluate(net *nn.Network, x, y *mat.Dense, threshold float64) Metrics {
	yHat, _ := net.Forward(x)
	m := Metrics{Loss: nn.Loss(yHat, y)}

	rows, _ := yHat.Dims()
	for i := 0; i < rows; i++ {
		pred := yHat.At(i, 0) >= threshold
		actual := y.At(i, 0) >= 0.5
		switch {
		case pred && actual:
			m.TP++
		case !pred && !actual:
			m.TN++
		case pred:
			m.FP++
		default:
			m.FN++
		}
	}
	m.computeRatios()
	return m
}

func (m *Metrics) computeRatios() {
	tp, tn, fp, fn := float64(m.TP), float64(m.TN), float64(m.FP), float64(m.FN)
	m.Accuracy = (tp + tn) / (tp + tn + fp + fn + metricEpsilon)
	m.Precision = tp / (tp + fp + metricEpsilon)
	m.Recall = tp / (tp + fn + metricEpsilon)
	m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall + metricEpsilon)
}

// String formats the metrics as a small report.
func (m Metrics) String() string {
	return fmt.Sprintf("val_loss:   %.4f\naccuracy:   %.4f\nprecision:  %.4f\nrecall:     %.4f\nf1:         %.4f\n\n"+
		"Confusion Matrix (actual x predicted)\nTN=%d  FP=%d\nFN=%d  TP=%d",
		m.Loss, m.Accuracy, m.Precision, m.Recall, m.F1, m.TN, m.FP, m.FN, m.TP)
}

// EvaluateBundle normalises rows with the bundle's statistics and scores
// its network on them.
func EvaluateBundle(b *nn.Bundle, rows []dataset.Row, threshold float64) (Metrics, error) {
	if len(rows) == 0 {
		return Metrics{}, fmt.Errorf("%w: no rows to evaluate", ErrTooFewRows)
	}
	x, y := dataset.Matrices(rows)
	norm := Normalizer{Mean: b.Mean, Std: b.Std}
	return Evaluate(b.Network, norm.Apply(x), y, threshold), nil
}
