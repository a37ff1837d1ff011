package train

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StdEpsilon is added to every standard deviation so constant columns
// normalise to zero instead of dividing by zero.
const StdEpsilon = 1e-8

// Normalizer holds per-feature mean and population standard deviation.
type Normalizer struct {
	Mean []float64
	Std  []float64
}

// FitNormalizer computes column statistics of x.
func FitNormalizer(x *mat.Dense) Normalizer {
	rows, cols := x.Dims()
	n := Normalizer{Mean: make([]float64, cols), Std: make([]float64, cols)}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		n.Mean[j] = mean
		n.Std[j] = std + StdEpsilon
	}
	return n
}

// Apply returns (x - mean) / std as a new matrix.
func (n Normalizer) Apply(x *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return (v - n.Mean[j]) / n.Std[j]
	}, x)
	return &out
}
