// Package train fits the pit-stop network to a labelled dataset: seeded
// train/validation split, normalization fitted on the training split only,
// and minibatch gradient descent with per-epoch seeded shuffles.
package train

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/pitwall/internal/dataset"
	"github.com/banshee-data/pitwall/internal/monitoring"
	"github.com/banshee-data/pitwall/internal/nn"
)

var logf = monitoring.Prefixed("[train] ")

// Config holds the training hyperparameters.
type Config struct {
	Epochs       int
	LearningRate float64
	BatchSize    int
	ValRatio     float64
	Seed         int64
	Threshold    float64 // classification threshold for validation accuracy
	ReportEvery  int     // log every N epochs, plus epoch 1; <= 0 disables
}

// DefaultConfig returns the standard hyperparameters.
func DefaultConfig() Config {
	return Config{
		Epochs:       150,
		LearningRate: 0.01,
		BatchSize:    64,
		ValRatio:     0.2,
		Seed:         nn.DefaultSeed,
		Threshold:    nn.DefaultThreshold,
		ReportEvery:  10,
	}
}

// Validate checks the hyperparameters.
func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.ValRatio <= 0 || c.ValRatio >= 1 {
		return fmt.Errorf("validation ratio must be in (0,1), got %g", c.ValRatio)
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("threshold must be in (0,1), got %g", c.Threshold)
	}
	return nil
}

// ErrTooFewRows is returned when a split leaves either side empty.
var ErrTooFewRows = errors.New("not enough rows to train")

// Split shuffles rows with seed and returns the training and validation
// parts. The validation part has floor(len(rows)*valRatio) rows.
func Split(rows []dataset.Row, valRatio float64, seed int64) (trainRows, valRows []dataset.Row) {
	idx := rand.New(rand.NewSource(seed)).Perm(len(rows))
	nVal := int(float64(len(rows)) * valRatio)

	valRows = make([]dataset.Row, 0, nVal)
	trainRows = make([]dataset.Row, 0, len(rows)-nVal)
	for i, j := range idx {
		if i < nVal {
			valRows = append(valRows, rows[j])
		} else {
			trainRows = append(trainRows, rows[j])
		}
	}
	return trainRows, valRows
}

// Minibatches returns a seeded permutation of [0, n) cut into batches of
// at most size rows.
func Minibatches(n, size int, seed int64) [][]int {
	if n <= 0 || size <= 0 {
		return nil
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	out := make([][]int, 0, (n+size-1)/size)
	for s := 0; s < n; s += size {
		out = append(out, perm[s:min(s+size, n)])
	}
	return out
}

// EpochStats is one point of the training history.
type EpochStats struct {
	Epoch       int
	TrainLoss   float64
	ValLoss     float64
	ValAccuracy float64
}

// Result is a fitted model with its training history.
type Result struct {
	Network    *nn.Network
	Normalizer Normalizer
	History    []EpochStats
	TrainRows  int
	ValRows    int
}

// Bundle packages the result for persistence and inference.
func (r *Result) Bundle() *nn.Bundle {
	return nn.NewBundle(r.Network, r.Normalizer.Mean, r.Normalizer.Std)
}

// Final returns the last epoch's stats.
func (r *Result) Final() EpochStats {
	if len(r.History) == 0 {
		return EpochStats{}
	}
	return r.History[len(r.History)-1]
}

// Run splits rows and fits a network on them.
func Run(cfg Config, rows []dataset.Row) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	trainRows, valRows := Split(rows, cfg.ValRatio, cfg.Seed)
	return Fit(cfg, trainRows, valRows)
}

// Fit trains a freshly initialised network. Normalization statistics come
// from trainRows only and are applied to both splits.
func Fit(cfg Config, trainRows, valRows []dataset.Row) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(trainRows) == 0 || len(valRows) == 0 {
		return nil, fmt.Errorf("%w: %d training and %d validation rows", ErrTooFewRows, len(trainRows), len(valRows))
	}

	xTrain, yTrain := dataset.Matrices(trainRows)
	xVal, yVal := dataset.Matrices(valRows)

	norm := FitNormalizer(xTrain)
	xTrain = norm.Apply(xTrain)
	xVal = norm.Apply(xVal)

	net := nn.New(cfg.Seed)
	res := &Result{
		Network:    net,
		Normalizer: norm,
		History:    make([]EpochStats, 0, cfg.Epochs),
		TrainRows:  len(trainRows),
		ValRows:    len(valRows),
	}

	logf("training on %d rows, validating on %d (epochs=%d batch=%d lr=%g)",
		len(trainRows), len(valRows), cfg.Epochs, cfg.BatchSize, cfg.LearningRate)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		for _, batch := range Minibatches(len(trainRows), cfg.BatchSize, cfg.Seed+int64(epoch)) {
			xb, yb := gather(xTrain, yTrain, batch)
			_, cache := net.Forward(xb)
			net.Step(net.Backward(cache, yb), cfg.LearningRate)
		}

		stats := EpochStats{Epoch: epoch}
		trainHat, _ := net.Forward(xTrain)
		stats.TrainLoss = nn.Loss(trainHat, yTrain)
		val := Evaluate(net, xVal, yVal, cfg.Threshold)
		stats.ValLoss = val.Loss
		stats.ValAccuracy = val.Accuracy
		res.History = append(res.History, stats)

		if cfg.ReportEvery > 0 && (epoch == 1 || epoch%cfg.ReportEvery == 0) {
			logf("Epoch %03d | train_loss=%.4f val_loss=%.4f val_acc=%.4f",
				epoch, stats.TrainLoss, stats.ValLoss, stats.ValAccuracy)
		}
	}
	return res, nil
}

// gather copies the rows listed in idx into new matrices.
func gather(x, y *mat.Dense, idx []int) (*mat.Dense, *mat.Dense) {
	_, cols := x.Dims()
	xb := mat.NewDense(len(idx), cols, nil)
	yb := mat.NewDense(len(idx), 1, nil)
	for i, j := range idx {
		xb.SetRow(i, x.RawRowView(j))
		yb.Set(i, 0, y.At(j, 0))
	}
	return xb, yb
}
