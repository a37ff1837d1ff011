// Package nn implements the pit-stop network: a fixed 9-16-8-1 perceptron
// with ReLU hidden layers and a sigmoid output, trained by plain minibatch
// gradient descent on binary cross-entropy.
package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/pitwall/internal/features"
)

// Layer widths.
const (
	Inputs  = features.Count
	Hidden1 = 16
	Hidden2 = 8
	Outputs = 1
)

// DefaultSeed seeds weight initialisation when no seed is configured.
const DefaultSeed = 42

// Epsilon keeps predictions away from 0 and 1 inside the loss.
const Epsilon = 1e-8

// sigmoidClip bounds the sigmoid input to avoid overflow in exp.
const sigmoidClip = 50.0

// Network holds the weights and biases. Biases are 1×n row vectors.
type Network struct {
	W1, B1 *mat.Dense // 9×16, 1×16
	W2, B2 *mat.Dense // 16×8, 1×8
	W3, B3 *mat.Dense // 8×1, 1×1
}

// Cache keeps the intermediate activations of a forward pass for Backward.
type Cache struct {
	X      *mat.Dense
	Z1, A1 *mat.Dense
	Z2, A2 *mat.Dense
	Z3     *mat.Dense
	YHat   *mat.Dense
}

// Gradients mirror the Network parameters.
type Gradients struct {
	W1, B1 *mat.Dense
	W2, B2 *mat.Dense
	W3, B3 *mat.Dense
}

// New returns a He-initialised network with zero biases. The same seed
// always yields the same weights.
func New(seed int64) *Network {
	rng := rand.New(rand.NewSource(seed))
	return &Network{
		W1: heInit(rng, Inputs, Hidden1),
		B1: mat.NewDense(1, Hidden1, nil),
		W2: heInit(rng, Hidden1, Hidden2),
		B2: mat.NewDense(1, Hidden2, nil),
		W3: heInit(rng, Hidden2, Outputs),
		B3: mat.NewDense(1, Outputs, nil),
	}
}

func heInit(rng *rand.Rand, fanIn, fanOut int) *mat.Dense {
	scale := math.Sqrt(2.0 / float64(fanIn))
	data := make([]float64, fanIn*fanOut)
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
	return mat.NewDense(fanIn, fanOut, data)
}

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	return &Network{
		W1: mat.DenseCopyOf(n.W1), B1: mat.DenseCopyOf(n.B1),
		W2: mat.DenseCopyOf(n.W2), B2: mat.DenseCopyOf(n.B2),
		W3: mat.DenseCopyOf(n.W3), B3: mat.DenseCopyOf(n.B3),
	}
}

// Forward runs X (m×9) through the network and returns ŷ (m×1).
func (n *Network) Forward(X *mat.Dense) (*mat.Dense, *Cache) {
	c := &Cache{X: X}
	c.Z1 = affine(X, n.W1, n.B1)
	c.A1 = relu(c.Z1)
	c.Z2 = affine(c.A1, n.W2, n.B2)
	c.A2 = relu(c.Z2)
	c.Z3 = affine(c.A2, n.W3, n.B3)
	c.YHat = sigmoid(c.Z3)
	return c.YHat, c
}

// Loss is the mean binary cross-entropy of ŷ against labels y (both m×1).
func Loss(yHat, y *mat.Dense) float64 {
	rows, _ := yHat.Dims()
	if rows == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < rows; i++ {
		p := math.Min(math.Max(yHat.At(i, 0), Epsilon), 1-Epsilon)
		t := y.At(i, 0)
		sum += t*math.Log(p) + (1-t)*math.Log(1-p)
	}
	return -sum / float64(rows)
}

// Backward returns the batch-averaged gradients of the loss for the forward
// pass recorded in c.
func (n *Network) Backward(c *Cache, y *mat.Dense) *Gradients {
	rows, _ := c.X.Dims()
	inv := 1 / float64(rows)
	g := &Gradients{}

	var dZ3 mat.Dense
	dZ3.Sub(c.YHat, y)
	g.W3 = scaledProduct(c.A2.T(), &dZ3, inv)
	g.B3 = columnMeans(&dZ3)

	var dA2 mat.Dense
	dA2.Mul(&dZ3, n.W3.T())
	dZ2 := reluGrad(&dA2, c.Z2)
	g.W2 = scaledProduct(c.A1.T(), dZ2, inv)
	g.B2 = columnMeans(dZ2)

	var dA1 mat.Dense
	dA1.Mul(dZ2, n.W2.T())
	dZ1 := reluGrad(&dA1, c.Z1)
	g.W1 = scaledProduct(c.X.T(), dZ1, inv)
	g.B1 = columnMeans(dZ1)

	return g
}

// Step applies one plain gradient-descent update: p -= lr * grad.
func (n *Network) Step(g *Gradients, lr float64) {
	descend(n.W1, g.W1, lr)
	descend(n.B1, g.B1, lr)
	descend(n.W2, g.W2, lr)
	descend(n.B2, g.B2, lr)
	descend(n.W3, g.W3, lr)
	descend(n.B3, g.B3, lr)
}

// PredictProba returns the pit probability for each row of X.
func (n *Network) PredictProba(X *mat.Dense) []float64 {
	yHat, _ := n.Forward(X)
	return mat.Col(nil, 0, yHat)
}

// Predict thresholds PredictProba: 1 when p >= threshold.
func (n *Network) Predict(X *mat.Dense, threshold float64) []int {
	probs := n.PredictProba(X)
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}

// Probability runs a single already-normalised input vector.
func (n *Network) Probability(x []float64) float64 {
	return n.PredictProba(mat.NewDense(1, len(x), x))[0]
}

func affine(x, w, b *mat.Dense) *mat.Dense {
	var z mat.Dense
	z.Mul(x, w)
	bias := b.RawRowView(0)
	z.Apply(func(_, j int, v float64) float64 { return v + bias[j] }, &z)
	return &z
}

func relu(z *mat.Dense) *mat.Dense {
	var a mat.Dense
	a.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z)
	return &a
}

// reluGrad masks the upstream gradient where the pre-activation was <= 0.
func reluGrad(upstream, z *mat.Dense) *mat.Dense {
	var d mat.Dense
	d.Apply(func(i, j int, v float64) float64 {
		if z.At(i, j) > 0 {
			return v
		}
		return 0
	}, upstream)
	return &d
}

func sigmoid(z *mat.Dense) *mat.Dense {
	var a mat.Dense
	a.Apply(func(_, _ int, v float64) float64 {
		v = math.Min(math.Max(v, -sigmoidClip), sigmoidClip)
		return 1 / (1 + math.Exp(-v))
	}, z)
	return &a
}

func scaledProduct(a, b mat.Matrix, f float64) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	out.Scale(f, &out)
	return &out
}

func columnMeans(a *mat.Dense) *mat.Dense {
	rows, cols := a.Dims()
	out := mat.NewDense(1, cols, nil)
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += a.At(i, j)
		}
		out.Set(0, j, sum/float64(rows))
	}
	return out
}

func descend(p, g *mat.Dense, lr float64) {
	var step mat.Dense
	step.Scale(lr, g)
	p.Sub(p, &step)
}
