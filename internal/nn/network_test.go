package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomBatch(seed int64, rows int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(rows, Inputs, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		var sum float64
		for j := 0; j < Inputs; j++ {
			v := rng.NormFloat64()
			x.Set(i, j, v)
			sum += v
		}
		if sum > 0 {
			y.Set(i, 0, 1)
		}
	}
	return x, y
}

func TestNewIsDeterministic(t *testing.T) {
	a := New(DefaultSeed)
	b := New(DefaultSeed)
	c := New(DefaultSeed + 1)

	assert.True(t, mat.Equal(a.W1, b.W1))
	assert.True(t, mat.Equal(a.W3, b.W3))
	assert.False(t, mat.Equal(a.W1, c.W1))

	r, cols := a.W2.Dims()
	assert.Equal(t, Hidden1, r)
	assert.Equal(t, Hidden2, cols)
	assert.Equal(t, 0.0, mat.Sum(a.B1)+mat.Sum(a.B2)+mat.Sum(a.B3))
}

func TestForwardZeroInputGivesHalf(t *testing.T) {
	n := New(7)
	x := mat.NewDense(4, Inputs, nil)

	yHat, cache := n.Forward(x)
	rows, cols := yHat.Dims()
	require.Equal(t, 4, rows)
	require.Equal(t, 1, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 0.5, yHat.At(i, 0), 1e-12)
	}
	assert.Same(t, x, cache.X)
}

func TestForwardOutputsAreProbabilities(t *testing.T) {
	n := New(3)
	x, _ := randomBatch(1, 32)
	x.Scale(1000, x)

	for _, p := range n.PredictProba(x) {
		assert.False(t, math.IsNaN(p))
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestLossClipsSaturatedPredictions(t *testing.T) {
	yHat := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{1, 0})

	loss := Loss(yHat, y)
	assert.False(t, math.IsInf(loss, 0))
	assert.InDelta(t, -math.Log(Epsilon), loss, 1e-6)

	perfect := Loss(mat.NewDense(2, 1, []float64{1, 0}), mat.NewDense(2, 1, []float64{1, 0}))
	assert.Less(t, perfect, 1e-6)
}

func TestBackwardMatchesNumericalGradient(t *testing.T) {
	n := New(11)
	x, y := randomBatch(2, 8)

	_, cache := n.Forward(x)
	grads := n.Backward(cache, y)

	lossAt := func() float64 {
		yHat, _ := n.Forward(x)
		return Loss(yHat, y)
	}

	params := []struct {
		name  string
		param *mat.Dense
		grad  *mat.Dense
	}{
		{"W1", n.W1, grads.W1},
		{"B1", n.B1, grads.B1},
		{"W2", n.W2, grads.W2},
		{"B2", n.B2, grads.B2},
		{"W3", n.W3, grads.W3},
		{"B3", n.B3, grads.B3},
	}

	const h = 1e-5
	for _, p := range params {
		t.Run(p.name, func(t *testing.T) {
			rows, cols := p.param.Dims()
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					orig := p.param.At(i, j)
					p.param.Set(i, j, orig+h)
					plus := lossAt()
					p.param.Set(i, j, orig-h)
					minus := lossAt()
					p.param.Set(i, j, orig)

					numeric := (plus - minus) / (2 * h)
					assert.InDelta(t, numeric, p.grad.At(i, j), 1e-5, "%s[%d,%d]", p.name, i, j)
				}
			}
		})
	}
}

func TestStepReducesLoss(t *testing.T) {
	n := New(5)
	x, y := randomBatch(9, 64)

	yHat, _ := n.Forward(x)
	first := Loss(yHat, y)

	for i := 0; i < 50; i++ {
		_, cache := n.Forward(x)
		n.Step(n.Backward(cache, y), 0.1)
	}
	yHat, _ = n.Forward(x)
	assert.Less(t, Loss(yHat, y), first)
}

func TestPredictThreshold(t *testing.T) {
	n := New(1)
	x, _ := randomBatch(4, 16)

	probs := n.PredictProba(x)
	testCases := []struct {
		name      string
		threshold float64
	}{
		{"half", 0.5},
		{"low", 0.1},
		{"high", 0.9},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Predict(x, tc.threshold)
			require.Len(t, got, len(probs))
			for i, p := range probs {
				want := 0
				if p >= tc.threshold {
					want = 1
				}
				assert.Equal(t, want, got[i])
			}
		})
	}

	assert.Equal(t, probs[0], n.Probability(x.RawRowView(0)))
}

func TestCloneIsIndependent(t *testing.T) {
	n := New(2)
	c := n.Clone()
	c.W1.Set(0, 0, 99)
	assert.NotEqual(t, 99.0, n.W1.At(0, 0))
}
