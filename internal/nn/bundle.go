package nn

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/pitwall/internal/features"
	"github.com/banshee-data/pitwall/internal/fsutil"
)

var (
	// ErrFeatureMismatch is returned when a bundle was trained on a
	// different feature set or order.
	ErrFeatureMismatch = errors.New("model bundle feature names do not match")
	// ErrShapeMismatch is returned when a bundle's arrays do not fit the
	// 9-16-8-1 architecture.
	ErrShapeMismatch = errors.New("model bundle shape mismatch")
)

// Bundle is everything needed for inference: the trained network, the
// normalization statistics fitted on the training split and the feature
// names in column order.
type Bundle struct {
	Network      *Network
	Mean         []float64
	Std          []float64
	FeatureNames []string
}

// NewBundle pairs a network with its normalization and the canonical
// feature names.
func NewBundle(n *Network, mean, std []float64) *Bundle {
	return &Bundle{
		Network:      n,
		Mean:         append([]float64(nil), mean...),
		Std:          append([]float64(nil), std...),
		FeatureNames: append([]string(nil), features.Names[:]...),
	}
}

// Normalize returns (x - mean) / std without modifying x.
func (b *Bundle) Normalize(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - b.Mean[i]) / b.Std[i]
	}
	return out
}

// Probability normalizes the snapshot and returns the network's pit
// probability.
func (b *Bundle) Probability(s features.Snapshot) float64 {
	return b.Network.Probability(b.Normalize(s.Vector().Slice()))
}

// Validate checks feature names and every array shape.
func (b *Bundle) Validate() error {
	if err := features.CheckNames(b.FeatureNames); err != nil {
		return fmt.Errorf("%w: %v", ErrFeatureMismatch, err)
	}
	if b.Network == nil {
		return fmt.Errorf("%w: missing network", ErrShapeMismatch)
	}
	shapes := []struct {
		name       string
		m          *mat.Dense
		rows, cols int
	}{
		{"W1", b.Network.W1, Inputs, Hidden1},
		{"b1", b.Network.B1, 1, Hidden1},
		{"W2", b.Network.W2, Hidden1, Hidden2},
		{"b2", b.Network.B2, 1, Hidden2},
		{"W3", b.Network.W3, Hidden2, Outputs},
		{"b3", b.Network.B3, 1, Outputs},
	}
	for _, s := range shapes {
		if s.m == nil {
			return fmt.Errorf("%w: %s missing", ErrShapeMismatch, s.name)
		}
		if r, c := s.m.Dims(); r != s.rows || c != s.cols {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrShapeMismatch, s.name, r, c, s.rows, s.cols)
		}
	}
	if len(b.Mean) != Inputs || len(b.Std) != Inputs {
		return fmt.Errorf("%w: mean/std have %d/%d entries, want %d", ErrShapeMismatch, len(b.Mean), len(b.Std), Inputs)
	}
	for i, s := range b.Std {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: std[%d] = %g", ErrShapeMismatch, i, s)
		}
	}
	return nil
}

// matrixRecord is the on-disk form of one weight array.
type matrixRecord struct {
	Rows, Cols int
	Data       []float64
}

type bundleRecord struct {
	W1, B1, W2, B2, W3, B3 matrixRecord
	Mean, Std              []float64
	FeatureNames           []string
}

func toRecord(m *mat.Dense) matrixRecord {
	r, c := m.Dims()
	return matrixRecord{Rows: r, Cols: c, Data: append([]float64(nil), m.RawMatrix().Data...)}
}

func (r matrixRecord) dense(name string) (*mat.Dense, error) {
	if r.Rows <= 0 || r.Cols <= 0 || len(r.Data) != r.Rows*r.Cols {
		return nil, fmt.Errorf("%w: %s has %d values for %dx%d", ErrShapeMismatch, name, len(r.Data), r.Rows, r.Cols)
	}
	return mat.NewDense(r.Rows, r.Cols, r.Data), nil
}

// Encode writes the bundle as gzip-compressed gob.
func (b *Bundle) Encode(w io.Writer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	n := b.Network
	rec := bundleRecord{
		W1: toRecord(n.W1), B1: toRecord(n.B1),
		W2: toRecord(n.W2), B2: toRecord(n.B2),
		W3: toRecord(n.W3), B3: toRecord(n.B3),
		Mean:         b.Mean,
		Std:          b.Std,
		FeatureNames: b.FeatureNames,
	}

	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(rec); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode model bundle: %w", err)
	}
	return gz.Close()
}

// DecodeBundle reads a bundle written by Encode and validates it.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var rec bundleRecord
	if err := gob.NewDecoder(gz).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode model bundle: %w", err)
	}

	n := &Network{}
	for _, m := range []struct {
		name string
		rec  matrixRecord
		dst  **mat.Dense
	}{
		{"W1", rec.W1, &n.W1}, {"b1", rec.B1, &n.B1},
		{"W2", rec.W2, &n.W2}, {"b2", rec.B2, &n.B2},
		{"W3", rec.W3, &n.W3}, {"b3", rec.B3, &n.B3},
	} {
		d, err := m.rec.dense(m.name)
		if err != nil {
			return nil, err
		}
		*m.dst = d
	}

	b := &Bundle{Network: n, Mean: rec.Mean, Std: rec.Std, FeatureNames: rec.FeatureNames}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Save writes the bundle to path through a temp file and rename.
func (b *Bundle) Save(fsys fsutil.FileSystem, path string) error {
	var buf bytes.Buffer
	if err := b.Encode(&buf); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write model bundle %s: %w", path, err)
	}
	return nil
}

// LoadBundle reads and validates the bundle at path.
func LoadBundle(fsys fsutil.FileSystem, path string) (*Bundle, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model bundle %s: %w", path, err)
	}
	b, err := DecodeBundle(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("model bundle %s: %w", path, err)
	}
	return b, nil
}
