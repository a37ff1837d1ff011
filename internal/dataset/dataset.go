// Package dataset reads and writes the labelled lap dataset: one CSV row per
// completed lap with the nine features in canonical order followed by a 0/1
// label.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/pitwall/internal/features"
	"github.com/banshee-data/pitwall/internal/fsutil"
)

// LabelColumn is the name of the trailing label column.
const LabelColumn = "label"

// Row is one labelled lap.
type Row struct {
	Features features.Vector
	Label    int
}

// RowError reports a malformed row. Row is the 1-based data row (the
// header is row 0).
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

var (
	// ErrHeader is returned when the header does not list the canonical
	// feature names followed by the label column.
	ErrHeader = errors.New("dataset header mismatch")
	// ErrLabel is wrapped by RowError for missing or non-binary labels.
	ErrLabel = errors.New("label must be 0 or 1")
)

// Header returns the CSV header.
func Header() []string {
	h := make([]string, 0, features.Count+1)
	h = append(h, features.Names[:]...)
	return append(h, LabelColumn)
}

// Write writes the header and rows as CSV.
func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	record := make([]string, features.Count+1)
	for _, r := range rows {
		for i, v := range r.Features {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[features.Count] = strconv.Itoa(r.Label)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a dataset, failing on the first malformed row.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var rows []Row
	for n := 1; ; n++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &RowError{Row: n, Err: err}
		}
		row, err := parseRecord(n, record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func checkHeader(header []string) error {
	want := Header()
	if len(header) != len(want) {
		return fmt.Errorf("%w: %d columns, want %d", ErrHeader, len(header), len(want))
	}
	for i := range want {
		if header[i] != want[i] {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrHeader, i, header[i], want[i])
		}
	}
	return nil
}

func parseRecord(n int, record []string) (Row, error) {
	var row Row
	for i, name := range features.Names {
		if i >= len(record) {
			return row, &RowError{Row: n, Column: name, Err: errors.New("missing value")}
		}
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return row, &RowError{Row: n, Column: name, Err: err}
		}
		row.Features[i] = v
	}

	if len(record) <= features.Count || record[features.Count] == "" {
		return row, &RowError{Row: n, Column: LabelColumn, Err: fmt.Errorf("missing: %w", ErrLabel)}
	}
	if len(record) > features.Count+1 {
		return row, &RowError{Row: n, Err: fmt.Errorf("%d columns, want %d", len(record), features.Count+1)}
	}
	label, err := strconv.ParseFloat(record[features.Count], 64)
	if err != nil || (label != 0 && label != 1) {
		return row, &RowError{Row: n, Column: LabelColumn, Err: fmt.Errorf("%q: %w", record[features.Count], ErrLabel)}
	}
	row.Label = int(label)
	return row, nil
}

// Load reads the dataset at path.
func Load(fsys fsutil.FileSystem, path string) ([]Row, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return rows, nil
}

// Save writes rows to path, creating parent directories.
func Save(fsys fsutil.FileSystem, path string, rows []Row) (err error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close dataset: %w", cerr)
		}
	}()
	if err := Write(w, rows); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

// PitRatio is the fraction of rows labelled 1.
func PitRatio(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	var pits int
	for _, r := range rows {
		pits += r.Label
	}
	return float64(pits) / float64(len(rows))
}

// Matrices returns the feature matrix (n×9) and label column (n×1). rows
// must not be empty.
func Matrices(rows []Row) (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(len(rows), features.Count, nil)
	y := mat.NewDense(len(rows), 1, nil)
	for i, r := range rows {
		x.SetRow(i, r.Features[:])
		y.Set(i, 0, float64(r.Label))
	}
	return x, y
}

// Labels returns the label column as a slice.
func Labels(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}
