// Package weights loads, slices, and persists projection-layer weight
// matrices for the pruning pipeline.
package weights

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrBadTensor is returned when a tensor file cannot be parsed
	ErrBadTensor = errors.New("malformed tensor file")

	// ErrInvalidShape is returned for empty or mismatched matrix shapes
	ErrInvalidShape = errors.New("invalid matrix shape")
)

// Matrix is a dense row-major float32 matrix. For projection weights the
// convention is one row per input feature and one column per output
// feature.
type Matrix struct {
	Data []float32 // row-major [Rows, Cols]
	Rows int
	Cols int
}

// New allocates a zeroed matrix.
func New(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidShape, rows, cols)
	}
	return &Matrix{
		Data: make([]float32, rows*cols),
		Rows: rows,
		Cols: cols,
	}, nil
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

// Set assigns the element at row i, column j.
func (m *Matrix) Set(i, j int, v float32) {
	m.Data[i*m.Cols+j] = v
}

// Row returns row i as a view into the underlying data.
func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// RowSlices returns all rows as views, the shape the prune pipeline
// consumes.
func (m *Matrix) RowSlices() [][]float32 {
	rows := make([][]float32, m.Rows)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}

// Transpose returns a new matrix with rows and columns swapped. Checkpoint
// formats commonly store linear layers as [out, in]; the pipeline wants
// [in, out].
func (m *Matrix) Transpose() *Matrix {
	t := &Matrix{
		Data: make([]float32, len(m.Data)),
		Rows: m.Cols,
		Cols: m.Rows,
	}
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			t.Data[j*t.Cols+i] = m.Data[i*m.Cols+j]
		}
	}
	return t
}

// KeepColumns returns a new matrix containing only the given columns, in
// the given order. This is how a kept-feature list is applied to the
// projection's output dimension.
func (m *Matrix) KeepColumns(kept []int) (*Matrix, error) {
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no columns to keep", ErrInvalidShape)
	}
	for _, j := range kept {
		if j < 0 || j >= m.Cols {
			return nil, fmt.Errorf("%w: column %d out of range [0, %d)", ErrInvalidShape, j, m.Cols)
		}
	}

	out := &Matrix{
		Data: make([]float32, m.Rows*len(kept)),
		Rows: m.Rows,
		Cols: len(kept),
	}
	for i := 0; i < m.Rows; i++ {
		row := m.Row(i)
		dst := out.Data[i*out.Cols : (i+1)*out.Cols]
		for k, j := range kept {
			dst[k] = row[j]
		}
	}
	return out, nil
}

// Dense converts to a gonum matrix for numeric work.
func (m *Matrix) Dense() *mat.Dense {
	data := make([]float64, len(m.Data))
	for i, v := range m.Data {
		data[i] = float64(v)
	}
	return mat.NewDense(m.Rows, m.Cols, data)
}

// Fingerprint returns a stable hex digest over the matrix shape and
// contents, used as result-cache key material.
func (m *Matrix) Fingerprint() string {
	h := sha256.New()
	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[0:8], uint64(m.Rows))
	binary.LittleEndian.PutUint64(dims[8:16], uint64(m.Cols))
	h.Write(dims[:])

	buf := make([]byte, 4)
	for _, v := range m.Data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
