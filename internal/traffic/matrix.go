package traffic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is an NxN travel-time matrix in minutes. Entries are finite and
// non-negative, the diagonal is zero, and the matrix may be asymmetric.
// A Matrix is read-only once built.
type Matrix struct {
	d *mat.Dense
	n int
}

// NewMatrix copies rows into a Matrix after checking the invariants.
func NewMatrix(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("traffic: empty matrix")
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("traffic: row %d has %d entries, want %d", i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("traffic: entry [%d][%d]=%v must be finite and non-negative", i, j, v)
			}
			if i == j && v != 0 {
				return nil, fmt.Errorf("traffic: diagonal entry [%d][%d]=%v must be zero", i, j, v)
			}
		}
		data = append(data, row...)
	}
	return &Matrix{d: mat.NewDense(n, n, data), n: n}, nil
}

// N is the number of nodes.
func (m *Matrix) N() int { return m.n }

// At returns the travel time from i to j.
func (m *Matrix) At(i, j int) float64 { return m.d.At(i, j) }

// MinPositive returns the smallest strictly positive entry, or 0 when every
// entry is zero.
func (m *Matrix) MinPositive() float64 {
	best := math.Inf(1)
	for i := 0; i < m.n; i++ {
		for _, v := range m.d.RawRowView(i) {
			if v > 0 && v < best {
				best = v
			}
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// Rows returns a copy of the matrix as nested slices.
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, m.n)
	for i := range out {
		out[i] = append([]float64(nil), m.d.RawRowView(i)...)
	}
	return out
}
