// Package leadfield implements the per-subject, per-net leadfield tensor:
// built lazily, cached on disk, and served read-only to the search engines.
// The dense tensor itself is a gonum/mat.Dense-backed type (the teacher's
// own CircuitMatrix wraps a solver-specific sparse type the same way; here
// the domain calls for dense per-electrode rows instead of a sparse
// admittance matrix, so gonum/mat replaces it — see DESIGN.md).
package leadfield

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Leadfield is L[e, n, 3]: the E-field vector (V/m per Ampere) at mesh node
// n when unit current flows through electrode e against the fingerprint's
// reference electrode. Rows are stored as gonum Dense matrices of shape
// (NumNodes, 3) so per-electrode slicing and vector math reuse gonum's
// BLAS-backed routines instead of hand-rolled loops.
type Leadfield struct {
	Fingerprint Fingerprint
	NetOrder    []string // electrode label per row, stable net order
	NumNodes    int
	rows        []*mat.Dense // len == len(NetOrder), each NumNodes x 3
}

// New allocates an empty leadfield for the given fingerprint and net order.
func New(fp Fingerprint, netOrder []string, numNodes int) *Leadfield {
	rows := make([]*mat.Dense, len(netOrder))
	for i := range rows {
		rows[i] = mat.NewDense(numNodes, 3, nil)
	}
	return &Leadfield{Fingerprint: fp, NetOrder: netOrder, NumNodes: numNodes, rows: rows}
}

// RowIndex returns the row index of an electrode label, or -1.
func (l *Leadfield) RowIndex(label string) int {
	for i, n := range l.NetOrder {
		if n == label {
			return i
		}
	}
	return -1
}

// SetNodeVector stores electrode e's field vector at node n.
func (l *Leadfield) SetNodeVector(e, n int, x, y, z float64) {
	l.rows[e].Set(n, 0, x)
	l.rows[e].Set(n, 1, y)
	l.rows[e].Set(n, 2, z)
}

// NodeVector returns electrode e's field vector at node n.
func (l *Leadfield) NodeVector(e, n int) (x, y, z float64) {
	row := l.rows[e]
	return row.At(n, 0), row.At(n, 1), row.At(n, 2)
}

// IsZeroRow reports whether electrode e's row is uniformly zero (expected
// for the reference electrode).
func (l *Leadfield) IsZeroRow(e int) bool {
	row := l.rows[e]
	r, c := row.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if row.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// Superpose computes the E field at all nodes for a two-electrode channel
// (a at +current, b at -current, or any signed pair) by linear superposition
// over leadfield rows: E(x) = (L[a]-L[b]) * i, in V/m, where i is in
// Amperes.
func (l *Leadfield) Superpose(labelA, labelB string, currentMA float64) ([]float64, error) {
	ia := l.RowIndex(labelA)
	ib := l.RowIndex(labelB)
	if ia < 0 {
		return nil, fmt.Errorf("leadfield: electrode %q not in net order", labelA)
	}
	if ib < 0 {
		return nil, fmt.Errorf("leadfield: electrode %q not in net order", labelB)
	}
	currentA := currentMA / 1000.0
	out := make([]float64, l.NumNodes*3)
	ra, rb := l.rows[ia], l.rows[ib]
	for n := 0; n < l.NumNodes; n++ {
		for c := 0; c < 3; c++ {
			out[n*3+c] = (ra.At(n, c) - rb.At(n, c)) * currentA
		}
	}
	return out, nil
}
