package flexsearch

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MappedElectrode is one optimized position's post-step mapping onto a
// discrete net electrode.
type MappedElectrode struct {
	Label       string
	Position    r3.Vec
	OptimizedAt r3.Vec
	DistanceMM  float64
	// Degenerate marks a mapping forced onto a padding column because
	// there were more optimized points than net electrodes to choose from.
	Degenerate bool
}

// MapToNet assigns each optimized 3D position to a distinct net electrode,
// minimizing total Euclidean distance, via the O(n^3) Hungarian algorithm
// (hungarianMinCost below). netLabels and netPositions must be the same
// length and index-aligned.
func MapToNet(optimized []r3.Vec, netLabels []string, netPositions []r3.Vec) []MappedElectrode {
	n := len(optimized)
	m := len(netPositions)
	cols := m
	if cols < n {
		cols = n // pad with zero-cost dummy columns if over-constrained
	}

	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			if j < m {
				cost[i][j] = r3.Norm(r3.Sub(optimized[i], netPositions[j]))
			} else {
				cost[i][j] = 0 // dummy: any assignment here is free but flagged
			}
		}
	}

	assignment := hungarianMinCost(cost)

	out := make([]MappedElectrode, n)
	for i, j := range assignment {
		if j < m {
			out[i] = MappedElectrode{
				Label:       netLabels[j],
				Position:    netPositions[j],
				OptimizedAt: optimized[i],
				DistanceMM:  cost[i][j],
			}
		} else {
			out[i] = MappedElectrode{
				OptimizedAt: optimized[i],
				DistanceMM:  math.NaN(),
				Degenerate:  true,
			}
		}
	}
	return out
}

// hungarianMinCost solves the rectangular (n rows <= m columns) minimum
// cost assignment problem via the O(n*m^2) potentials/shortest-augmenting-
// path method, the standard formulation of the Hungarian algorithm. Returns
// assignment where assignment[i] is the column matched to row i.
//
// Worked example: cost = [[4,1,3],[2,0,5],[3,2,2]] assigns row 0->col 1
// (cost 1), row 1->col 0 (cost 2), row 2->col 2 (cost 2), total 5 — the
// minimum over all 3! permutations.
func hungarianMinCost(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	const inf = math.MaxFloat64 / 4

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1) // p[j] = 1-based row currently matched to column j
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assignment := make([]int, n)
	for j := 1; j <= m; j++ {
		if p[j] > 0 {
			assignment[p[j]-1] = j - 1
		}
	}
	return assignment
}
