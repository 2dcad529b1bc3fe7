// Package assign computes optimal vehicle-to-station matchings with the
// Hungarian algorithm over a weighted cost matrix.
package assign

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve returns, for each row of the cost matrix, the column assigned to it
// by a minimum-cost perfect matching, or -1 when the row is matched to a
// padding column. Rectangular matrices are padded to square internally. The
// implementation is the O(n^3) Kuhn-Munkres algorithm with potentials and is
// fully deterministic.
func Solve(cost *mat.Dense) []int {
	rows, cols := cost.Dims()
	n := rows
	if cols > n {
		n = cols
	}

	// Potentials and matching use 1-based indexing per the classic
	// formulation; a[i][j] is the padded square cost.
	a := func(i, j int) float64 {
		if i <= rows && j <= cols {
			return cost.At(i-1, j-1)
		}
		return 0
	}

	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row matched to column j
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := a(i0, j) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
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
		for {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
			if j0 == 0 {
				break
			}
		}
	}

	out := make([]int, rows)
	for i := range out {
		out[i] = -1
	}
	for j := 1; j <= n; j++ {
		if i := p[j]; i >= 1 && i <= rows && j <= cols {
			out[i-1] = j - 1
		}
	}
	return out
}

// TotalCost sums the matrix entries selected by the assignment.
func TotalCost(cost *mat.Dense, assignment []int) float64 {
	var sum float64
	for i, j := range assignment {
		if j >= 0 {
			sum += cost.At(i, j)
		}
	}
	return sum
}
