// Package combat: NA-aware least squares.
//
// One solver serves every regression in the pipeline. Features with fully
// observed rows share a single joint QR solve; a feature with missing
// entries gets its own solve against the design restricted to its observed
// samples. With no missing data the whole fit degenerates to the joint
// fast path, so there is exactly one code path to reason about.
package combat

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// solveCoef fits one least-squares coefficient column per feature of dat
// (features × samples) against the design x (samples × p), returning the
// p × features coefficient matrix.
//
// A feature with fewer observed samples than design columns, or whose
// restricted design is singular, gets a NaN coefficient column; the run
// never aborts on it.
func solveCoef(x mat.Matrix, dat *mat.Dense) *mat.Dense {
	g, n := dat.Dims()
	_, p := x.Dims()
	out := mat.NewDense(p, g, nil)

	var complete []int
	var partial []int
	for i := 0; i < g; i++ {
		if missingIn(dat.RawRowView(i)) {
			partial = append(partial, i)
		} else {
			complete = append(complete, i)
		}
	}

	// Joint fast path: all fully observed features share one QR solve.
	if len(complete) > 0 {
		rhs := mat.NewDense(n, len(complete), nil)
		for k, i := range complete {
			for j := 0; j < n; j++ {
				rhs.Set(j, k, dat.At(i, j))
			}
		}
		var coef mat.Dense
		if err := coef.Solve(x, rhs); solveFailed(err) {
			for _, i := range complete {
				nanColumn(out, i)
			}
		} else {
			for k, i := range complete {
				for r := 0; r < p; r++ {
					out.Set(r, i, coef.At(r, k))
				}
			}
		}
	}

	// Per-feature path: restrict the design to the observed samples.
	for _, i := range partial {
		row := dat.RawRowView(i)
		obs := observedIndices(row)
		if len(obs) < p {
			nanColumn(out, i)
			continue
		}
		xa := mat.NewDense(len(obs), p, nil)
		y := mat.NewDense(len(obs), 1, nil)
		for r, j := range obs {
			for c := 0; c < p; c++ {
				xa.Set(r, c, x.At(j, c))
			}
			y.Set(r, 0, row[j])
		}
		var coef mat.Dense
		if err := coef.Solve(xa, y); solveFailed(err) {
			nanColumn(out, i)
			continue
		}
		for r := 0; r < p; r++ {
			out.Set(r, i, coef.At(r, 0))
		}
	}

	return out
}

// solveFailed distinguishes genuine solve failures from gonum's
// mat.Condition advisory, which still carries a usable solution.
func solveFailed(err error) bool {
	if err == nil {
		return false
	}
	_, advisory := err.(mat.Condition)

	return !advisory
}

// nanColumn marks feature i unfit by writing NaN down its column.
func nanColumn(m *mat.Dense, i int) {
	r, _ := m.Dims()
	for j := 0; j < r; j++ {
		m.Set(j, i, math.NaN())
	}
}

// missingIn reports whether xs contains a NaN entry.
func missingIn(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}

// observedIndices returns the indices of the finite entries of xs.
func observedIndices(xs []float64) []int {
	idx := make([]int, 0, len(xs))
	for j, v := range xs {
		if !math.IsNaN(v) {
			idx = append(idx, j)
		}
	}

	return idx
}

// observed returns the finite entries of xs, preserving order.
func observed(xs []float64) []float64 {
	obs := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			obs = append(obs, v)
		}
	}

	return obs
}

// naVariance is the sample variance (divisor m−1) of the finite entries
// of xs; NaN when fewer than two are observed, matching the behavior of
// a variance over all-missing or single-observation data.
func naVariance(xs []float64) float64 {
	obs := observed(xs)
	if len(obs) < 2 {
		return math.NaN()
	}

	return stat.Variance(obs, nil)
}

// naMeanVariance returns the mean and sample variance of the finite
// entries of xs, NaN/NaN when nothing is observed.
func naMeanVariance(xs []float64) (mean, variance float64) {
	obs := observed(xs)
	if len(obs) == 0 {
		return math.NaN(), math.NaN()
	}

	return stat.MeanVariance(obs, nil)
}
