// Package combat: parametric (iterative) shrinkage.
package combat

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// postMean is the conditional posterior mean of a batch location effect:
// the raw estimate pulled toward the prior mean, weighted by the prior
// variance t2, the observation count n and the current scale d.
func postMean(gHat, gBar, n, d, t2 float64) float64 {
	return (t2*n*gHat + d*gBar) / (t2*n + d)
}

// postVar is the conditional posterior mean of a batch scale effect under
// the inverse-gamma prior (a shape, b rate), given the sum of squared
// standardized residuals around the current location.
func postVar(sum2, n, a, b float64) float64 {
	return (0.5*sum2 + b) / (n/2 + a - 1)
}

// itSol alternates the closed-form posterior updates for one batch until
// the summed absolute relative change in the (location, scale) blocks
// falls to the convergence threshold, or maxIter is reached.
//
// Algorithm, per iteration, for every feature i (nᵢ = observed samples of
// i within the batch):
//
//	gᵢ ← (nᵢ·t2·gammaHatᵢ + dᵢ·gammaBar) / (nᵢ·t2 + dᵢ)
//	dᵢ ← (Σⱼ (zᵢⱼ − gᵢ)² + 2·bPrior) / (nᵢ/2 + aPrior − 1)
//
// The update order (all locations, then all scales against the fresh
// locations) and the threshold are load-bearing for numeric parity.
// Returns best-effort estimates plus a convergence flag; it never spins
// forever on pathological input.
func itSol(zb *mat.Dense, gHat, dHat []float64, gBar, t2, a, b, conv float64, maxIter int) (gStar, dStar []float64, converged bool) {
	g, nb := zb.Dims()
	nobs := make([]float64, g)
	for i := 0; i < g; i++ {
		for j := 0; j < nb; j++ {
			if !math.IsNaN(zb.At(i, j)) {
				nobs[i]++
			}
		}
	}

	gOld := append([]float64(nil), gHat...)
	dOld := append([]float64(nil), dHat...)
	gCur := make([]float64, g)
	dCur := make([]float64, g)

	for it := 0; it < maxIter; it++ {
		for i := 0; i < g; i++ {
			gCur[i] = postMean(gHat[i], gBar, nobs[i], dOld[i], t2)
			var sum2 float64
			for j := 0; j < nb; j++ {
				if v := zb.At(i, j); !math.IsNaN(v) {
					r := v - gCur[i]
					sum2 += r * r
				}
			}
			dCur[i] = postVar(sum2, nobs[i], a, b)
		}
		change := maxRelChange(gCur, gOld) + maxRelChange(dCur, dOld)
		copy(gOld, gCur)
		copy(dOld, dCur)
		if change <= conv {
			return gOld, dOld, true
		}
	}

	return gOld, dOld, false
}

// maxRelChange is the largest finite |cur−old| / |old| across features.
// Non-finite ratios (NaN features, zero baselines) are skipped so a
// single unfit feature cannot stall convergence.
func maxRelChange(cur, old []float64) float64 {
	var m float64
	for i := range cur {
		r := math.Abs(cur[i]-old[i]) / math.Abs(old[i])
		if !math.IsNaN(r) && !math.IsInf(r, 0) && r > m {
			m = r
		}
	}

	return m
}

// ones returns a slice of g unit values, the fixed scale of mean-only
// mode and of a pinned reference batch.
func ones(g int) []float64 {
	v := make([]float64, g)
	for i := range v {
		v[i] = 1
	}

	return v
}
