// Package combat: non-parametric (kernel, leave-one-out) shrinkage.
package combat

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// intEprior computes Gaussian-kernel leave-one-out Bayes estimates for
// one batch, with no parametric prior assumption.
//
// For each feature i, every other feature j of the batch is a shrinkage
// candidate: its weight is the likelihood of i's observed standardized
// values under Normal(gammaHat[j], sqrt(deltaHat[j])). The shrunk
// (location, scale) of i are the likelihood-weighted averages of the
// other features' raw pairs. Weights that evaluate to NaN count as zero;
// an all-zero weight vector yields NaN (0/0), which propagates rather
// than aborting.
//
// Cost: O(g²·n_b) likelihood evaluations per batch.
func intEprior(zb *mat.Dense, gHat, dHat []float64) (gStar, dStar []float64) {
	g, _ := zb.Dims()
	gStar = make([]float64, g)
	dStar = make([]float64, g)

	for i := 0; i < g; i++ {
		x := observed(zb.RawRowView(i))
		var sumLH, sumG, sumD float64
		for j := 0; j < g; j++ {
			if j == i {
				continue
			}
			kernel := distuv.Normal{Mu: gHat[j], Sigma: math.Sqrt(dHat[j])}
			var ll float64
			for _, v := range x {
				ll += kernel.LogProb(v)
			}
			lh := math.Exp(ll)
			if math.IsNaN(lh) {
				lh = 0
			}
			sumLH += lh
			sumG += gHat[j] * lh
			sumD += dHat[j] * lh
		}
		gStar[i] = sumG / sumLH
		dStar[i] = sumD / sumLH
	}

	return gStar, dStar
}
