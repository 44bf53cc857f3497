// Package combat: empirical-Bayes prior estimation.
package combat

import (
	"gonum.org/v1/gonum/mat"
)

// priors holds the per-batch hyperparameters estimated across features:
// a normal prior (gammaBar, t2) for the location effects and an
// inverse-gamma prior (aPrior shape, bPrior rate) for the scale effects.
type priors struct {
	gammaBar []float64
	t2       []float64
	aPrior   []float64
	bPrior   []float64
}

// estimatePriors fits the per-batch priors from the raw estimates.
//
// Location: mean and sample variance of gammaHat[b,:] across features.
// Scale: inverse-gamma shape/rate via method of moments on deltaHat[b,:]:
// for sample mean m and variance v, shape = (2v + m²)/v and
// rate = (m³ + m·v)/v. This exact mapping is required for numeric parity
// with reference outputs. Features whose raw estimates are NaN (e.g.
// all-missing rows) are excluded so they poison only themselves, not the
// whole batch.
func estimatePriors(gammaHat, deltaHat *mat.Dense) *priors {
	nBatch, _ := gammaHat.Dims()
	p := &priors{
		gammaBar: make([]float64, nBatch),
		t2:       make([]float64, nBatch),
		aPrior:   make([]float64, nBatch),
		bPrior:   make([]float64, nBatch),
	}
	for b := 0; b < nBatch; b++ {
		p.gammaBar[b], p.t2[b] = naMeanVariance(mat.Row(nil, b, gammaHat))

		m, v := naMeanVariance(mat.Row(nil, b, deltaHat))
		p.aPrior[b] = (2*v + m*m) / v
		p.bPrior[b] = (m*m*m + m*v) / v
	}

	return p
}
