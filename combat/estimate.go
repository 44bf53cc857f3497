// Package combat: raw location/scale estimation.
package combat

import (
	"gonum.org/v1/gonum/mat"
)

// locationScale estimates the raw per-batch, per-feature batch effects on
// the standardized data: gammaHat is the NA-aware OLS fit of z against
// the batch indicator columns only (covariates excluded), deltaHat the
// per-batch sample variance of z ignoring missing entries. Both are
// batches × features. Under mean-only mode deltaHat is fixed at one; a
// single observation carries no scale information.
func locationScale(z *mat.Dense, d *design, meanOnly bool) (gammaHat, deltaHat *mat.Dense) {
	gammaHat = solveCoef(d.batchDesign(), z)

	g, _ := z.Dims()
	deltaHat = mat.NewDense(d.nBatch, g, nil)
	if meanOnly {
		for b := 0; b < d.nBatch; b++ {
			for i := 0; i < g; i++ {
				deltaHat.Set(b, i, 1)
			}
		}

		return gammaHat, deltaHat
	}

	for b := 0; b < d.nBatch; b++ {
		vals := make([]float64, len(d.samples[b]))
		for i := 0; i < g; i++ {
			for k, j := range d.samples[b] {
				vals[k] = z.At(i, j)
			}
			deltaHat.Set(b, i, naVariance(vals))
		}
	}

	return gammaHat, deltaHat
}

// batchColumns copies the columns of z belonging to one batch into a
// features × batchSize matrix for the shrinkage estimators.
func batchColumns(z *mat.Dense, samples []int) *mat.Dense {
	g, _ := z.Dims()
	zb := mat.NewDense(g, len(samples), nil)
	for i := 0; i < g; i++ {
		for k, j := range samples {
			zb.Set(i, k, z.At(i, j))
		}
	}

	return zb
}
