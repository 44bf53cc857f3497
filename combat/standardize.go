// Package combat: standardization stage.
package combat

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// standardized carries the outputs of the standardization stage that
// later stages need: the unit-pooled-variance data, the design-implied
// mean and the per-feature pooled variance used to map back to the
// original scale.
type standardized struct {
	z         *mat.Dense // features × samples, standardized data
	standMean *mat.Dense // features × samples, design-implied mean
	varPooled []float64  // per-feature pooled variance
}

// standardize fits the coefficient matrix against the full design and
// rescales the data to unit pooled variance per feature.
//
// Grand mean per feature: the reference batch's coefficient row when a
// reference batch is set, else the batch-size-weighted average of all
// batch coefficient rows. Pooled variance: over the reference batch's
// samples when set, else all samples — mean of squared residuals in the
// dense case, sample variance of residuals ignoring missing entries when
// the matrix has any NaN. Missing positions propagate into z.
func standardize(dat *mat.Dense, d *design, hasMissing bool) *standardized {
	g, n := dat.Dims()
	bhat := solveCoef(d.full, dat) // p × features

	// Grand mean per feature.
	grand := make([]float64, g)
	if d.ref >= 0 {
		mat.Row(grand, d.ref, bhat)
	} else {
		for i := 0; i < g; i++ {
			var m float64
			for b := 0; b < d.nBatch; b++ {
				m += float64(d.sizes[b]) / float64(n) * bhat.At(b, i)
			}
			grand[i] = m
		}
	}

	// Design-implied standardized mean: grand mean broadcast across
	// samples plus the covariate contribution (batch columns zeroed).
	standMean := mat.NewDense(g, n, nil)
	for i := 0; i < g; i++ {
		for j := 0; j < n; j++ {
			standMean.Set(i, j, grand[i])
		}
	}
	if d.nCov > 0 {
		covDesign := mat.DenseCopyOf(d.full)
		for b := 0; b < d.nBatch; b++ {
			for j := 0; j < n; j++ {
				covDesign.Set(j, b, 0)
			}
		}
		var covPart mat.Dense
		covPart.Mul(covDesign, bhat) // samples × features
		for i := 0; i < g; i++ {
			for j := 0; j < n; j++ {
				standMean.Set(i, j, standMean.At(i, j)+covPart.At(j, i))
			}
		}
	}

	// Residuals around the full design fit.
	var fit mat.Dense
	fit.Mul(d.full, bhat) // samples × features
	resid := mat.NewDense(g, n, nil)
	for i := 0; i < g; i++ {
		for j := 0; j < n; j++ {
			resid.Set(i, j, dat.At(i, j)-fit.At(j, i))
		}
	}

	// Pooled variance over the reference batch's samples, or all.
	pool := make([]int, 0, n)
	if d.ref >= 0 {
		pool = append(pool, d.samples[d.ref]...)
	} else {
		for j := 0; j < n; j++ {
			pool = append(pool, j)
		}
	}
	varPooled := make([]float64, g)
	rs := make([]float64, len(pool))
	for i := 0; i < g; i++ {
		for k, j := range pool {
			rs[k] = resid.At(i, j)
		}
		if hasMissing {
			varPooled[i] = naVariance(rs)
		} else {
			varPooled[i] = floats.Dot(rs, rs) / float64(len(rs))
		}
	}

	// Standardize; NaN inputs and NaN coefficients both propagate.
	z := mat.NewDense(g, n, nil)
	for i := 0; i < g; i++ {
		sd := math.Sqrt(varPooled[i])
		for j := 0; j < n; j++ {
			z.Set(i, j, (dat.At(i, j)-standMean.At(i, j))/sd)
		}
	}

	return &standardized{z: z, standMean: standMean, varPooled: varPooled}
}
