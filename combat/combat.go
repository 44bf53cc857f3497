package combat

import (
	"gonum.org/v1/gonum/mat"
)

// Adjust — empirical-Bayes batch-effect correction.
//
// Description:
//
//	Adjust removes additive and multiplicative batch effects from dat, a
//	features × samples matrix whose columns are partitioned into batches
//	by the batch labels. Effects are estimated per batch per feature on
//	standardized data, shrunk toward per-batch priors estimated across
//	features, then removed; the result is mapped back to the original
//	scale. Missing entries are NaN; they restrict each feature's fits to
//	its observed samples and appear unchanged in the output.
//
// Pipeline:
//  1. Build and validate the design (batch indicators + covariates);
//     confounded designs are rejected here, before any fitting.
//  2. Standardize: per-feature NA-aware least squares against the full
//     design, pooled variance, standardized residuals.
//  3. Estimate raw per-batch location/scale effects on the standardized
//     data.
//  4. Estimate per-batch priors across features and shrink every raw
//     estimate toward them — iteratively (Parametric) or by a kernel
//     leave-one-out Bayes estimate (NonParametric).
//  5. Remove the shrunk effects and restore the original scale. A
//     reference batch, when set, is returned bit-identical.
//
// Mean-only mode (explicit, or forced when any batch has one sample)
// corrects locations only and fixes every scale at one.
//
// opts may be nil for defaults. Progress notices go to opts.Logger.
//
// Complexity:
//
//	Time   = O(G·n·p) fitting + O(iter·G·n) parametric or O(G²·n)
//	         non-parametric shrinkage per batch
//	Memory = O(G·n)
//
// Errors:
//   - ErrEmptyData, ErrBatchLength — malformed inputs
//   - ErrUnknownReferenceBatch     — reference id not a realized level
//   - ErrCovariateShape            — covariate rows != samples
//   - ErrConfoundedDesign family   — rank-deficient design (see errors.go)
func Adjust(dat *mat.Dense, batch []string, opts *Options) (*mat.Dense, error) {
	if dat == nil {
		return nil, ErrEmptyData
	}
	g, n := dat.Dims()
	if g == 0 || n == 0 {
		return nil, ErrEmptyData
	}

	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Convergence <= 0 {
		o.Convergence = DefaultConvergence
	}
	log := o.logger()

	d, err := newDesign([][]string{batch}, n, o.Covariates, o.ReferenceBatch, log)
	if err != nil {
		return nil, err
	}

	log.Info("found batches", "count", d.nBatch)
	log.Info("adjusting for covariates", "columns", d.nCov)
	missing := countMissing(dat)
	if missing > 0 {
		log.Info("found missing values", "count", missing)
	}

	meanOnly := o.MeanOnly
	if !meanOnly && d.forceMeanOnly() {
		meanOnly = true
		log.Info("a batch has a single sample, forcing mean-only correction")
	}
	if meanOnly {
		log.Info("using mean-only correction")
	}

	log.Info("standardizing data across features")
	std := standardize(dat, d, missing > 0)

	log.Info("fitting location/scale model and finding priors")
	gammaHat, deltaHat := locationScale(std.z, d, meanOnly)
	pri := estimatePriors(gammaHat, deltaHat)

	if o.Diagnostics && o.Mode == Parametric {
		logPriorDiagnostics(log, gammaHat, deltaHat, pri)
	}

	log.Info("finding adjustments", "mode", o.Mode.String())
	gStar := mat.NewDense(d.nBatch, g, nil)
	dStar := mat.NewDense(d.nBatch, g, nil)
	for b := 0; b < d.nBatch; b++ {
		zb := batchColumns(std.z, d.samples[b])
		gh := mat.Row(nil, b, gammaHat)
		dh := mat.Row(nil, b, deltaHat)

		var gs, ds []float64
		switch {
		case o.Mode == NonParametric:
			gs, ds = intEprior(zb, gh, dh)
			if meanOnly {
				ds = ones(g)
			}
		case meanOnly:
			// One closed-form location update; no scale to estimate.
			gs = make([]float64, g)
			for i := range gs {
				gs[i] = postMean(gh[i], pri.gammaBar[b], 1, 1, pri.t2[b])
			}
			ds = ones(g)
		default:
			var converged bool
			gs, ds, converged = itSol(zb, gh, dh,
				pri.gammaBar[b], pri.t2[b], pri.aPrior[b], pri.bPrior[b],
				o.Convergence, o.MaxIter)
			if !converged {
				log.Warn("parametric shrinkage did not converge",
					"batch", d.levels[b], "max_iter", o.MaxIter)
			}
		}
		gStar.SetRow(b, gs)
		dStar.SetRow(b, ds)
	}

	// The reference batch defines the target location/scale, so its own
	// effects are pinned before adjustment.
	if d.ref >= 0 {
		for i := 0; i < g; i++ {
			gStar.Set(d.ref, i, 0)
			dStar.Set(d.ref, i, 1)
		}
	}

	log.Info("adjusting the data")

	return applyAdjustment(dat, std, d, gStar, dStar), nil
}
