// Package combat adjusts a features × samples measurement matrix for
// additive and multiplicative batch effects using empirical Bayes.
//
// 🚀 What is ComBat?
//
//	Data merged from several technical batches carries systematic,
//	non-biological shifts in per-feature location and scale. ComBat
//	estimates those shifts per batch, shrinks the noisy per-feature
//	estimates toward batch-wide priors, and removes the shrunk effects,
//	so downstream analysis sees biology rather than processing groups.
//
// The pipeline runs five synchronous stages in strict order:
//
//  1. Design construction & validation — batch-indicator columns plus
//     optional caller covariates; confounded designs are rejected before
//     any numeric fitting.
//  2. Standardization — per-feature least squares against the full
//     design, pooled variance, standardized residuals.
//  3. Location/scale estimation — raw per-batch, per-feature additive
//     (gamma) and multiplicative (delta) effects on standardized data.
//  4. Prior estimation & shrinkage — per-batch priors across features;
//     each raw estimate shrunk toward its prior, either by closed-form
//     iteration (Parametric) or by a Gaussian-kernel leave-one-out Bayes
//     estimate (NonParametric).
//  5. Adjustment — subtract shrunk location, rescale by shrunk scale,
//     map back to the original scale. A designated reference batch is
//     returned bit-identical to the input.
//
// ✨ Key features:
//   - NA-aware: missing entries (NaN) restrict each feature's fit to its
//     observed samples and propagate to the output unchanged
//   - mean-only mode: location-only correction, auto-forced whenever a
//     batch has a single sample
//   - reference batch: all other batches are adjusted toward it
//   - injected *slog.Logger side channel for progress and mode notices
//
// ⚙️ Usage:
//
//	import "github.com/Feigeliudan01/sva-devel/combat"
//
//	opts := combat.DefaultOptions()
//	opts.ReferenceBatch = "plate1"
//	opts.Mode = combat.NonParametric
//
//	corrected, err := combat.Adjust(dat, batch, &opts)
//	if err != nil {
//		// ErrConfoundedDesign, ErrUnknownReferenceBatch, ...
//	}
//
// Performance:
//
//   - Parametric:     O(G·n) per shrinkage iteration per batch
//   - NonParametric:  O(G²·n_b) kernel likelihood evaluations per batch
//
// See example_test.go for complete scenarios.
package combat
