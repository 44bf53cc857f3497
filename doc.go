// Package sva hosts empirical-Bayes batch-effect correction for
// high-dimensional measurement matrices — expression-style data combined
// from several technical processing batches.
//
// 🚀 What is sva?
//
//	A small, focused numerical library that removes non-biological batch
//	variation from a features × samples matrix while preserving a
//	caller-modeled signal of interest:
//		• Design construction & validation: batch indicators + covariates,
//		  confounding detection before any fitting
//		• Standardization: NA-aware per-feature regression, pooled variance
//		• Empirical Bayes: per-batch priors estimated across features
//		• Shrinkage: parametric (iterative posterior) or non-parametric
//		  (Gaussian-kernel, leave-one-out) estimators
//		• Adjustment: remove shrunk location/scale, map back to the
//		  original scale, reference batch left untouched
//
// ✨ Why choose sva?
//
//   - Deterministic – pure function of its inputs, no global state
//   - Missing-data tolerant – NaN entries propagate, never abort a run
//   - Observable – progress and mode notices via an injected slog.Logger
//
// Everything lives in one subpackage:
//
//	combat/ — the full batch-correction pipeline and its estimators
//
// Quick start:
//
//	import "github.com/Feigeliudan01/sva-devel/combat"
//
//	corrected, err := combat.Adjust(dat, batch, nil)
//
// See combat/doc.go for the algorithm walkthrough and examples.
package sva
