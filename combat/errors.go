// Package combat: sentinel error set.
// All configuration errors are detected before any numeric fitting and are
// returned as these sentinels (possibly wrapped with call-site context via
// fmt.Errorf("...: %w", ErrX)). Tests and callers match with errors.Is.
// Numeric edge cases (single-sample batches, all-missing feature rows) are
// never errors; they switch modes or propagate NaN instead.

package combat

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyData is returned when the measurement matrix is nil or has
	// zero rows or columns.
	ErrEmptyData = errors.New("combat: measurement matrix has no data")

	// ErrBatchLength is returned when the number of batch labels differs
	// from the number of samples (columns) in the measurement matrix.
	ErrBatchLength = errors.New("combat: batch labels must match sample count")

	// ErrMultipleBatchVariables is returned when more than one batch
	// grouping variable is supplied to the design builder. Exactly one
	// grouping partitions the samples.
	ErrMultipleBatchVariables = errors.New("combat: only one batch grouping variable is allowed")

	// ErrUnknownReferenceBatch is returned when the requested reference
	// batch identifier does not name a realized batch level.
	ErrUnknownReferenceBatch = errors.New("combat: reference batch is not a realized batch level")

	// ErrCovariateShape is returned when the covariate matrix row count
	// differs from the number of samples.
	ErrCovariateShape = errors.New("combat: covariate rows must match sample count")

	// ErrConfoundedDesign is the base sentinel for every rank-deficiency
	// rejection. The three sub-kinds below wrap it, so
	// errors.Is(err, ErrConfoundedDesign) matches any of them.
	ErrConfoundedDesign = errors.New("combat: design matrix is not full rank")
)

// Rank-deficiency sub-kinds. Each wraps ErrConfoundedDesign so callers can
// match either the family or the exact cause.
var (
	// ErrCovariateRedundant: the single covariate is exactly redundant
	// with the batch indicators.
	ErrCovariateRedundant = fmt.Errorf("%w: the covariate is confounded with batch, remove it and rerun", ErrConfoundedDesign)

	// ErrCovariatesConfounded: the covariates are linearly dependent among
	// themselves, independent of batch.
	ErrCovariatesConfounded = fmt.Errorf("%w: the covariates are confounded, remove one or more of them and rerun", ErrConfoundedDesign)

	// ErrCovariateConfoundedWithBatch: at least one covariate is linearly
	// dependent on the batch indicators.
	ErrCovariateConfoundedWithBatch = fmt.Errorf("%w: at least one covariate is confounded with batch, remove confounded covariates and rerun", ErrConfoundedDesign)
)
