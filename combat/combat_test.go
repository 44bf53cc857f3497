package combat_test

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Feigeliudan01/sva-devel/combat"
)

const (
	nFeatures = 10
	perBatch  = 10
)

// shiftedData builds a deterministic 2-batch matrix: per-feature baseline
// 5+0.5i, bounded sinusoidal noise, a known +3 location shift in the
// second batch, and optionally a multiplicative noise effect there.
func shiftedData(scale2 float64) (*mat.Dense, []string) {
	n := 2 * perBatch
	dat := mat.NewDense(nFeatures, n, nil)
	batch := make([]string, n)
	for j := 0; j < n; j++ {
		batch[j] = "one"
		if j >= perBatch {
			batch[j] = "two"
		}
	}
	for i := 0; i < nFeatures; i++ {
		for j := 0; j < n; j++ {
			e := 0.4 * math.Sin(1.1*float64(i+1)+1.3*float64(j+1))
			v := 5 + 0.5*float64(i) + e
			if j >= perBatch {
				v = 5 + 0.5*float64(i) + scale2*e + 3
			}
			dat.Set(i, j, v)
		}
	}

	return dat, batch
}

// batchMean averages feature i over the samples of one batch.
func batchMean(m *mat.Dense, i, from, to int) float64 {
	var s float64
	for j := from; j < to; j++ {
		s += m.At(i, j)
	}

	return s / float64(to-from)
}

// batchVar is the sample variance of feature i over one batch.
func batchVar(m *mat.Dense, i, from, to int) float64 {
	mu := batchMean(m, i, from, to)
	var ss float64
	for j := from; j < to; j++ {
		d := m.At(i, j) - mu
		ss += d * d
	}

	return ss / float64(to-from-1)
}

// TestAdjust_InputValidation covers the pre-numeric error surface of the
// public entry point.
func TestAdjust_InputValidation(t *testing.T) {
	dat, batch := shiftedData(1)

	_, err := combat.Adjust(nil, batch, nil)
	assert.ErrorIs(t, err, combat.ErrEmptyData, "nil matrix")

	_, err = combat.Adjust(dat, batch[:3], nil)
	assert.ErrorIs(t, err, combat.ErrBatchLength, "short label vector")

	opts := combat.DefaultOptions()
	opts.ReferenceBatch = "three"
	_, err = combat.Adjust(dat, batch, &opts)
	assert.ErrorIs(t, err, combat.ErrUnknownReferenceBatch, "reference must name a level")

	// A covariate duplicating the second batch indicator can never be
	// fit alongside it.
	conf := mat.NewDense(2*perBatch, 1, nil)
	for j := perBatch; j < 2*perBatch; j++ {
		conf.Set(j, 0, 1)
	}
	opts = combat.DefaultOptions()
	opts.Covariates = conf
	_, err = combat.Adjust(dat, batch, &opts)
	assert.ErrorIs(t, err, combat.ErrConfoundedDesign, "confounded design must never fit silently")
}

// TestAdjust_CorrectsKnownShift runs the reference scenario: a +3 shift
// in batch two shrinks to within the pooled standard error of zero,
// under both shrinkage modes.
func TestAdjust_CorrectsKnownShift(t *testing.T) {
	for _, tc := range []struct {
		name string
		mode combat.Mode
	}{
		{"parametric", combat.Parametric},
		{"non-parametric", combat.NonParametric},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dat, batch := shiftedData(1)
			opts := combat.DefaultOptions()
			opts.Mode = tc.mode

			out, err := combat.Adjust(dat, batch, &opts)
			require.NoError(t, err)

			for i := 0; i < nFeatures; i++ {
				before := batchMean(dat, i, perBatch, 2*perBatch) - batchMean(dat, i, 0, perBatch)
				assert.InDelta(t, 3, before, 0.2, "raw shift is approximately +3")

				after := batchMean(out, i, perBatch, 2*perBatch) - batchMean(out, i, 0, perBatch)
				se := math.Sqrt(batchVar(out, i, 0, perBatch)/perBatch +
					batchVar(out, i, perBatch, 2*perBatch)/perBatch)
				assert.LessOrEqual(t, math.Abs(after), se,
					"corrected difference within the pooled standard error, feature %d", i)
			}
		})
	}
}

// TestAdjust_Idempotence verifies that re-estimating batch effects on
// corrected output finds locations near zero and scales near one.
func TestAdjust_Idempotence(t *testing.T) {
	dat, batch := shiftedData(1.6)
	out, err := combat.Adjust(dat, batch, nil)
	require.NoError(t, err)

	n := 2 * perBatch
	for i := 0; i < nFeatures; i++ {
		m1 := batchMean(out, i, 0, perBatch)
		m2 := batchMean(out, i, perBatch, n)
		grand := (m1 + m2) / 2

		// Pooled residual variance around the per-batch means, divisor n.
		var ss float64
		for j := 0; j < n; j++ {
			mu := m1
			if j >= perBatch {
				mu = m2
			}
			d := out.At(i, j) - mu
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(n))

		assert.Less(t, math.Abs(m1-grand)/sd, 0.25, "batch-one location near zero, feature %d", i)
		assert.Less(t, math.Abs(m2-grand)/sd, 0.25, "batch-two location near zero, feature %d", i)
		for _, v := range []float64{batchVar(out, i, 0, perBatch), batchVar(out, i, perBatch, n)} {
			assert.Greater(t, v/(sd*sd), 0.7, "batch scale near one, feature %d", i)
			assert.Less(t, v/(sd*sd), 1.5, "batch scale near one, feature %d", i)
		}
	}
}

// TestAdjust_ShapeAndMissingPreserved scatters missing entries and
// verifies the run survives with NaN positions intact.
func TestAdjust_ShapeAndMissingPreserved(t *testing.T) {
	dat, batch := shiftedData(1)
	holes := [][2]int{{0, 2}, {3, 14}, {5, 7}, {7, 19}, {9, 0}}
	for _, h := range holes {
		dat.Set(h[0], h[1], math.NaN())
	}

	out, err := combat.Adjust(dat, batch, nil)
	require.NoError(t, err)

	r, c := out.Dims()
	assert.Equal(t, nFeatures, r)
	assert.Equal(t, 2*perBatch, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.Equal(t, math.IsNaN(dat.At(i, j)), math.IsNaN(out.At(i, j)),
				"missing positions must match at (%d,%d)", i, j)
		}
	}
}

// TestAdjust_ReferenceBatch verifies reference columns are bit-identical
// to the input while the other batch still moves toward them.
func TestAdjust_ReferenceBatch(t *testing.T) {
	dat, batch := shiftedData(1)
	opts := combat.DefaultOptions()
	opts.ReferenceBatch = "one"

	out, err := combat.Adjust(dat, batch, &opts)
	require.NoError(t, err)

	for i := 0; i < nFeatures; i++ {
		for j := 0; j < perBatch; j++ {
			assert.Equal(t, dat.At(i, j), out.At(i, j),
				"reference column must be untouched at (%d,%d)", i, j)
		}
		after := batchMean(out, i, perBatch, 2*perBatch) - batchMean(out, i, 0, perBatch)
		assert.Less(t, math.Abs(after), 0.5, "shift removed relative to the reference, feature %d", i)
	}
}

// TestAdjust_SingleSampleBatchForcesMeanOnly verifies the mode switch
// happens silently instead of raising an error.
func TestAdjust_SingleSampleBatchForcesMeanOnly(t *testing.T) {
	dat, batch := shiftedData(1)
	batch[2*perBatch-1] = "three" // a singleton batch

	var buf bytes.Buffer
	opts := combat.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	out, err := combat.Adjust(dat, batch, &opts)
	require.NoError(t, err, "a single-sample batch is a mode switch, not an error")

	r, c := out.Dims()
	assert.Equal(t, nFeatures, r)
	assert.Equal(t, 2*perBatch, c)
	assert.Contains(t, buf.String(), "mean-only", "the forced mode must be announced")
	for i := 0; i < r; i++ {
		assert.False(t, math.IsNaN(out.At(i, 2*perBatch-1)), "singleton column stays finite")
	}
}

// TestAdjust_InterceptOnlyCovariateEquivalence verifies an all-ones
// covariate column is equivalent to supplying no covariates at all.
func TestAdjust_InterceptOnlyCovariateEquivalence(t *testing.T) {
	dat, batch := shiftedData(1)
	plain, err := combat.Adjust(dat, batch, nil)
	require.NoError(t, err)

	ones := mat.NewDense(2*perBatch, 1, nil)
	for j := 0; j < 2*perBatch; j++ {
		ones.Set(j, 0, 1)
	}
	opts := combat.DefaultOptions()
	opts.Covariates = ones
	withIntercept, err := combat.Adjust(dat, batch, &opts)
	require.NoError(t, err)

	assert.Equal(t, plain.RawMatrix().Data, withIntercept.RawMatrix().Data,
		"intercept column must be dropped, not fitted")
}

// TestAdjust_WithCovariate verifies an independent covariate design fits
// and preserves output shape.
func TestAdjust_WithCovariate(t *testing.T) {
	dat, batch := shiftedData(1)
	cov := mat.NewDense(2*perBatch, 1, nil)
	for j := 0; j < 2*perBatch; j++ {
		cov.Set(j, 0, math.Cos(0.9*float64(j+1)))
	}
	opts := combat.DefaultOptions()
	opts.Covariates = cov

	out, err := combat.Adjust(dat, batch, &opts)
	require.NoError(t, err)
	r, c := out.Dims()
	assert.Equal(t, nFeatures, r)
	assert.Equal(t, 2*perBatch, c)
}

// TestAdjust_SingleBatch verifies a degenerate one-batch input runs and
// keeps its shape.
func TestAdjust_SingleBatch(t *testing.T) {
	dat, _ := shiftedData(1)
	batch := make([]string, 2*perBatch)
	for j := range batch {
		batch[j] = "only"
	}

	out, err := combat.Adjust(dat, batch, nil)
	require.NoError(t, err)
	r, c := out.Dims()
	assert.Equal(t, nFeatures, r)
	assert.Equal(t, 2*perBatch, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.False(t, math.IsNaN(out.At(i, j)))
		}
	}
}

// TestAdjust_MeanOnlyNonParametric smoke-tests the remaining mode
// combination: kernel shrinkage with scale pinned at one.
func TestAdjust_MeanOnlyNonParametric(t *testing.T) {
	dat, batch := shiftedData(1)
	opts := combat.DefaultOptions()
	opts.Mode = combat.NonParametric
	opts.MeanOnly = true

	out, err := combat.Adjust(dat, batch, &opts)
	require.NoError(t, err)
	for i := 0; i < nFeatures; i++ {
		after := batchMean(out, i, perBatch, 2*perBatch) - batchMean(out, i, 0, perBatch)
		assert.Less(t, math.Abs(after), 0.5, "location shift removed, feature %d", i)
	}
}

// TestAdjust_ProgressMessages verifies the informational side channel
// reaches an injected logger without affecting results.
func TestAdjust_ProgressMessages(t *testing.T) {
	dat, batch := shiftedData(1)

	var buf bytes.Buffer
	opts := combat.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	opts.Diagnostics = true

	logged, err := combat.Adjust(dat, batch, &opts)
	require.NoError(t, err)
	silent, err := combat.Adjust(dat, batch, nil)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "found batches")
	assert.Contains(t, buf.String(), "standardizing data")
	assert.Contains(t, buf.String(), "prior fit")
	assert.Equal(t, silent.RawMatrix().Data, logged.RawMatrix().Data,
		"logging is a pure side channel")
}
