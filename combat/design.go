// Package combat: design construction and confounding validation.
//
// The full design matrix is [batch indicators | covariates]: one indicator
// column per realized batch level (no intercept) concatenated with the
// caller's covariate columns. Every rejection here happens before any
// numeric fitting, so a returned error means no work was done.
package combat

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// design is the validated full design matrix plus the batch bookkeeping
// derived from the sample labels.
type design struct {
	levels  []string   // distinct batch levels, sorted
	sizes   []int      // samples per level; sums to the sample count
	samples [][]int    // sample (column) indices per level
	full    *mat.Dense // n × (nBatch + nCov)
	nBatch  int
	nCov    int // covariate columns kept after dropping all-ones columns
	ref     int // index into levels, -1 when no reference batch is set
}

// newDesign validates the grouping, reference and covariates, and builds
// the full design matrix.
//
// groups carries the batch grouping variables; exactly one is allowed,
// each entry one label per sample. ref is the requested reference-batch
// level, empty for none.
//
// Errors:
//   - ErrMultipleBatchVariables — len(groups) != 1
//   - ErrBatchLength            — labels do not cover every sample
//   - ErrUnknownReferenceBatch  — ref names no realized level
//   - ErrCovariateShape         — covariate rows != samples
//   - ErrConfoundedDesign       — rank deficiency, sub-classified into
//     ErrCovariateRedundant, ErrCovariatesConfounded or
//     ErrCovariateConfoundedWithBatch
func newDesign(groups [][]string, n int, covariates *mat.Dense, ref string, log *slog.Logger) (*design, error) {
	if len(groups) != 1 {
		return nil, ErrMultipleBatchVariables
	}
	batch := groups[0]
	if len(batch) != n {
		return nil, ErrBatchLength
	}

	// Realize batch levels in sorted order, with sizes and sample indices.
	byLevel := make(map[string][]int)
	for j, b := range batch {
		byLevel[b] = append(byLevel[b], j)
	}
	levels := make([]string, 0, len(byLevel))
	for b := range byLevel {
		levels = append(levels, b)
	}
	sort.Strings(levels)

	d := &design{
		levels:  levels,
		sizes:   make([]int, len(levels)),
		samples: make([][]int, len(levels)),
		nBatch:  len(levels),
		ref:     -1,
	}
	for i, b := range levels {
		d.samples[i] = byLevel[b]
		d.sizes[i] = len(byLevel[b])
	}

	if ref != "" {
		for i, b := range levels {
			if b == ref {
				d.ref = i
				break
			}
		}
		if d.ref < 0 {
			return nil, ErrUnknownReferenceBatch
		}
		log.Info("using reference batch", "batch", ref)
	}

	// Covariates: validate shape, then drop any all-ones column so an
	// intercept-only covariate design is equivalent to no covariates.
	// Batch indicator columns are never dropped; with a single batch its
	// indicator is legitimately all ones.
	var cov [][]float64
	if covariates != nil {
		r, k := covariates.Dims()
		if r != n {
			return nil, ErrCovariateShape
		}
		dropped := 0
		for c := 0; c < k; c++ {
			col := mat.Col(nil, c, covariates)
			if allOnes(col) {
				dropped++
				continue
			}
			cov = append(cov, col)
		}
		if dropped > 0 {
			log.Info("dropped intercept covariate columns", "count", dropped)
		}
	}
	d.nCov = len(cov)

	// Assemble the full design: indicators first, covariates after.
	p := d.nBatch + d.nCov
	d.full = mat.NewDense(n, p, nil)
	for i, idx := range d.samples {
		for _, j := range idx {
			d.full.Set(j, i, 1)
		}
	}
	for c, col := range cov {
		d.full.SetCol(d.nBatch+c, col)
	}

	if d.nCov == 0 {
		// Disjoint indicator columns are always linearly independent.
		return d, nil
	}

	// Rank validation, sub-classified by comparing the rank with and
	// without the batch columns.
	if matRank(d.full) < p {
		if d.nCov == 1 {
			return nil, ErrCovariateRedundant
		}
		covBlock := d.full.Slice(0, n, d.nBatch, p)
		if matRank(covBlock) < d.nCov {
			return nil, ErrCovariatesConfounded
		}

		return nil, ErrCovariateConfoundedWithBatch
	}

	return d, nil
}

// batchDesign returns the indicator-only view of the full design.
func (d *design) batchDesign() mat.Matrix {
	n, _ := d.full.Dims()

	return d.full.Slice(0, n, 0, d.nBatch)
}

// forceMeanOnly reports whether any batch is too small for a scale
// estimate; a single observation has no variance.
func (d *design) forceMeanOnly() bool {
	for _, s := range d.sizes {
		if s == 1 {
			return true
		}
	}

	return false
}

// matRank computes the numeric rank of a via SVD with the usual
// max(dims)·σ₁·ε tolerance.
func matRank(a mat.Matrix) int {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return 0
	}
	vals := svd.Values(nil)
	if len(vals) == 0 || vals[0] == 0 {
		return 0
	}
	r, c := a.Dims()
	dim := r
	if c > dim {
		dim = c
	}
	tol := float64(dim) * vals[0] * machEps
	rank := 0
	for _, v := range vals {
		if v > tol {
			rank++
		}
	}

	return rank
}

// machEps is the double-precision machine epsilon used by matRank.
const machEps = 2.220446049250313e-16

// allOnes reports whether every entry of col equals exactly 1.
func allOnes(col []float64) bool {
	for _, v := range col {
		if v != 1 {
			return false
		}
	}

	return len(col) > 0
}

// countMissing returns the number of NaN entries of m.
func countMissing(m *mat.Dense) int {
	r, c := m.Dims()
	missing := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(m.At(i, j)) {
				missing++
			}
		}
	}

	return missing
}
