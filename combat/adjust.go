// Package combat: final adjustment stage.
package combat

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// applyAdjustment removes the shrunk batch effects from the standardized
// data and maps back to the original scale:
//
//	out = (z − gStar)/sqrt(dStar) · sqrt(varPooled) + standMean
//
// per batch, broadcasting that batch's shrunk estimates across its
// samples. A reference batch, when set, is returned bit-identical to the
// input. Missing positions propagate unchanged.
func applyAdjustment(dat *mat.Dense, std *standardized, d *design, gStar, dStar *mat.Dense) *mat.Dense {
	g, n := dat.Dims()
	out := mat.NewDense(g, n, nil)

	for b := range d.levels {
		for _, j := range d.samples[b] {
			for i := 0; i < g; i++ {
				v := (std.z.At(i, j) - gStar.At(b, i)) / math.Sqrt(dStar.At(b, i))
				out.Set(i, j, v*math.Sqrt(std.varPooled[i])+std.standMean.At(i, j))
			}
		}
	}

	if d.ref >= 0 {
		for _, j := range d.samples[d.ref] {
			for i := 0; i < g; i++ {
				out.Set(i, j, dat.At(i, j))
			}
		}
	}

	return out
}
