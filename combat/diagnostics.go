// Package combat: numeric prior-fit diagnostics.
//
// The original tool renders density plots comparing the first batch's raw
// estimates with the fitted parametric priors. This library has no
// plotting surface, so the same comparison is emitted numerically through
// the injected logger: one Kolmogorov gap per prior. A pure side channel;
// returned values are unaffected.
package combat

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// cdfer is the slice of distuv shared by the two prior families.
type cdfer interface {
	CDF(x float64) float64
}

// logPriorDiagnostics reports how well the fitted priors describe the
// first batch's raw estimates: the Kolmogorov gap between the empirical
// distribution of gammaHat[0,:] and Normal(gammaBar, sqrt(t2)), and
// between deltaHat[0,:] and InverseGamma(aPrior, bPrior).
func logPriorDiagnostics(log *slog.Logger, gammaHat, deltaHat *mat.Dense, p *priors) {
	gRow := observed(mat.Row(nil, 0, gammaHat))
	dRow := observed(mat.Row(nil, 0, deltaHat))
	sd := math.Sqrt(p.t2[0])
	if len(gRow) == 0 || len(dRow) == 0 || math.IsNaN(sd) || sd <= 0 ||
		!(p.aPrior[0] > 0) || !(p.bPrior[0] > 0) || math.IsInf(p.aPrior[0], 0) {
		log.Warn("prior diagnostics unavailable, degenerate prior fit")

		return
	}

	locGap := ksGap(gRow, distuv.Normal{Mu: p.gammaBar[0], Sigma: sd})
	scaleGap := ksGap(dRow, distuv.InverseGamma{Alpha: p.aPrior[0], Beta: p.bPrior[0]})
	log.Info("prior fit for first batch",
		"location_ks", locGap,
		"scale_ks", scaleGap,
		"gamma_bar", p.gammaBar[0],
		"t2", p.t2[0],
		"a_prior", p.aPrior[0],
		"b_prior", p.bPrior[0],
	)
}

// ksGap is the Kolmogorov statistic between the empirical distribution
// of xs and dist: the largest vertical gap between the two CDFs.
func ksGap(xs []float64, dist cdfer) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := float64(len(s))
	var gap float64
	for i, v := range s {
		c := dist.CDF(v)
		if lo := math.Abs(c - float64(i)/n); lo > gap {
			gap = lo
		}
		if hi := math.Abs(float64(i+1)/n - c); hi > gap {
			gap = hi
		}
	}

	return gap
}
