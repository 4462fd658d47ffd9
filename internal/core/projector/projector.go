// Package projector combines two TeamRateEstimates into a match-level
// Poisson projection with a Wald confidence interval on the
// first-half Over 0.5 probability.
package projector

import (
	"fmt"
	"math"

	"github.com/fhover/scanner/internal/fhtypes"
)

// z95 is the two-sided 95% normal critical value used for the Wald
// interval on lambda (spec §4.2).
const z95 = 1.96

// ErrUnprojectable is returned when either input rate is
// INSUFFICIENT_DATA; the fixture becomes non-evaluable, not an error
// to be logged as a bug.
var ErrUnprojectable = fmt.Errorf("UNPROJECTABLE")

// Project combines the home team's home-venue rate and the away
// team's away-venue rate into a Projection.
//
// lambda_hat is the arithmetic mean of the two rates; p_hat = 1 -
// exp(-lambda_hat) under a Poisson model for total first-half goals.
// The confidence interval is a Wald interval on lambda,
// lambda_hat ± z·sqrt(var/n) with n the total number of source
// matches, propagated to p via the monotonic map p = 1 - e^(-lambda)
// and clipped to [0, 1]. var is the Poisson estimate from
// pooledVariance; the sample variance of the individual per-match
// observations is not used, since the estimates carry only their means.
func Project(home, away fhtypes.TeamRateEstimate) (fhtypes.Projection, error) {
	if home.Insufficient() || away.Insufficient() {
		return fhtypes.Projection{}, ErrUnprojectable
	}

	muHome, muAway := *home.MeanFHGoals, *away.MeanFHGoals
	lambdaHat := (muHome + muAway) / 2.0
	if lambdaHat <= 0 {
		return fhtypes.Projection{}, fmt.Errorf("%s: lambda_hat = %v <= 0", fhtypes.ErrInvalidProjection, lambdaHat)
	}

	pHat := 1 - math.Exp(-lambdaHat)
	if pHat <= 0 || pHat >= 1 {
		return fhtypes.Projection{}, fmt.Errorf("%s: p_hat = %v outside (0,1)", fhtypes.ErrInvalidProjection, pHat)
	}

	n := len(home.SourceMatches) + len(away.SourceMatches)
	pooledVar := pooledVariance(muHome, len(home.SourceMatches), muAway, len(away.SourceMatches))

	var lambdaLo, lambdaHi float64
	if n > 0 {
		halfWidth := z95 * math.Sqrt(pooledVar/float64(n))
		lambdaLo = math.Max(0, lambdaHat-halfWidth)
		lambdaHi = lambdaHat + halfWidth
	} else {
		lambdaLo, lambdaHi = lambdaHat, lambdaHat
	}

	pLo := clip01(1 - math.Exp(-lambdaLo))
	pHi := clip01(1 - math.Exp(-lambdaHi))
	if pLo > pHat {
		pLo = pHat
	}
	if pHi < pHat {
		pHi = pHat
	}

	return fhtypes.Projection{
		LambdaHat: lambdaHat,
		PHat:      pHat,
		PLo:       pLo,
		PHi:       pHi,
		CIWidth:   pHi - pLo,
		NHome:     len(home.SourceMatches),
		NAway:     len(away.SourceMatches),
	}, nil
}

// pooledVariance estimates the variance of the per-match
// total-first-half-goal observations under a Poisson model: for a
// Poisson(mu) variable, Var = mu. The pooled estimate weights each
// venue's variance by its sample size — the same weighting the
// pooled mean itself would use if the two venue subsets were
// concatenated into one sample.
//
// This is the documented choice for the open question in spec.md §9
// ("implementers should choose a documented pooled-variance
// estimator"): Poisson variance-equals-mean, sample-size-weighted.
func pooledVariance(muHome float64, nHome int, muAway float64, nAway int) float64 {
	n := nHome + nAway
	if n == 0 {
		return 0
	}
	return (muHome*float64(nHome) + muAway*float64(nAway)) / float64(n)
}

func clip01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
