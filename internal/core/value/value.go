// Package value computes fair odds, edge percent, and the four stage
// gates against a Projection and an optional market quote.
package value

import (
	"github.com/fhover/scanner/internal/fhtypes"
)

// Config is the subset of the configuration surface the gates read.
type Config struct {
	LambdaThreshold float64
	MinSamplesHome  int
	MinSamplesAway  int
	MinEdgePct      float64
	MaxProbCIWidth  float64
}

// Detect computes fair odds, edge percent (nil when there's no
// quote), and the Signal for a projected fixture. Gate order, and the
// order reasons are reported in, is fixed: lambda, samples, edge, ci.
func Detect(proj fhtypes.Projection, quote *fhtypes.OddsQuote, cfg Config) (fairOdds float64, edgePct *float64, sig fhtypes.Signal) {
	fairOdds = 1 / proj.PHat

	sig.LambdaOK = proj.LambdaHat >= cfg.LambdaThreshold
	sig.SamplesOK = proj.NHome >= cfg.MinSamplesHome && proj.NAway >= cfg.MinSamplesAway
	sig.CIOK = proj.CIWidth <= cfg.MaxProbCIWidth

	if quote != nil {
		e := 100 * (quote.Price*proj.PHat - 1)
		edgePct = &e
		sig.EdgeOK = e >= cfg.MinEdgePct
	} else {
		sig.EdgeOK = false
	}

	if !sig.LambdaOK {
		sig.Reasons = append(sig.Reasons, fhtypes.GateLambda)
	}
	if !sig.SamplesOK {
		sig.Reasons = append(sig.Reasons, fhtypes.GateSamples)
	}
	if !sig.EdgeOK {
		sig.Reasons = append(sig.Reasons, fhtypes.GateEdge)
	}
	if !sig.CIOK {
		sig.Reasons = append(sig.Reasons, fhtypes.GateCI)
	}

	sig.Overall = sig.LambdaOK && sig.SamplesOK && sig.EdgeOK && sig.CIOK
	return fairOdds, edgePct, sig
}
