// Package stake implements the flat and confidence/value-weighted
// fractional Kelly staking rules.
package stake

import (
	"fmt"

	"github.com/fhover/scanner/internal/fhtypes"
)

// Config is the subset of the configuration surface the calculator reads.
type Config struct {
	Mode          fhtypes.StakeMode
	Bankroll      float64
	KellyFraction float64
	TauConf       float64
	TargetEdgePct float64
	StakeCap      float64
	FlatSize      float64
	MinStake      float64
	MaxStakeFrac  float64
}

// Calculate dispatches to Flat or Dynamic per cfg.Mode.
func Calculate(proj fhtypes.Projection, quote *fhtypes.OddsQuote, edgePct *float64, cfg Config) fhtypes.StakeRecommendation {
	var rec fhtypes.StakeRecommendation
	switch cfg.Mode {
	case fhtypes.StakeModeFlat:
		rec = Flat(cfg)
	default:
		rec = Dynamic(proj, quote, edgePct, cfg)
	}
	rec.Warnings = validate(rec, cfg)
	return rec
}

// Flat recommends min(flat_size, bankroll).
func Flat(cfg Config) fhtypes.StakeRecommendation {
	amount := cfg.FlatSize
	if amount > cfg.Bankroll {
		amount = cfg.Bankroll
	}
	fraction := 0.0
	if cfg.Bankroll > 0 {
		fraction = amount / cfg.Bankroll
	}
	return fhtypes.StakeRecommendation{
		Mode:          fhtypes.StakeModeFlat,
		StakeAmount:   amount,
		StakeFraction: fraction,
	}
}

// Dynamic applies confidence- and value-weighted fractional Kelly
// (spec §4.5). Returns a zero stake when there is no quote.
func Dynamic(proj fhtypes.Projection, quote *fhtypes.OddsQuote, edgePct *float64, cfg Config) fhtypes.StakeRecommendation {
	if quote == nil || quote.Price <= 0 {
		return fhtypes.StakeRecommendation{Mode: fhtypes.StakeModeDynamic}
	}

	kelly := KellyFraction(quote.Price, proj.PHat, cfg.KellyFraction)
	confWeight := ConfidenceWeight(proj.CIWidth, cfg.TauConf)
	valueWeight := ValueWeight(derefOrZero(edgePct), cfg.TargetEdgePct)

	raw := kelly * confWeight * valueWeight
	fraction := raw
	if fraction > cfg.StakeCap {
		fraction = cfg.StakeCap
	}
	if fraction < 0 {
		fraction = 0
	}

	return fhtypes.StakeRecommendation{
		Mode:             fhtypes.StakeModeDynamic,
		StakeFraction:    fraction,
		StakeAmount:      cfg.Bankroll * fraction,
		KellyFraction:    kelly,
		ConfidenceWeight: confWeight,
		ValueWeight:      valueWeight,
	}
}

// KellyFraction computes kappa * max(0, (b*p - q)/b) for decimal odds
// o, probability p, and safety factor kappa. Returns 0 when o <= 1 or
// p is outside (0, 1) — holding p fixed it is non-decreasing in o;
// holding o fixed it is non-decreasing in p.
func KellyFraction(o, p, kappa float64) float64 {
	if o <= 1.0 || p <= 0 || p >= 1 {
		return 0
	}
	b := o - 1.0
	q := 1.0 - p
	kelly := (b*p - q) / b
	if kelly < 0 {
		kelly = 0
	}
	return kappa * kelly
}

// ConfidenceWeight returns max(0, 1 - ciWidth/tau). A non-positive
// ciWidth (degenerate/zero-width interval) is treated as full
// confidence (weight 1).
func ConfidenceWeight(ciWidth, tau float64) float64 {
	if ciWidth <= 0 {
		return 1
	}
	w := 1 - ciWidth/tau
	if w < 0 {
		return 0
	}
	return w
}

// ValueWeight returns min(1, edgePct/targetEdgePct) for edgePct > 0,
// else 0. edgePct and targetEdgePct are both percent, so the ratio is
// dimensionless — see spec.md §9's note on this exact point.
func ValueWeight(edgePct, targetEdgePct float64) float64 {
	if edgePct <= 0 || targetEdgePct <= 0 {
		return 0
	}
	w := edgePct / targetEdgePct
	if w > 1 {
		return 1
	}
	return w
}

// validate runs the advisory (non-fatal) stake checks from spec.md
// §4.5: too small, too large a fraction, or exceeding bankroll each
// emit a warning string rather than an error.
func validate(rec fhtypes.StakeRecommendation, cfg Config) []string {
	var warnings []string
	if rec.StakeAmount > 0 && rec.StakeAmount < cfg.MinStake {
		warnings = append(warnings, fmt.Sprintf("stake %.2f below minimum %.2f", rec.StakeAmount, cfg.MinStake))
	}
	if cfg.MaxStakeFrac > 0 && rec.StakeFraction > cfg.MaxStakeFrac {
		warnings = append(warnings, fmt.Sprintf("stake fraction %.3f exceeds %.3f", rec.StakeFraction, cfg.MaxStakeFrac))
	}
	if rec.StakeAmount > cfg.Bankroll {
		warnings = append(warnings, fmt.Sprintf("stake %.2f exceeds bankroll %.2f", rec.StakeAmount, cfg.Bankroll))
	}
	return warnings
}

// Suppress zeroes the recommended stake while leaving the diagnostic
// fields (Mode, KellyFraction, ConfidenceWeight, ValueWeight) intact
// for audit. The orchestrator applies this whenever a fixture's
// Signal.Overall is false (spec §4.5): a fixture can clear edge and
// sample gates while failing lambda_ok (or vice versa), and a
// recommended stake must never accompany an un-fired signal.
func Suppress(rec fhtypes.StakeRecommendation) fhtypes.StakeRecommendation {
	rec.StakeAmount = 0
	rec.StakeFraction = 0
	rec.Warnings = append(rec.Warnings, "stake suppressed: signal not fired")
	return rec
}

func derefOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
