package stake

import (
	"math"
	"testing"

	"github.com/fhover/scanner/internal/fhtypes"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func s2Config() Config {
	return Config{
		Mode:          fhtypes.StakeModeDynamic,
		Bankroll:      1000,
		KellyFraction: 0.5,
		TauConf:       0.20,
		TargetEdgePct: 5.0,
		StakeCap:      0.03,
		FlatSize:      10,
		MinStake:      1,
		MaxStakeFrac:  0.10,
	}
}

func TestDynamic_S2Scenario(t *testing.T) {
	pHat := 1 - math.Exp(-1.70)
	proj := fhtypes.Projection{LambdaHat: 1.70, PHat: pHat, CIWidth: 0.11}
	quote := &fhtypes.OddsQuote{Price: 1.40}
	edge := 100 * (1.40*pHat - 1)

	rec := Dynamic(proj, quote, &edge, s2Config())

	if !approxEqual(rec.KellyFraction, 0.18096, 1e-3) {
		t.Errorf("KellyFraction = %v, want ~0.18096", rec.KellyFraction)
	}
	if !approxEqual(rec.ConfidenceWeight, 0.45, 1e-3) {
		t.Errorf("ConfidenceWeight = %v, want 0.45", rec.ConfidenceWeight)
	}
	if rec.ValueWeight != 1.0 {
		t.Errorf("ValueWeight = %v, want 1.0 (capped)", rec.ValueWeight)
	}
	if !approxEqual(rec.StakeFraction, 0.03, 1e-9) {
		t.Errorf("StakeFraction = %v, want 0.03 (capped)", rec.StakeFraction)
	}
	if !approxEqual(rec.StakeAmount, 30.0, 1e-6) {
		t.Errorf("StakeAmount = %v, want 30.00", rec.StakeAmount)
	}
}

func TestDynamic_NoMarketIsZeroStake(t *testing.T) {
	proj := fhtypes.Projection{LambdaHat: 1.70, PHat: 0.8173, CIWidth: 0.11}
	rec := Dynamic(proj, nil, nil, s2Config())
	if rec.StakeFraction != 0 || rec.StakeAmount != 0 {
		t.Errorf("stake = (%v, %v), want (0, 0) with no quote", rec.StakeFraction, rec.StakeAmount)
	}
}

func TestKellyFraction_OddsAtOne(t *testing.T) {
	if k := KellyFraction(1.0, 0.8, 0.5); k != 0 {
		t.Errorf("KellyFraction(o=1.0) = %v, want 0", k)
	}
}

func TestKellyFraction_Monotonic(t *testing.T) {
	// Holding p fixed, non-decreasing in odds.
	p := 0.6
	prev := KellyFraction(1.1, p, 1.0)
	for _, o := range []float64{1.3, 1.6, 2.0, 3.0} {
		k := KellyFraction(o, p, 1.0)
		if k < prev {
			t.Errorf("KellyFraction not monotonic in odds: o=%v k=%v < prev=%v", o, k, prev)
		}
		prev = k
	}

	// Holding odds fixed, non-decreasing in p.
	o := 2.0
	prev = KellyFraction(o, 0.1, 1.0)
	for _, p := range []float64{0.2, 0.4, 0.6, 0.8} {
		k := KellyFraction(o, p, 1.0)
		if k < prev {
			t.Errorf("KellyFraction not monotonic in p: p=%v k=%v < prev=%v", p, k, prev)
		}
		prev = k
	}
}

func TestConfidenceWeight_AtTau(t *testing.T) {
	if w := ConfidenceWeight(0.20, 0.20); w != 0 {
		t.Errorf("ConfidenceWeight(ciWidth=tau) = %v, want 0", w)
	}
}

func TestValueWeight_NonPositiveEdge(t *testing.T) {
	if w := ValueWeight(0, 5.0); w != 0 {
		t.Errorf("ValueWeight(0) = %v, want 0", w)
	}
	if w := ValueWeight(-1, 5.0); w != 0 {
		t.Errorf("ValueWeight(-1) = %v, want 0", w)
	}
}

func TestFlat_CapsAtBankroll(t *testing.T) {
	cfg := Config{Mode: fhtypes.StakeModeFlat, FlatSize: 2000, Bankroll: 1000}
	rec := Flat(cfg)
	if rec.StakeAmount != 1000 {
		t.Errorf("StakeAmount = %v, want 1000 (capped at bankroll)", rec.StakeAmount)
	}
	if rec.StakeFraction != 1.0 {
		t.Errorf("StakeFraction = %v, want 1.0", rec.StakeFraction)
	}
}

func TestCalculate_StakeFractionNeverExceedsCap(t *testing.T) {
	cfg := s2Config()
	cfg.StakeCap = 0.03
	proj := fhtypes.Projection{LambdaHat: 5, PHat: 0.99, CIWidth: 0.001}
	quote := &fhtypes.OddsQuote{Price: 10.0}
	edge := 100 * (10.0*0.99 - 1)

	rec := Calculate(proj, quote, &edge, cfg)
	if rec.StakeFraction > cfg.StakeCap {
		t.Errorf("StakeFraction = %v, exceeds cap %v", rec.StakeFraction, cfg.StakeCap)
	}
	if rec.StakeAmount > cfg.Bankroll {
		t.Errorf("StakeAmount = %v, exceeds bankroll %v", rec.StakeAmount, cfg.Bankroll)
	}
}

func TestSuppress_ZeroesAmountAndFractionButKeepsDiagnostics(t *testing.T) {
	rec := fhtypes.StakeRecommendation{
		Mode:             fhtypes.StakeModeDynamic,
		StakeAmount:      30.0,
		StakeFraction:    0.03,
		KellyFraction:    0.18096,
		ConfidenceWeight: 0.45,
		ValueWeight:      1.0,
	}

	out := Suppress(rec)

	if out.StakeAmount != 0 {
		t.Errorf("StakeAmount = %v, want 0", out.StakeAmount)
	}
	if out.StakeFraction != 0 {
		t.Errorf("StakeFraction = %v, want 0", out.StakeFraction)
	}
	if out.KellyFraction != rec.KellyFraction || out.ConfidenceWeight != rec.ConfidenceWeight || out.ValueWeight != rec.ValueWeight {
		t.Errorf("diagnostic weights changed: got %+v, want unchanged from %+v", out, rec)
	}
	if len(out.Warnings) == 0 {
		t.Errorf("expected a suppression warning, got none")
	}
}

func TestCalculate_ValidationWarnings(t *testing.T) {
	cfg := s2Config()
	cfg.MinStake = 100 // force a "too small" warning
	proj := fhtypes.Projection{LambdaHat: 1.70, PHat: 1 - math.Exp(-1.70), CIWidth: 0.11}
	quote := &fhtypes.OddsQuote{Price: 1.40}
	edge := 100 * (1.40*proj.PHat - 1)

	rec := Calculate(proj, quote, &edge, cfg)
	if len(rec.Warnings) == 0 {
		t.Errorf("expected a warning for stake below minimum, got none")
	}
}
