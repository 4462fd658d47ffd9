package scan

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/providers"
	"github.com/fhover/scanner/internal/telemetry"
)

// rateLimitedFixtures wraps a FixtureProvider with a single token-bucket
// limiter shared across every fixture worker, enforcing the minimum
// inter-request spacing from spec §5 (default 1.5s). This replaces a
// naive per-worker sleep, which would over-serialize the pool — the
// limiter only throttles overall throughput, not individual workers.
type rateLimitedFixtures struct {
	inner providers.FixtureProvider
	lim   *rate.Limiter
}

func newRateLimitedFixtures(inner providers.FixtureProvider, delay time.Duration) *rateLimitedFixtures {
	return &rateLimitedFixtures{inner: inner, lim: newLimiter(delay)}
}

func (r *rateLimitedFixtures) ListFixtures(ctx context.Context, start, end time.Time, status fhtypes.FixtureStatus) ([]fhtypes.Fixture, error) {
	if err := wait(ctx, r.lim); err != nil {
		return nil, err
	}
	return r.inner.ListFixtures(ctx, start, end, status)
}

func (r *rateLimitedFixtures) TeamHistory(ctx context.Context, teamID int64, season, lastN int) ([]fhtypes.Fixture, error) {
	if err := wait(ctx, r.lim); err != nil {
		return nil, err
	}
	return r.inner.TeamHistory(ctx, teamID, season, lastN)
}

// rateLimitedOdds wraps one OddsProvider with its own limiter — each
// configured odds provider gets an independent bucket since they are
// independent upstreams with independent quotas.
type rateLimitedOdds struct {
	inner providers.OddsProvider
	lim   *rate.Limiter
}

func newRateLimitedOdds(inner providers.OddsProvider, delay time.Duration) *rateLimitedOdds {
	return &rateLimitedOdds{inner: inner, lim: newLimiter(delay)}
}

func (r *rateLimitedOdds) ID() string { return r.inner.ID() }

func (r *rateLimitedOdds) FHOver05(ctx context.Context, fixtureID int64) (*fhtypes.OddsQuote, error) {
	if err := wait(ctx, r.lim); err != nil {
		return nil, err
	}
	return r.inner.FHOver05(ctx, fixtureID)
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func wait(ctx context.Context, lim *rate.Limiter) error {
	start := time.Now()
	err := lim.Wait(ctx)
	telemetry.Metrics.RateLimiterWait.Record(time.Since(start))
	return err
}
