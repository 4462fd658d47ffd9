// Package scan drives a horizon of fixtures through the estimation,
// projection, odds-resolution, value-detection, and staking stages
// with bounded, rate-limited, single-flight-memoized concurrency.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fhover/scanner/internal/core/estimator"
	"github.com/fhover/scanner/internal/core/oddsresolve"
	"github.com/fhover/scanner/internal/core/projector"
	"github.com/fhover/scanner/internal/core/stake"
	"github.com/fhover/scanner/internal/core/value"
	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/providers"
	"github.com/fhover/scanner/internal/telemetry"
)

// defaultConcurrency bounds overall parallelism across all fixture
// workers in one scan (spec §5: "typical 8-32").
const defaultConcurrency = 16

// defaultRequestTimeout is the individual per-upstream-request timeout
// (spec §5, default 30s).
const defaultRequestTimeout = 30 * time.Second

// Config is the subset of the configuration surface the orchestrator
// and the stages it drives need.
type Config struct {
	Value value.Config
	Stake stake.Config

	MinMatchesRequired int
	LeagueAllowlist     []int64 // empty means every league

	Concurrency    int
	RequestTimeout time.Duration
	RequestDelay   time.Duration // minimum inter-request spacing per provider
}

// Orchestrator fans a horizon of fixtures out across a bounded worker
// pool, deduplicating per-team rate requests via a scan-scoped
// single-flight memo and respecting per-provider rate limits.
type Orchestrator struct {
	fixtures providers.FixtureProvider
	odds     []providers.OddsProvider // in priority order, already rate-limited
	cfg      Config
}

// New builds an Orchestrator. oddsProvidersInPriorityOrder[0] is
// queried first for each fixture's FH Over 0.5 market.
func New(fixtures providers.FixtureProvider, oddsProvidersInPriorityOrder []providers.OddsProvider, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	rlFixtures := newRateLimitedFixtures(fixtures, cfg.RequestDelay)
	rlOdds := make([]providers.OddsProvider, len(oddsProvidersInPriorityOrder))
	for i, p := range oddsProvidersInPriorityOrder {
		rlOdds[i] = newRateLimitedOdds(p, cfg.RequestDelay)
	}

	return &Orchestrator{
		fixtures: rlFixtures,
		odds:     rlOdds,
		cfg:      cfg,
	}
}

// ScanToday scans fixtures kicking off today (UTC day window).
func (o *Orchestrator) ScanToday(ctx context.Context) ([]fhtypes.ScanResult, []fhtypes.SkipReason, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return o.ScanDate(ctx, start)
}

// ScanDate scans fixtures kicking off on the given UTC day.
func (o *Orchestrator) ScanDate(ctx context.Context, day time.Time) ([]fhtypes.ScanResult, []fhtypes.SkipReason, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	return o.ScanRange(ctx, start, end)
}

// ScanRange scans fixtures kicking off in [start, end).
func (o *Orchestrator) ScanRange(ctx context.Context, start, end time.Time) ([]fhtypes.ScanResult, []fhtypes.SkipReason, error) {
	fixtures, err := o.fixtures.ListFixtures(ctx, start, end, fhtypes.StatusScheduled)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: list fixtures: %w", fhtypes.ErrProviderUnavailable, err)
	}
	fixtures = o.filterByLeague(fixtures)
	return o.runScan(ctx, fixtures)
}

// ScanFixture scans a single fixture. A skipped fixture (insufficient
// data, invalid projection, provider failure) is returned as an error
// carrying the skip kind; a nil result with a nil error means ctx was
// already cancelled.
func (o *Orchestrator) ScanFixture(ctx context.Context, fixture fhtypes.Fixture) (*fhtypes.ScanResult, error) {
	est := estimator.New(o.fixtures, o.cfg.MinMatchesRequired)
	scanID := uuid.NewString()
	res, skip := o.scanOneFixture(ctx, scanID, fixture, est)
	if res != nil {
		return res, nil
	}
	if skip != nil {
		return nil, fmt.Errorf("%s: %s", skip.Kind, skip.Detail)
	}
	return nil, nil
}

func (o *Orchestrator) filterByLeague(fixtures []fhtypes.Fixture) []fhtypes.Fixture {
	if len(o.cfg.LeagueAllowlist) == 0 {
		return fixtures
	}
	allowed := make(map[int64]bool, len(o.cfg.LeagueAllowlist))
	for _, id := range o.cfg.LeagueAllowlist {
		allowed[id] = true
	}
	out := fixtures[:0:0]
	for _, f := range fixtures {
		if allowed[f.LeagueID] {
			out = append(out, f)
		}
	}
	return out
}

// runScan fans fixtures out across a bounded worker pool. The memo
// (via a single scan-scoped Estimator) deduplicates concurrent
// team_history lookups for the same (team, season, venue); the scan
// completes only once every submitted fixture has either a result, a
// recorded skip, or (after ctx is cancelled) been dropped with neither.
func (o *Orchestrator) runScan(ctx context.Context, fixtures []fhtypes.Fixture) ([]fhtypes.ScanResult, []fhtypes.SkipReason, error) {
	scanID := uuid.NewString()
	est := estimator.New(o.fixtures, o.cfg.MinMatchesRequired)

	telemetry.Metrics.ActiveScans.Inc()
	defer telemetry.Metrics.ActiveScans.Dec()

	sem := make(chan struct{}, o.cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []fhtypes.ScanResult
	var skips []fhtypes.SkipReason

	for _, fx := range fixtures {
		fx := fx
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			res, skip := o.scanOneFixture(ctx, scanID, fx, est)

			mu.Lock()
			defer mu.Unlock()
			if res != nil {
				results = append(results, *res)
			} else if skip != nil {
				skips = append(skips, *skip)
			}
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if !results[i].KickoffUTC.Equal(results[j].KickoffUTC) {
			return results[i].KickoffUTC.Before(results[j].KickoffUTC)
		}
		return results[i].FixtureID < results[j].FixtureID
	})

	telemetry.Metrics.FixturesScanned.Add(int64(len(results)))
	telemetry.Metrics.FixturesSkipped.Add(int64(len(skips)))

	return results, skips, nil
}

// scanOneFixture runs the full per-fixture pipeline: estimate(home) in
// parallel with estimate(away) and odds resolution, then project,
// detect value, and calculate stake. Returns either a ScanResult or a
// SkipReason, never both, and never partially fills a ScanResult. It
// returns neither when ctx is already cancelled on entry.
func (o *Orchestrator) scanOneFixture(ctx context.Context, scanID string, fx fhtypes.Fixture, est *estimator.Estimator) (*fhtypes.ScanResult, *fhtypes.SkipReason) {
	if ctx.Err() != nil {
		return nil, nil
	}

	type estOutcome struct {
		est fhtypes.TeamRateEstimate
		err error
	}
	homeCh := make(chan estOutcome, 1)
	awayCh := make(chan estOutcome, 1)

	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
		e, err := est.Estimate(reqCtx, fx.Home.TeamID, fx.SeasonYear, fhtypes.VenueHome)
		homeCh <- estOutcome{e, err}
	}()
	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
		e, err := est.Estimate(reqCtx, fx.Away.TeamID, fx.SeasonYear, fhtypes.VenueAway)
		awayCh <- estOutcome{e, err}
	}()

	type oddsOutcome struct {
		quote *fhtypes.OddsQuote
	}
	oddsCh := make(chan oddsOutcome, 1)
	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
		resolver := oddsresolve.New(o.odds)
		quote, _ := resolver.Resolve(reqCtx, fx.FixtureID)
		oddsCh <- oddsOutcome{quote}
	}()

	homeOut := <-homeCh
	awayOut := <-awayCh

	if homeOut.err != nil || awayOut.err != nil {
		return nil, skipFor(fx.FixtureID, combineErr(homeOut.err, awayOut.err))
	}

	proj, err := projector.Project(homeOut.est, awayOut.est)
	if err != nil {
		if errors.Is(err, projector.ErrUnprojectable) {
			return nil, &fhtypes.SkipReason{FixtureID: fx.FixtureID, Kind: fhtypes.ErrInsufficientData, Detail: "home or away rate insufficient"}
		}
		return nil, &fhtypes.SkipReason{FixtureID: fx.FixtureID, Kind: fhtypes.ErrInvalidProjection, Detail: err.Error()}
	}

	oddsOut := <-oddsCh

	fairOdds, edgePct, signal := value.Detect(proj, oddsOut.quote, o.cfg.Value)
	rec := stake.Calculate(proj, oddsOut.quote, edgePct, o.cfg.Stake)
	if signal.Overall {
		telemetry.Metrics.SignalsFired.Inc()
	} else {
		rec = stake.Suppress(rec)
	}

	return &fhtypes.ScanResult{
		ScanID:     scanID,
		FixtureID:  fx.FixtureID,
		LeagueID:   fx.LeagueID,
		LeagueName: fx.LeagueName,
		Country:    fx.Country,
		HomeTeam:   fx.Home.Name,
		AwayTeam:   fx.Away.Name,
		KickoffUTC: fx.KickoffUTC,
		Projection: proj,
		Quote:      oddsOut.quote,
		FairOdds:   fairOdds,
		EdgePct:    edgePct,
		Signal:     signal,
		Stake:      rec,
	}, nil
}

func combineErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

func skipFor(fixtureID int64, err error) *fhtypes.SkipReason {
	kind := fhtypes.ErrProviderUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = fhtypes.ErrProviderTimeout
	}
	return &fhtypes.SkipReason{FixtureID: fixtureID, Kind: kind, Detail: err.Error()}
}
