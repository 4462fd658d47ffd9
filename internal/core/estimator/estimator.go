// Package estimator computes per-team first-half goal rates with
// sample-size gating and memoizes them for the lifetime of one scan.
package estimator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/providers"
	"github.com/fhover/scanner/internal/telemetry"
)

// lastNFixtures is how many of a team's most recent finished matches
// the estimator requests per (team, season) lookup.
const lastNFixtures = 50

// Estimator computes TeamRateEstimates and memoizes them by
// (team, season, venue) for one scan. It is not safe to share across
// scans — the scan orchestrator creates a new Estimator per scan.
type Estimator struct {
	provider providers.FixtureProvider
	minMatchesRequired int

	sf singleflight.Group

	mu    sync.Mutex
	cache map[cacheKey]fhtypes.TeamRateEstimate
}

type cacheKey struct {
	teamID int64
	season int
	venue  fhtypes.Venue
}

// New creates an Estimator scoped to one scan.
func New(provider providers.FixtureProvider, minMatchesRequired int) *Estimator {
	return &Estimator{
		provider:           provider,
		minMatchesRequired: minMatchesRequired,
		cache:              make(map[cacheKey]fhtypes.TeamRateEstimate),
	}
}

// Estimate returns the team's mean first-half goals per match for the
// given season and venue, gated on total finished-match count per
// §4.1. Concurrent callers for the same (team, season, venue) observe
// exactly one upstream team_history call (single-flight).
func (e *Estimator) Estimate(ctx context.Context, teamID int64, season int, venue fhtypes.Venue) (fhtypes.TeamRateEstimate, error) {
	key := cacheKey{teamID, season, venue}

	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.mu.Unlock()
		telemetry.Metrics.MemoHits.Inc()
		return cached, nil
	}
	e.mu.Unlock()

	sfKey := fmt.Sprintf("%d|%d|%s", teamID, season, venue)
	v, err, _ := e.sf.Do(sfKey, func() (any, error) {
		return e.fetchAndCompute(ctx, teamID, season, venue)
	})
	if err != nil {
		return fhtypes.TeamRateEstimate{}, err
	}

	est := v.(fhtypes.TeamRateEstimate)
	e.mu.Lock()
	e.cache[key] = est
	e.mu.Unlock()
	return est, nil
}

func (e *Estimator) fetchAndCompute(ctx context.Context, teamID int64, season int, venue fhtypes.Venue) (fhtypes.TeamRateEstimate, error) {
	telemetry.Metrics.ProviderCalls.Inc()
	history, err := e.provider.TeamHistory(ctx, teamID, season, lastNFixtures)
	if err != nil {
		telemetry.Metrics.ProviderErrors.Inc()
		return fhtypes.TeamRateEstimate{}, fmt.Errorf("%s: team %d season %d: %w", fhtypes.ErrProviderUnavailable, teamID, season, err)
	}

	var finished []fhtypes.Fixture
	for _, f := range history {
		if f.Status == fhtypes.StatusFinished {
			finished = append(finished, f)
		}
	}

	// The sample-size gate is on the TOTAL finished count, not the
	// venue-filtered count — this is deliberate (spec §4.1): early
	// season teams with an uneven home/away split are still
	// analyzable as long as they have enough matches overall. Every
	// finished match counts toward the gate even if its half-time
	// score is missing (an absent half-time defaults to 0-0 goals
	// when summed below), matching how team_analyzer.py counts FT
	// matches against the gate.
	if len(finished) < e.minMatchesRequired {
		return fhtypes.TeamRateEstimate{TeamID: teamID, Season: season, Venue: venue, N: len(finished)}, nil
	}

	var sum float64
	var sourceMatches []int64
	for _, f := range finished {
		if !matchesVenue(f, teamID, venue) {
			continue
		}
		if f.HalfTime != nil {
			sum += float64(f.HalfTime.Home + f.HalfTime.Away)
		}
		sourceMatches = append(sourceMatches, f.FixtureID)
	}

	if len(sourceMatches) == 0 {
		// Gate passed on the total, but there's no venue-filtered
		// subset to divide by — still INSUFFICIENT_DATA.
		return fhtypes.TeamRateEstimate{TeamID: teamID, Season: season, Venue: venue, N: len(finished)}, nil
	}

	mean := sum / float64(len(sourceMatches))
	return fhtypes.TeamRateEstimate{
		TeamID:        teamID,
		Season:        season,
		Venue:         venue,
		N:             len(finished),
		MeanFHGoals:   &mean,
		SourceMatches: sourceMatches,
	}, nil
}

func matchesVenue(f fhtypes.Fixture, teamID int64, venue fhtypes.Venue) bool {
	switch venue {
	case fhtypes.VenueHome:
		return f.Home.TeamID == teamID
	case fhtypes.VenueAway:
		return f.Away.TeamID == teamID
	default:
		return false
	}
}
