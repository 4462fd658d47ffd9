// Package providers declares the external collaborator contracts the
// core pipeline consumes: fixture discovery and history, odds, and
// optional persisted-fixture lookup. Concrete implementations live
// under internal/adapters; the core never imports an adapter package.
package providers

import (
	"context"
	"time"

	"github.com/fhover/scanner/internal/fhtypes"
)

// FixtureProvider discovers fixtures and team history.
type FixtureProvider interface {
	// ListFixtures returns fixtures whose kickoff falls in
	// [windowStart, windowEnd). If statusFilter is non-empty, only
	// fixtures with that status are returned.
	ListFixtures(ctx context.Context, windowStart, windowEnd time.Time, statusFilter fhtypes.FixtureStatus) ([]fhtypes.Fixture, error)

	// TeamHistory returns up to lastN of the team's most recent
	// finished fixtures in the given season, most recent first.
	// Halftime scores are present when the upstream provider has them.
	TeamHistory(ctx context.Context, teamID int64, season int, lastN int) ([]fhtypes.Fixture, error)
}

// OddsProvider resolves the FH Over 0.5 market for one fixture.
type OddsProvider interface {
	// ID is the provider identifier recorded on a resolved OddsQuote.
	ID() string

	// FHOver05 returns the current FH Over 0.5 price, or nil if the
	// provider has no market for this fixture.
	FHOver05(ctx context.Context, fixtureID int64) (*fhtypes.OddsQuote, error)
}

// FixtureStore is a persisted-fixture lookup, consumed by the service
// surface for GET /fixtures/{id}.
type FixtureStore interface {
	Get(ctx context.Context, fixtureID int64) (*fhtypes.Fixture, error)
}
