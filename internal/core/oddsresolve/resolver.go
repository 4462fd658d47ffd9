// Package oddsresolve locates the best available FH Over 0.5 price
// for a fixture across a prioritized list of odds providers.
package oddsresolve

import (
	"context"
	"fmt"

	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/providers"
	"github.com/fhover/scanner/internal/telemetry"
)

// Resolver queries odds providers in priority order and returns the
// first usable (price > 1.0) quote. Ties are broken by provider
// priority, not best price — the purpose is a repeatable reference
// point, not arbitrage (spec §4.3).
type Resolver struct {
	providers []providers.OddsProvider // already sorted by ascending priority
}

// New builds a Resolver over providers in priority order (index 0 is
// queried first).
func New(providersInPriorityOrder []providers.OddsProvider) *Resolver {
	return &Resolver{providers: providersInPriorityOrder}
}

// Resolve returns the first usable quote, or nil if no configured
// provider has a market for this fixture (NO_MARKET).
func (r *Resolver) Resolve(ctx context.Context, fixtureID int64) (*fhtypes.OddsQuote, error) {
	for _, p := range r.providers {
		telemetry.Metrics.ProviderCalls.Inc()
		quote, err := p.FHOver05(ctx, fixtureID)
		if err != nil {
			telemetry.Metrics.ProviderErrors.Inc()
			telemetry.Warnf("oddsresolve: provider %s fixture %d: %v", p.ID(), fixtureID, err)
			continue
		}
		if quote == nil || quote.Price <= 1.0 {
			continue
		}
		return quote, nil
	}
	return nil, nil
}

// ErrNoMarket is a sentinel callers can wrap into a skip reason when
// they want to distinguish "no market" from a genuine transport error.
var ErrNoMarket = fmt.Errorf("%s", fhtypes.ErrNoMarket)
