// Package oddsapi implements providers.OddsProvider against two odds
// feed shapes: a multi-bookmaker aggregator (events/bookmakers/markets/
// outcomes, modeled on The Odds API) and a single-book pinnacle-style
// two-way market that gets devigged before use.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/telemetry"
)

const fhOver05MarketKey = "fh_over_0.5"

// AggregatorProvider resolves the FH Over 0.5 price by querying a
// multi-bookmaker odds feed and taking the best (highest decimal) price
// across all listed bookmakers for the named event.
type AggregatorProvider struct {
	id         string
	baseURL    string
	apiKey     string
	eventOf    func(fixtureID int64) string // maps a fixture id to the feed's event id
	httpClient *http.Client
}

// NewAggregatorProvider builds an AggregatorProvider. eventOf resolves a
// fixture id to the feed's own event identifier — the aggregator feed
// has no concept of the fixture provider's ids.
func NewAggregatorProvider(id, baseURL, apiKey string, eventOf func(int64) string) *AggregatorProvider {
	return &AggregatorProvider{
		id:         id,
		baseURL:    baseURL,
		apiKey:     apiKey,
		eventOf:    eventOf,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *AggregatorProvider) ID() string { return p.id }

type oddsEvent struct {
	ID         string          `json:"id"`
	HomeTeam   string          `json:"home_team"`
	AwayTeam   string          `json:"away_team"`
	Bookmakers []oddsBookmaker `json:"bookmakers"`
}

type oddsBookmaker struct {
	Key     string       `json:"key"`
	Markets []oddsMarket `json:"markets"`
}

type oddsMarket struct {
	Key      string        `json:"key"`
	Outcomes []oddsOutcome `json:"outcomes"`
}

type oddsOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// FHOver05 returns the best FH Over 0.5 price across every bookmaker in
// the feed for the fixture's mapped event, or nil if no bookmaker lists
// the market.
func (p *AggregatorProvider) FHOver05(ctx context.Context, fixtureID int64) (*fhtypes.OddsQuote, error) {
	eventID := p.eventOf(fixtureID)
	if eventID == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v4/events/%s/odds?apiKey=%s&markets=%s", p.baseURL, eventID, p.apiKey, fhOver05MarketKey), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http get: %w", fhtypes.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", fhtypes.ErrProviderUnavailable, resp.StatusCode)
	}

	var event oddsEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	telemetry.Debugf("oddsapi(%s): GET event %s -> %d (%s)", p.id, eventID, resp.StatusCode, time.Since(start))

	var best *fhtypes.OddsQuote
	for _, bm := range event.Bookmakers {
		for _, mkt := range bm.Markets {
			if mkt.Key != fhOver05MarketKey {
				continue
			}
			for _, o := range mkt.Outcomes {
				if o.Name != "Over" || o.Price <= 1.0 {
					continue
				}
				if best == nil || o.Price > best.Price {
					best = &fhtypes.OddsQuote{Price: o.Price, ProviderID: fmt.Sprintf("%s:%s", p.id, bm.Key), ObservedAt: time.Now().UTC()}
				}
			}
		}
	}
	return best, nil
}
