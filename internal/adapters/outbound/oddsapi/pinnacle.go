package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fhover/scanner/internal/core/oddsvig"
	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/telemetry"
)

// PinnacleProvider resolves the FH Over 0.5 market from a single-book
// feed that quotes both sides of the two-way market. The raw quoted
// price carries the book's overround, so the resolved price is the
// devigged fair price, not the raw Over price (spec §4.3 — Pinnacle is
// used as a reference line precisely because it is low-vig, but even a
// low vig is still stripped before comparison).
type PinnacleProvider struct {
	baseURL    string
	apiKey     string
	eventOf    func(fixtureID int64) string
	httpClient *http.Client
}

func NewPinnacleProvider(baseURL, apiKey string, eventOf func(int64) string) *PinnacleProvider {
	return &PinnacleProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		eventOf:    eventOf,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *PinnacleProvider) ID() string { return "pinnacle" }

type pinnacleMarket struct {
	FirstHalf struct {
		OverUnder05 struct {
			Over  float64 `json:"over"`
			Under float64 `json:"under"`
		} `json:"over_under_0.5"`
	} `json:"first_half"`
}

func (p *PinnacleProvider) FHOver05(ctx context.Context, fixtureID int64) (*fhtypes.OddsQuote, error) {
	eventID := p.eventOf(fixtureID)
	if eventID == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/events/%s/markets?apiKey=%s", p.baseURL, eventID, p.apiKey), nil)
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

	var mkt pinnacleMarket
	if err := json.NewDecoder(resp.Body).Decode(&mkt); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	telemetry.Debugf("oddsapi(pinnacle): GET event %s markets -> %d (%s)", eventID, resp.StatusCode, time.Since(start))

	over, under := mkt.FirstHalf.OverUnder05.Over, mkt.FirstHalf.OverUnder05.Under
	if over <= 1.0 || under <= 1.0 {
		return nil, nil
	}

	fair := oddsvig.DevigPrice(over, under)
	if fair <= 1.0 {
		return nil, nil
	}
	return &fhtypes.OddsQuote{Price: fair, ProviderID: "pinnacle", ObservedAt: time.Now().UTC()}, nil
}
