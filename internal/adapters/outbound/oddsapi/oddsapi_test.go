package oddsapi

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleAggregatorJSON = `{
  "id": "evt1",
  "home_team": "Home FC",
  "away_team": "Away FC",
  "bookmakers": [
    {"key": "book_a", "markets": [{"key": "fh_over_0.5", "outcomes": [{"name": "Over", "price": 1.35}, {"name": "Under", "price": 3.0}]}]},
    {"key": "book_b", "markets": [{"key": "fh_over_0.5", "outcomes": [{"name": "Over", "price": 1.42}, {"name": "Under", "price": 2.8}]}]}
  ]
}`

func TestAggregatorProvider_TakesBestPriceAcrossBookmakers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleAggregatorJSON))
	}))
	defer srv.Close()

	p := NewAggregatorProvider("aggregator", srv.URL, "test-key", func(fixtureID int64) string { return "evt1" })
	quote, err := p.FHOver05(context.Background(), 500)
	if err != nil {
		t.Fatalf("FHOver05() error = %v", err)
	}
	if quote == nil {
		t.Fatalf("FHOver05() = nil, want a quote")
	}
	if quote.Price != 1.42 {
		t.Errorf("Price = %v, want 1.42 (best of 1.35/1.42)", quote.Price)
	}
}

func TestAggregatorProvider_NoMappedEventReturnsNilNoError(t *testing.T) {
	p := NewAggregatorProvider("aggregator", "http://unused", "k", func(int64) string { return "" })
	quote, err := p.FHOver05(context.Background(), 999)
	if err != nil {
		t.Fatalf("FHOver05() error = %v", err)
	}
	if quote != nil {
		t.Errorf("FHOver05() = %+v, want nil", quote)
	}
}

const samplePinnacleJSON = `{
  "first_half": {
    "over_under_0.5": {"over": 1.40, "under": 2.90}
  }
}`

func TestPinnacleProvider_DevigsTwoWayMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePinnacleJSON))
	}))
	defer srv.Close()

	p := NewPinnacleProvider(srv.URL, "test-key", func(int64) string { return "evt1" })
	quote, err := p.FHOver05(context.Background(), 500)
	if err != nil {
		t.Fatalf("FHOver05() error = %v", err)
	}
	if quote == nil {
		t.Fatalf("FHOver05() = nil, want a quote")
	}
	if quote.ProviderID != "pinnacle" {
		t.Errorf("ProviderID = %q, want pinnacle", quote.ProviderID)
	}
	// Devigged price must exceed the raw quoted price (overround removed).
	if quote.Price <= 1.40 {
		t.Errorf("Price = %v, want > 1.40 (raw price) after devig", quote.Price)
	}
	if math.IsNaN(quote.Price) || math.IsInf(quote.Price, 0) {
		t.Errorf("Price = %v, want a finite number", quote.Price)
	}
}

func TestPinnacleProvider_MissingMarketReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"first_half": {"over_under_0.5": {"over": 0, "under": 0}}}`))
	}))
	defer srv.Close()

	p := NewPinnacleProvider(srv.URL, "test-key", func(int64) string { return "evt1" })
	quote, err := p.FHOver05(context.Background(), 500)
	if err != nil {
		t.Fatalf("FHOver05() error = %v", err)
	}
	if quote != nil {
		t.Errorf("FHOver05() = %+v, want nil for a zero-priced market", quote)
	}
}
