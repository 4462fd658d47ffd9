package fixturesapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fhover/scanner/internal/fhtypes"
)

const sampleFixturesJSON = `{
  "response": [
    {
      "fixture": {"id": 501, "date": "2026-07-31T15:00:00+00:00", "status": {"short": "NS"}},
      "league": {"id": 39, "name": "Premier League", "country": "England", "season": 2026},
      "teams": {"home": {"id": 1, "name": "Home FC"}, "away": {"id": 2, "name": "Away FC"}},
      "score": {"halftime": {"home": null, "away": null}, "fulltime": {"home": null, "away": null}}
    },
    {
      "fixture": {"id": 502, "date": "2026-07-20T15:00:00+00:00", "status": {"short": "FT"}},
      "league": {"id": 39, "name": "Premier League", "country": "England", "season": 2026},
      "teams": {"home": {"id": 1, "name": "Home FC"}, "away": {"id": 3, "name": "Other FC"}},
      "score": {"halftime": {"home": 1, "away": 0}, "fulltime": {"home": 2, "away": 0}}
    }
  ]
}`

func TestListFixtures_ParsesAndFiltersByStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleFixturesJSON))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	// The window covers both sample fixtures, so only the status filter
	// separates them.
	windowStart := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fixtures, err := c.ListFixtures(context.TODO(), windowStart, windowEnd, fhtypes.StatusScheduled)
	if err != nil {
		t.Fatalf("ListFixtures() error = %v", err)
	}
	if len(fixtures) != 1 {
		t.Fatalf("fixtures = %d, want 1 (only the NS fixture)", len(fixtures))
	}
	if fixtures[0].FixtureID != 501 {
		t.Errorf("FixtureID = %d, want 501", fixtures[0].FixtureID)
	}
	if fixtures[0].Status != fhtypes.StatusScheduled {
		t.Errorf("Status = %v, want scheduled", fixtures[0].Status)
	}
}

func TestTeamHistory_ParsesHalfTimeScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleFixturesJSON))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	history, err := c.TeamHistory(context.TODO(), 1, 2026, 50)
	if err != nil {
		t.Fatalf("TeamHistory() error = %v", err)
	}

	var found bool
	for _, f := range history {
		if f.FixtureID == 502 {
			found = true
			if f.HalfTime == nil || f.HalfTime.Home != 1 || f.HalfTime.Away != 0 {
				t.Errorf("HalfTime = %+v, want {1 0}", f.HalfTime)
			}
			if f.Status != fhtypes.StatusFinished {
				t.Errorf("Status = %v, want finished", f.Status)
			}
		}
	}
	if !found {
		t.Fatalf("fixture 502 not found in history")
	}
}
