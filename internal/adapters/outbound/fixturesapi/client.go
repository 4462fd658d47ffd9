// Package fixturesapi implements providers.FixtureProvider against an
// API-Football-shaped REST service: fixtures carry nested fixture/
// league/teams/score objects, and fixture status is reported as a
// short code ("NS", "FT", ...).
package fixturesapi

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/telemetry"
)

const defaultBaseURL = "https://v3.football.api-sports.io"

// Client is a providers.FixtureProvider backed by an API-Football-shaped
// HTTP API. The same client serves both fixture discovery and
// per-team history lookups.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client. baseURL defaults to the public
// API-Football host if empty, so tests can point it at a local fake.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type fixturesResponse struct {
	Response []fixtureEnvelope `json:"response"`
}

type fixtureEnvelope struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Country string `json:"country"`
		Season  int    `json:"season"`
	} `json:"league"`
	Teams struct {
		Home teamEnvelope `json:"home"`
		Away teamEnvelope `json:"away"`
	} `json:"teams"`
	Score struct {
		Halftime  *scoreEnvelope `json:"halftime"`
		Fulltime  *scoreEnvelope `json:"fulltime"`
	} `json:"score"`
}

type teamEnvelope struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type scoreEnvelope struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// ListFixtures returns fixtures kicking off in [windowStart, windowEnd)
// across every league the upstream API reports fixtures for. The upstream
// query is by calendar date, so the kickoff window and statusFilter are
// both applied client-side after decoding.
func (c *Client) ListFixtures(ctx context.Context, windowStart, windowEnd time.Time, statusFilter fhtypes.FixtureStatus) ([]fhtypes.Fixture, error) {
	params := fmt.Sprintf("from=%s&to=%s", windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"))
	var resp fixturesResponse
	if err := c.fetchJSON(ctx, "/fixtures?"+params, &resp); err != nil {
		return nil, err
	}

	out := make([]fhtypes.Fixture, 0, len(resp.Response))
	for _, e := range resp.Response {
		f, err := toFixture(e)
		if err != nil {
			telemetry.Warnf("fixturesapi: skipping fixture %d: %v", e.Fixture.ID, err)
			continue
		}
		if f.KickoffUTC.Before(windowStart) || !f.KickoffUTC.Before(windowEnd) {
			continue
		}
		if statusFilter != "" && f.Status != statusFilter {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// TeamHistory returns up to lastN of the team's most recent finished
// fixtures in the given season.
func (c *Client) TeamHistory(ctx context.Context, teamID int64, season int, lastN int) ([]fhtypes.Fixture, error) {
	params := fmt.Sprintf("team=%d&season=%d&last=%d&status=FT", teamID, season, lastN)
	var resp fixturesResponse
	if err := c.fetchJSON(ctx, "/fixtures?"+params, &resp); err != nil {
		return nil, err
	}

	out := make([]fhtypes.Fixture, 0, len(resp.Response))
	for _, e := range resp.Response {
		f, err := toFixture(e)
		if err != nil {
			telemetry.Warnf("fixturesapi: skipping history fixture %d: %v", e.Fixture.ID, err)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func toFixture(e fixtureEnvelope) (fhtypes.Fixture, error) {
	kickoff, err := time.Parse(time.RFC3339, e.Fixture.Date)
	if err != nil {
		return fhtypes.Fixture{}, fmt.Errorf("parse kickoff date %q: %w", e.Fixture.Date, err)
	}

	f := fhtypes.Fixture{
		FixtureID:  e.Fixture.ID,
		LeagueID:   e.League.ID,
		LeagueName: e.League.Name,
		Country:    e.League.Country,
		SeasonYear: e.League.Season,
		KickoffUTC: kickoff.UTC(),
		Status:     statusFromShortCode(e.Fixture.Status.Short),
		Home:       fhtypes.TeamRef{TeamID: e.Teams.Home.ID, Name: e.Teams.Home.Name},
		Away:       fhtypes.TeamRef{TeamID: e.Teams.Away.ID, Name: e.Teams.Away.Name},
	}
	if s := e.Score.Fulltime; s != nil && s.Home != nil && s.Away != nil {
		f.FullTime = &fhtypes.Score{Home: *s.Home, Away: *s.Away}
	}
	if s := e.Score.Halftime; s != nil && s.Home != nil && s.Away != nil {
		f.HalfTime = &fhtypes.Score{Home: *s.Home, Away: *s.Away}
	}
	return f, nil
}

// statusFromShortCode maps API-Football's short status codes to the
// three-state FixtureStatus the core pipeline understands.
func statusFromShortCode(code string) fhtypes.FixtureStatus {
	switch code {
	case "NS", "TBD":
		return fhtypes.StatusScheduled
	case "FT", "AET", "PEN":
		return fhtypes.StatusFinished
	default:
		return fhtypes.StatusOther
	}
}

func (c *Client) fetchJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http get: %w", fhtypes.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", fhtypes.ErrProviderUnavailable, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	if err := json.NewDecoder(reader).Decode(out); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	telemetry.Debugf("fixturesapi: GET %s -> %d (%s)", path, resp.StatusCode, time.Since(start))
	return nil
}
