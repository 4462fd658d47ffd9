// Package httpapi exposes the scan orchestrator and fixture store over
// plain stdlib HTTP: health, on-demand scans, and fixture lookups.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fhover/scanner/internal/core/scan"
	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/providers"
	"github.com/fhover/scanner/internal/telemetry"
)

const version = "0.1.0"

// Handler serves the scanner's HTTP surface.
//
// Routes:
//
//	GET /health
//	GET /scan/today
//	GET /scan/date/{date}      date is YYYY-MM-DD
//	GET /fixtures/{id}
//	GET /fixtures/{id}/scan
type Handler struct {
	orchestrator *scan.Orchestrator
	store        providers.FixtureStore // optional; nil disables /fixtures/{id}
}

func NewHandler(orchestrator *scan.Orchestrator, store providers.FixtureStore) *Handler {
	return &Handler{orchestrator: orchestrator, store: store}
}

// RegisterRoutes wires HTTP routes onto the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /scan/today", h.scanToday)
	mux.HandleFunc("GET /scan/date/{date}", h.scanDate)
	mux.HandleFunc("GET /fixtures/{id}", h.getFixture)
	mux.HandleFunc("GET /fixtures/{id}/scan", h.scanFixture)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version,
	})
}

type scanResponse struct {
	FixtureID           int64      `json:"fixture_id"`
	LeagueName          string     `json:"league_name"`
	HomeTeam            string     `json:"home_team"`
	AwayTeam            string     `json:"away_team"`
	MatchDate           time.Time  `json:"match_date"`
	LambdaHat           float64    `json:"lambda_hat"`
	PHat                float64    `json:"p_hat"`
	PCILow              float64    `json:"p_ci_low"`
	PCIHigh             float64    `json:"p_ci_high"`
	ProbCIWidth         float64    `json:"prob_ci_width"`
	NHome               int        `json:"n_home"`
	NAway               int        `json:"n_away"`
	FairOdds            float64    `json:"fair_odds"`
	MarketOdds          *float64   `json:"market_odds"`
	EdgePct             *float64   `json:"edge_pct"`
	OddsProvider        *string    `json:"odds_provider"`
	StakeMode           string     `json:"stake_mode"`
	StakeAmount         float64    `json:"stake_amount"`
	StakeFraction       float64    `json:"stake_fraction"`
	LambdaThresholdMet  bool       `json:"lambda_threshold_met"`
	MinSamplesMet       bool       `json:"min_samples_met"`
	EdgeThresholdMet    bool       `json:"edge_threshold_met"`
	CIWidthThresholdMet bool       `json:"ci_width_threshold_met"`
	Signal              bool       `json:"signal"`
	Reasons             []string   `json:"reasons"`
}

func toScanResponse(r fhtypes.ScanResult) scanResponse {
	resp := scanResponse{
		FixtureID:           r.FixtureID,
		LeagueName:          r.LeagueName,
		HomeTeam:            r.HomeTeam,
		AwayTeam:            r.AwayTeam,
		MatchDate:           r.KickoffUTC,
		LambdaHat:           r.Projection.LambdaHat,
		PHat:                r.Projection.PHat,
		PCILow:              r.Projection.PLo,
		PCIHigh:             r.Projection.PHi,
		ProbCIWidth:         r.Projection.CIWidth,
		NHome:               r.Projection.NHome,
		NAway:               r.Projection.NAway,
		FairOdds:            r.FairOdds,
		EdgePct:             r.EdgePct,
		StakeMode:           string(r.Stake.Mode),
		StakeAmount:         r.Stake.StakeAmount,
		StakeFraction:       r.Stake.StakeFraction,
		LambdaThresholdMet:  r.Signal.LambdaOK,
		MinSamplesMet:       r.Signal.SamplesOK,
		EdgeThresholdMet:    r.Signal.EdgeOK,
		CIWidthThresholdMet: r.Signal.CIOK,
		Signal:              r.Signal.Overall,
		Reasons:             r.Signal.Reasons,
	}
	if r.Quote != nil {
		price := r.Quote.Price
		provider := r.Quote.ProviderID
		resp.MarketOdds = &price
		resp.OddsProvider = &provider
	}
	return resp
}

func (h *Handler) scanToday(w http.ResponseWriter, r *http.Request) {
	results, _, err := h.orchestrator.ScanToday(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error scanning today's fixtures: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toScanResponses(results))
}

func (h *Handler) scanDate(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	results, _, err := h.orchestrator.ScanDate(r.Context(), day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error scanning fixtures for "+r.PathValue("date")+": "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toScanResponses(results))
}

func toScanResponses(results []fhtypes.ScanResult) []scanResponse {
	out := make([]scanResponse, len(results))
	for i, r := range results {
		out[i] = toScanResponse(r)
	}
	return out
}

type fixtureResponse struct {
	FixtureID           int64      `json:"fixture_id"`
	LeagueName          string     `json:"league_name"`
	HomeTeam            string     `json:"home_team"`
	AwayTeam            string     `json:"away_team"`
	MatchDate           time.Time  `json:"match_date"`
	Status              string     `json:"status"`
	HomeScore           *int       `json:"home_score"`
	AwayScore           *int       `json:"away_score"`
	HomeFirstHalfScore  *int       `json:"home_first_half_score"`
	AwayFirstHalfScore  *int       `json:"away_first_half_score"`
}

func (h *Handler) getFixture(w http.ResponseWriter, r *http.Request) {
	fixtureID, ok := parseFixtureID(w, r)
	if !ok {
		return
	}
	if h.store == nil {
		writeError(w, http.StatusNotFound, "fixture store not configured")
		return
	}

	fixture, err := h.store.Get(r.Context(), fixtureID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error fetching fixture: "+err.Error())
		return
	}
	if fixture == nil {
		writeError(w, http.StatusNotFound, "fixture not found")
		return
	}

	resp := fixtureResponse{
		FixtureID:  fixture.FixtureID,
		LeagueName: fixture.LeagueName,
		HomeTeam:   fixture.Home.Name,
		AwayTeam:   fixture.Away.Name,
		MatchDate:  fixture.KickoffUTC,
		Status:     string(fixture.Status),
	}
	if fixture.FullTime != nil {
		resp.HomeScore = &fixture.FullTime.Home
		resp.AwayScore = &fixture.FullTime.Away
	}
	if fixture.HalfTime != nil {
		resp.HomeFirstHalfScore = &fixture.HalfTime.Home
		resp.AwayFirstHalfScore = &fixture.HalfTime.Away
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) scanFixture(w http.ResponseWriter, r *http.Request) {
	fixtureID, ok := parseFixtureID(w, r)
	if !ok {
		return
	}
	if h.store == nil {
		writeError(w, http.StatusNotFound, "fixture store not configured")
		return
	}

	fixture, err := h.store.Get(r.Context(), fixtureID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error fetching fixture: "+err.Error())
		return
	}
	if fixture == nil {
		writeError(w, http.StatusNotFound, "fixture not found")
		return
	}

	result, err := h.orchestrator.ScanFixture(r.Context(), *fixture)
	if err != nil {
		writeError(w, http.StatusNotFound, "no scan result available: "+err.Error())
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "no scan result available")
		return
	}
	writeJSON(w, http.StatusOK, toScanResponse(*result))
}

func parseFixtureID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fixture id")
		return 0, false
	}
	return id, true
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	telemetry.Warnf("httpapi: %d %s", status, detail)
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
