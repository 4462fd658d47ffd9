package estimator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fhover/scanner/internal/fhtypes"
)

// fakeProvider counts TeamHistory calls and optionally gates on a
// barrier so concurrent callers can be forced to overlap.
type fakeProvider struct {
	calls   int64
	history []fhtypes.Fixture
	gate    chan struct{} // closed to release all waiting calls at once
}

func (f *fakeProvider) ListFixtures(ctx context.Context, start, end time.Time, status fhtypes.FixtureStatus) ([]fhtypes.Fixture, error) {
	return nil, nil
}

func (f *fakeProvider) TeamHistory(ctx context.Context, teamID int64, season, lastN int) ([]fhtypes.Fixture, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	return f.history, nil
}

func finishedFixture(fixtureID, homeTeam, awayTeam int64, htHome, htAway int) fhtypes.Fixture {
	ht := fhtypes.Score{Home: htHome, Away: htAway}
	return fhtypes.Fixture{
		FixtureID: fixtureID,
		Status:    fhtypes.StatusFinished,
		Home:      fhtypes.TeamRef{TeamID: homeTeam, Name: "home"},
		Away:      fhtypes.TeamRef{TeamID: awayTeam, Name: "away"},
		HalfTime:  &ht,
	}
}

func TestEstimate_GateOnTotalNotVenueFiltered(t *testing.T) {
	const teamID = int64(42)
	// 4 total finished matches meets MinMatchesRequired=4, but only 1 is
	// a home match for teamID — the venue-filtered subset is tiny.
	history := []fhtypes.Fixture{
		finishedFixture(1, teamID, 99, 1, 0),  // home
		finishedFixture(2, 99, teamID, 0, 1),  // away
		finishedFixture(3, 98, teamID, 1, 1),  // away
		finishedFixture(4, 97, teamID, 2, 0),  // away
	}
	p := &fakeProvider{history: history}
	e := New(p, 4)

	est, err := e.Estimate(context.Background(), teamID, 2026, fhtypes.VenueHome)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if est.Insufficient() {
		t.Fatalf("Estimate() reported insufficient, want the total-count gate (4) to pass despite only 1 home match")
	}
	if est.N != 4 {
		t.Errorf("N = %d, want 4 (total finished, not venue-filtered)", est.N)
	}
	if len(est.SourceMatches) != 1 {
		t.Errorf("SourceMatches = %v, want 1 home match", est.SourceMatches)
	}
}

func finishedFixtureNoHalfTime(fixtureID, homeTeam, awayTeam int64) fhtypes.Fixture {
	return fhtypes.Fixture{
		FixtureID: fixtureID,
		Status:    fhtypes.StatusFinished,
		Home:      fhtypes.TeamRef{TeamID: homeTeam, Name: "home"},
		Away:      fhtypes.TeamRef{TeamID: awayTeam, Name: "away"},
	}
}

// TestEstimate_FinishedMatchWithoutHalfTimeStillCountsTowardGate pins
// down a boundary the venue-filtered sum must not distort: a finished
// match missing half-time data still counts toward the total-finished
// gate (it contributes zero goals if it ends up in the venue-filtered
// subset), exactly as team_analyzer.py counts every FT match.
func TestEstimate_FinishedMatchWithoutHalfTimeStillCountsTowardGate(t *testing.T) {
	const teamID = int64(55)
	history := []fhtypes.Fixture{
		finishedFixture(1, teamID, 99, 1, 0),
		finishedFixture(2, teamID, 98, 1, 0),
		finishedFixture(3, teamID, 97, 1, 0),
		finishedFixtureNoHalfTime(4, teamID, 96), // finished, no half-time data
	}
	p := &fakeProvider{history: history}
	e := New(p, 4)

	est, err := e.Estimate(context.Background(), teamID, 2026, fhtypes.VenueHome)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if est.Insufficient() {
		t.Fatalf("Estimate() reported insufficient, want the gate (4) to pass counting all 4 finished matches including the one without half-time data")
	}
	if est.N != 4 {
		t.Errorf("N = %d, want 4 (every finished match counts, with or without half-time data)", est.N)
	}
	if len(est.SourceMatches) != 4 {
		t.Errorf("SourceMatches = %v, want 4 (the no-half-time match still contributes to the venue-filtered home subset, at 0 goals)", est.SourceMatches)
	}
	if est.MeanFHGoals == nil {
		t.Fatalf("MeanFHGoals = nil, want non-nil")
	}
	// 1+1+1+0 goals across 4 matches.
	if want := 3.0 / 4.0; *est.MeanFHGoals != want {
		t.Errorf("MeanFHGoals = %v, want %v", *est.MeanFHGoals, want)
	}
}

func TestEstimate_BelowMinMatchesIsInsufficient(t *testing.T) {
	const teamID = int64(42)
	history := []fhtypes.Fixture{
		finishedFixture(1, teamID, 99, 1, 0),
		finishedFixture(2, teamID, 98, 0, 1),
	}
	p := &fakeProvider{history: history}
	e := New(p, 4)

	est, err := e.Estimate(context.Background(), teamID, 2026, fhtypes.VenueHome)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if !est.Insufficient() {
		t.Errorf("Estimate() = %+v, want Insufficient() true (N=2 < minMatchesRequired=4)", est)
	}
}

func TestEstimate_SingleFlightDeduplicatesConcurrentCallers(t *testing.T) {
	const teamID = int64(7)
	history := []fhtypes.Fixture{
		finishedFixture(1, teamID, 1, 1, 0),
		finishedFixture(2, teamID, 2, 1, 0),
		finishedFixture(3, teamID, 3, 1, 0),
		finishedFixture(4, teamID, 4, 1, 0),
	}
	gate := make(chan struct{})
	p := &fakeProvider{history: history, gate: gate}
	e := New(p, 4)

	const callers = 20
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := e.Estimate(context.Background(), teamID, 2026, fhtypes.VenueHome)
			if err != nil {
				t.Errorf("Estimate() error = %v", err)
			}
		}()
	}

	// Give every goroutine a chance to reach the provider call and
	// park on the gate before releasing them together.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := atomic.LoadInt64(&p.calls); got != 1 {
		t.Errorf("TeamHistory calls = %d, want exactly 1 (single-flight)", got)
	}
}

func TestEstimate_CacheAvoidsRepeatCalls(t *testing.T) {
	const teamID = int64(9)
	history := []fhtypes.Fixture{
		finishedFixture(1, teamID, 1, 1, 0),
		finishedFixture(2, teamID, 2, 1, 0),
		finishedFixture(3, teamID, 3, 1, 0),
		finishedFixture(4, teamID, 4, 1, 0),
	}
	p := &fakeProvider{history: history}
	e := New(p, 4)

	ctx := context.Background()
	if _, err := e.Estimate(ctx, teamID, 2026, fhtypes.VenueHome); err != nil {
		t.Fatalf("first Estimate() error = %v", err)
	}
	if _, err := e.Estimate(ctx, teamID, 2026, fhtypes.VenueHome); err != nil {
		t.Fatalf("second Estimate() error = %v", err)
	}
	if got := atomic.LoadInt64(&p.calls); got != 1 {
		t.Errorf("TeamHistory calls = %d, want 1 (second call served from cache)", got)
	}
}
