// Package fixturestore persists discovered fixtures in a local SQLite
// database so GET /fixtures/{id} can serve a fixture the scanner has
// already seen without a round trip to the fixture provider.
package fixturestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/telemetry"
)

// Store is a sqlite-backed, upsert-only cache of fixtures keyed by
// fixture id. A single connection is held open (WAL mode, busy timeout)
// since sqlite serializes writers anyway.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `CREATE TABLE IF NOT EXISTS fixtures (
	fixture_id   INTEGER PRIMARY KEY,
	league_id    INTEGER NOT NULL,
	league_name  TEXT    NOT NULL,
	country      TEXT    NOT NULL,
	season_year  INTEGER NOT NULL,
	kickoff_utc  TEXT    NOT NULL,
	status       TEXT    NOT NULL,
	home_team_id INTEGER NOT NULL,
	home_name    TEXT    NOT NULL,
	away_team_id INTEGER NOT NULL,
	away_name    TEXT    NOT NULL,
	ft_home      INTEGER,
	ft_away      INTEGER,
	ht_home      INTEGER,
	ht_away      INTEGER,
	updated_at   TEXT    NOT NULL
)`

// Open opens (and creates if absent) the fixture store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create fixture store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init fixture schema: %w", err)
	}

	var rowCount int64
	db.QueryRow(`SELECT COUNT(*) FROM fixtures`).Scan(&rowCount)
	telemetry.Plainf("fixturestore: opened %s  rows=%d", path, rowCount)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert stores or replaces a fixture record.
func (s *Store) Upsert(ctx context.Context, f fhtypes.Fixture) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ftHome, ftAway, htHome, htAway sql.NullInt64
	if f.FullTime != nil {
		ftHome = sql.NullInt64{Int64: int64(f.FullTime.Home), Valid: true}
		ftAway = sql.NullInt64{Int64: int64(f.FullTime.Away), Valid: true}
	}
	if f.HalfTime != nil {
		htHome = sql.NullInt64{Int64: int64(f.HalfTime.Home), Valid: true}
		htAway = sql.NullInt64{Int64: int64(f.HalfTime.Away), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fixtures (
			fixture_id, league_id, league_name, country, season_year, kickoff_utc, status,
			home_team_id, home_name, away_team_id, away_name,
			ft_home, ft_away, ht_home, ht_away, updated_at
		) VALUES (?,?,?,?,?,?,?, ?,?,?,?, ?,?,?,?, ?)
		ON CONFLICT(fixture_id) DO UPDATE SET
			league_id=excluded.league_id, league_name=excluded.league_name, country=excluded.country,
			season_year=excluded.season_year, kickoff_utc=excluded.kickoff_utc, status=excluded.status,
			home_team_id=excluded.home_team_id, home_name=excluded.home_name,
			away_team_id=excluded.away_team_id, away_name=excluded.away_name,
			ft_home=excluded.ft_home, ft_away=excluded.ft_away,
			ht_home=excluded.ht_home, ht_away=excluded.ht_away,
			updated_at=excluded.updated_at`,
		f.FixtureID, f.LeagueID, f.LeagueName, f.Country, f.SeasonYear,
		f.KickoffUTC.UTC().Format(time.RFC3339), string(f.Status),
		f.Home.TeamID, f.Home.Name, f.Away.TeamID, f.Away.Name,
		ftHome, ftAway, htHome, htAway,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert fixture %d: %w", f.FixtureID, err)
	}
	return nil
}

// UpsertAll stores every fixture with one Upsert call each. The writes
// are not wrapped in a transaction: it stops at the first failing
// fixture, and the fixtures before it stay stored.
func (s *Store) UpsertAll(ctx context.Context, fixtures []fhtypes.Fixture) error {
	for _, f := range fixtures {
		if err := s.Upsert(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the stored fixture, or nil if not found.
func (s *Store) Get(ctx context.Context, fixtureID int64) (*fhtypes.Fixture, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT league_id, league_name, country, season_year, kickoff_utc, status,
		        home_team_id, home_name, away_team_id, away_name,
		        ft_home, ft_away, ht_home, ht_away
		 FROM fixtures WHERE fixture_id = ?`, fixtureID)

	var f fhtypes.Fixture
	f.FixtureID = fixtureID
	var kickoff, status string
	var ftHome, ftAway, htHome, htAway sql.NullInt64

	err := row.Scan(&f.LeagueID, &f.LeagueName, &f.Country, &f.SeasonYear, &kickoff, &status,
		&f.Home.TeamID, &f.Home.Name, &f.Away.TeamID, &f.Away.Name,
		&ftHome, &ftAway, &htHome, &htAway)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fixture %d: %w", fixtureID, err)
	}

	f.Status = fhtypes.FixtureStatus(status)
	f.KickoffUTC, err = time.Parse(time.RFC3339, kickoff)
	if err != nil {
		return nil, fmt.Errorf("parse kickoff for fixture %d: %w", fixtureID, err)
	}
	if ftHome.Valid && ftAway.Valid {
		f.FullTime = &fhtypes.Score{Home: int(ftHome.Int64), Away: int(ftAway.Int64)}
	}
	if htHome.Valid && htAway.Valid {
		f.HalfTime = &fhtypes.Score{Home: int(htHome.Int64), Away: int(htAway.Int64)}
	}

	return &f, nil
}
