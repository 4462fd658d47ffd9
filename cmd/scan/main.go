// Command scan runs one scan horizon and prints the results as JSON to
// stdout, in the style of a cron job or manual investigation tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fhover/scanner/internal/adapters/outbound/discord"
	"github.com/fhover/scanner/internal/adapters/outbound/fixturesapi"
	"github.com/fhover/scanner/internal/adapters/outbound/fixturestore"
	"github.com/fhover/scanner/internal/adapters/outbound/oddsapi"
	"github.com/fhover/scanner/internal/config"
	"github.com/fhover/scanner/internal/core/scan"
	"github.com/fhover/scanner/internal/core/stake"
	"github.com/fhover/scanner/internal/core/value"
	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/providers"
	"github.com/fhover/scanner/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("starting one-shot scan  horizon_days=%d", cfg.ScanHorizonDays)

	providersCfg, err := config.LoadProviders(cfg.ProvidersConfigPath)
	if err != nil {
		telemetry.Errorf("providers config: %v", err)
		os.Exit(1)
	}

	fixturesProvider := fixturesapi.NewClient(cfg.FixturesAPIKey, cfg.FixturesAPIBaseURL)

	store, err := fixturestore.Open(cfg.FixtureStorePath)
	if err != nil {
		telemetry.Errorf("fixture store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	oddsProviders := buildOddsProviders(cfg, providersCfg)

	orchestrator := scan.New(fixturesProvider, oddsProviders, scan.Config{
		Value: value.Config{
			LambdaThreshold: cfg.LambdaThreshold,
			MinSamplesHome:  cfg.MinSamplesHome,
			MinSamplesAway:  cfg.MinSamplesAway,
			MinEdgePct:      cfg.MinEdgePct,
			MaxProbCIWidth:  cfg.MaxProbCIWidth,
		},
		Stake: stake.Config{
			Mode:          cfg.StakeMode,
			Bankroll:      cfg.Bankroll,
			KellyFraction: cfg.KellyFraction,
			TauConf:       cfg.TauConf,
			TargetEdgePct: cfg.TargetEdgePct,
			StakeCap:      cfg.StakeCap,
			FlatSize:      cfg.FlatSize,
			MinStake:      cfg.MinStake,
			MaxStakeFrac:  cfg.MaxStakeFrac,
		},
		MinMatchesRequired: cfg.MinMatchesRequired,
		LeagueAllowlist:    cfg.LeagueAllowlist,
		RequestDelay:       cfg.RequestDelay,
	})

	ctx := context.Background()
	results, skips, err := orchestrator.ScanToday(ctx)
	if err != nil {
		telemetry.Errorf("scan: %v", err)
		os.Exit(1)
	}

	notifier := discord.NewNotifier(cfg.DiscordWebhookURL)

	signalCount := 0
	for i := range results {
		if err := store.Upsert(ctx, resultFixture(results[i])); err != nil {
			telemetry.Warnf("fixture store upsert: %v", err)
		}
		if results[i].Signal.Overall {
			signalCount++
			if err := notifier.SignalAlert(ctx, results[i]); err != nil {
				telemetry.Warnf("discord signal alert: %v", err)
			}
		}
	}
	if err := notifier.ScanSummary(ctx, len(results), len(skips), signalCount); err != nil {
		telemetry.Warnf("discord scan summary: %v", err)
	}

	telemetry.Infof("scan complete  results=%d  skipped=%d  signals=%d",
		len(results), len(skips), telemetry.Metrics.SignalsFired.Value())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Results []fhtypes.ScanResult  `json:"results"`
		Skipped []fhtypes.SkipReason  `json:"skipped"`
	}{results, skips}); err != nil {
		telemetry.Errorf("encode output: %v", err)
		os.Exit(1)
	}
}

// buildOddsProviders wires each configured odds provider in priority
// order. eventOf is a placeholder identity mapping — a real deployment
// resolves fixture ids to each feed's own event id via a join table;
// this scanner's fixture provider and odds feeds share no common id
// space, so the mapping point is isolated here for that future wiring.
func buildOddsProviders(cfg *config.Config, providersCfg config.ProvidersConfig) []providers.OddsProvider {
	eventOf := func(fixtureID int64) string { return strconv.FormatInt(fixtureID, 10) }

	var out []providers.OddsProvider
	for _, id := range providersCfg.EnabledOddsProviders() {
		switch id {
		case "pinnacle":
			out = append(out, oddsapi.NewPinnacleProvider(cfg.PinnacleAPIBaseURL, cfg.PinnacleAPIKey, eventOf))
		case "aggregator":
			out = append(out, oddsapi.NewAggregatorProvider("aggregator", cfg.OddsAPIBaseURL, cfg.OddsAPIKey, eventOf))
		default:
			telemetry.Warnf("unknown odds provider %q in providers config, skipping", id)
		}
	}
	return out
}

func resultFixture(r fhtypes.ScanResult) fhtypes.Fixture {
	return fhtypes.Fixture{
		FixtureID:  r.FixtureID,
		LeagueID:   r.LeagueID,
		LeagueName: r.LeagueName,
		Country:    r.Country,
		KickoffUTC: r.KickoffUTC,
		Status:     fhtypes.StatusScheduled,
		Home:       fhtypes.TeamRef{Name: r.HomeTeam},
		Away:       fhtypes.TeamRef{Name: r.AwayTeam},
	}
}
