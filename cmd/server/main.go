// Command server runs the scanner as a long-lived HTTP service.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fhover/scanner/internal/adapters/outbound/fixturesapi"
	"github.com/fhover/scanner/internal/adapters/outbound/fixturestore"
	"github.com/fhover/scanner/internal/adapters/outbound/oddsapi"
	"github.com/fhover/scanner/internal/config"
	"github.com/fhover/scanner/internal/core/scan"
	"github.com/fhover/scanner/internal/core/stake"
	"github.com/fhover/scanner/internal/core/value"
	"github.com/fhover/scanner/internal/httpapi"
	"github.com/fhover/scanner/internal/providers"
	"github.com/fhover/scanner/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.Errorf("config: %v", err)
		os.Exit(1)
	}
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("starting server  addr=%s", cfg.HTTPAddr)

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

	eventOf := func(fixtureID int64) string { return strconv.FormatInt(fixtureID, 10) }
	var oddsProviders []providers.OddsProvider
	for _, id := range providersCfg.EnabledOddsProviders() {
		switch id {
		case "pinnacle":
			oddsProviders = append(oddsProviders, oddsapi.NewPinnacleProvider(cfg.PinnacleAPIBaseURL, cfg.PinnacleAPIKey, eventOf))
		case "aggregator":
			oddsProviders = append(oddsProviders, oddsapi.NewAggregatorProvider("aggregator", cfg.OddsAPIBaseURL, cfg.OddsAPIKey, eventOf))
		}
	}

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

	handler := httpapi.NewHandler(orchestrator, store)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Errorf("http server: %v", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("shutting down server...")
	if err := srv.Close(); err != nil {
		telemetry.Warnf("server close: %v", err)
	}
}
