package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderEntry configures one odds provider: whether it's queried at
// all, and where it sits in the priority order used to break ties
// between providers that both have a usable quote (§4.3 — ties are
// broken by priority, not best price).
type ProviderEntry struct {
	Enabled  bool `yaml:"enabled"`
	Priority int  `yaml:"priority"`
}

// ProvidersConfig is the per-provider enable/priority table from the
// configuration surface (§6).
type ProvidersConfig struct {
	FixtureProviders map[string]ProviderEntry `yaml:"fixture_providers"`
	OddsProviders    map[string]ProviderEntry `yaml:"odds_providers"`
}

// LoadProviders reads the provider enable/priority table from path. A
// missing file is not an error — it returns sane defaults (every known
// odds provider enabled, pinnacle at priority 1 and aggregator at
// priority 2) since the core must be able
// to run without a providers.yaml present.
func LoadProviders(path string) (ProvidersConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultProvidersConfig(), nil
	}
	if err != nil {
		return ProvidersConfig{}, fmt.Errorf("read providers config: %w", err)
	}

	var cfg ProvidersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProvidersConfig{}, fmt.Errorf("parse providers config: %w", err)
	}
	return cfg, nil
}

func defaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		OddsProviders: map[string]ProviderEntry{
			"pinnacle":   {Enabled: true, Priority: 1},
			"aggregator": {Enabled: true, Priority: 2},
		},
	}
}

// EnabledOddsProviders returns odds provider ids that are enabled,
// sorted by ascending priority (lowest number first = queried first).
func (c ProvidersConfig) EnabledOddsProviders() []string {
	return enabledSortedByPriority(c.OddsProviders)
}

func enabledSortedByPriority(m map[string]ProviderEntry) []string {
	type row struct {
		id       string
		priority int
	}
	var rows []row
	for id, e := range m {
		if e.Enabled {
			rows = append(rows, row{id, e.Priority})
		}
	}
	for i := 1; i < len(rows); i++ {
		j := i
		for j > 0 && rows[j-1].priority > rows[j].priority {
			rows[j-1], rows[j] = rows[j], rows[j-1]
			j--
		}
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}
