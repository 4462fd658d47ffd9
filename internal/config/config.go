package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/fhover/scanner/internal/fhtypes"
)

// Config holds every scan tunable from the configuration surface plus
// the ambient settings (logging, HTTP addresses, store paths).
type Config struct {
	// Thresholds (ValueDetector gates)
	LambdaThreshold float64
	MinSamplesHome  int
	MinSamplesAway  int
	MinEdgePct      float64
	MaxProbCIWidth  float64

	// Estimator
	MinMatchesRequired int

	// Staking
	StakeMode     fhtypes.StakeMode
	Bankroll      float64
	KellyFraction float64
	TauConf       float64
	TargetEdgePct float64
	StakeCap      float64
	FlatSize      float64
	MinStake      float64
	MaxStakeFrac  float64

	// Scan horizon
	ScanHorizonDays int
	LeagueAllowlist []int64 // empty means every league the provider returns

	// Rate limiting — minimum spacing between requests to a single provider.
	RequestDelay time.Duration

	// Providers
	ProvidersConfigPath string
	FixturesAPIKey      string
	FixturesAPIBaseURL  string
	OddsAPIKey          string
	OddsAPIBaseURL      string
	PinnacleAPIKey      string
	PinnacleAPIBaseURL  string

	// Fixture store
	FixtureStorePath string

	// Service surface
	HTTPAddr string

	// Alerting
	DiscordWebhookURL string

	// Telemetry
	LogLevel string
}

// Load reads configuration from the environment (via a .env file if
// present) and validates it. Invalid tunables are a CONFIG_ERROR,
// returned before any provider is constructed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LambdaThreshold: envFloat("LAMBDA_THRESHOLD", 1.5),
		MinSamplesHome:  envInt("MIN_SAMPLES_HOME", 8),
		MinSamplesAway:  envInt("MIN_SAMPLES_AWAY", 8),
		MinEdgePct:      envFloat("MIN_EDGE_PCT", 3.0),
		MaxProbCIWidth:  envFloat("MAX_PROB_CI_WIDTH", 0.20),

		MinMatchesRequired: envInt("MIN_MATCHES_REQUIRED", 4),

		StakeMode:     fhtypes.StakeMode(envStr("STAKE_MODE", "dynamic")),
		Bankroll:      envFloat("BANKROLL", 1000.0),
		KellyFraction: envFloat("KELLY_FRACTION", 0.5),
		TauConf:       envFloat("TAU_CONF", 0.20),
		TargetEdgePct: envFloat("TARGET_EDGE_PCT", 5.0),
		StakeCap:      envFloat("STAKE_CAP", 0.03),
		FlatSize:      envFloat("FLAT_SIZE", 10.0),
		MinStake:      envFloat("MIN_STAKE", 1.0),
		MaxStakeFrac:  envFloat("MAX_STAKE_FRACTION", 0.10),

		ScanHorizonDays: envInt("SCAN_HORIZON_DAYS", 2),
		LeagueAllowlist: envInt64List("LEAGUE_ALLOWLIST"),

		RequestDelay: time.Duration(envFloat("REQUEST_DELAY_SEC", 1.5) * float64(time.Second)),

		ProvidersConfigPath: envStr("PROVIDERS_CONFIG_PATH", "internal/config/providers.yaml"),
		FixturesAPIKey:      envStr("APIFOOTBALL_KEY", ""),
		FixturesAPIBaseURL:  envStr("APIFOOTBALL_BASE_URL", ""),
		OddsAPIKey:          envStr("ODDS_API_KEY", ""),
		OddsAPIBaseURL:      envStr("ODDS_API_BASE_URL", "https://api.the-odds-api.com"),
		PinnacleAPIKey:      envStr("PINNACLE_API_KEY", ""),
		PinnacleAPIBaseURL:  envStr("PINNACLE_API_BASE_URL", "https://api.pinnacle.com"),
		FixtureStorePath:    envStr("FIXTURE_STORE_PATH", "data/fh_scanner.db"),

		HTTPAddr: envStr("HTTP_ADDR", ":8080"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		DiscordWebhookURL: envStr("DISCORD_WEBHOOK_URL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces the §7 CONFIG_ERROR invariants: a bad config fails
// before any provider or scan is constructed.
func (c *Config) validate() error {
	switch {
	case c.LambdaThreshold <= 0:
		return fmt.Errorf("%s: lambda_threshold must be > 0, got %v", fhtypes.ErrConfig, c.LambdaThreshold)
	case c.MinSamplesHome < 1 || c.MinSamplesAway < 1:
		return fmt.Errorf("%s: min_samples_home/away must be >= 1", fhtypes.ErrConfig)
	case c.MinEdgePct < 0:
		return fmt.Errorf("%s: min_edge_pct must be >= 0, got %v", fhtypes.ErrConfig, c.MinEdgePct)
	case c.MaxProbCIWidth <= 0 || c.MaxProbCIWidth > 1:
		return fmt.Errorf("%s: max_prob_ci_width must be in (0, 1], got %v", fhtypes.ErrConfig, c.MaxProbCIWidth)
	case c.MinMatchesRequired < 1:
		return fmt.Errorf("%s: MIN_MATCHES_REQUIRED must be >= 1", fhtypes.ErrConfig)
	case c.StakeMode != fhtypes.StakeModeDynamic && c.StakeMode != fhtypes.StakeModeFlat:
		return fmt.Errorf("%s: stake_mode must be 'dynamic' or 'flat', got %q", fhtypes.ErrConfig, c.StakeMode)
	case c.Bankroll <= 0:
		return fmt.Errorf("%s: bankroll must be > 0", fhtypes.ErrConfig)
	case c.KellyFraction < 0 || c.KellyFraction > 1:
		return fmt.Errorf("%s: kelly_fraction must be in [0, 1]", fhtypes.ErrConfig)
	case c.TauConf <= 0 || c.TauConf > 1:
		return fmt.Errorf("%s: tau_conf must be in (0, 1]", fhtypes.ErrConfig)
	case c.StakeCap < 0 || c.StakeCap > 1:
		return fmt.Errorf("%s: stake_cap must be in [0, 1], got %v", fhtypes.ErrConfig, c.StakeCap)
	case c.FlatSize <= 0:
		return fmt.Errorf("%s: flat_size must be > 0", fhtypes.ErrConfig)
	case c.ScanHorizonDays < 1:
		return fmt.Errorf("%s: scan_horizon_days must be >= 1", fhtypes.ErrConfig)
	case c.RequestDelay < 0:
		return fmt.Errorf("%s: request_delay must be >= 0", fhtypes.ErrConfig)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt64List(key string) []int64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []int64
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				if n, err := strconv.ParseInt(v[start:i], 10, 64); err == nil {
					out = append(out, n)
				}
			}
			start = i + 1
		}
	}
	return out
}
