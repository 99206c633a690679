// Package config loads the run configuration from an optional file, the
// environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/contactkeval/option-chain-greeks/internal/chain"
	"github.com/contactkeval/option-chain-greeks/internal/data"
	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/pricing"
)

// EnvPrefix prefixes every environment override, e.g.
// OPTGREEKS_LADDER_INCREMENT=50.
const EnvPrefix = "OPTGREEKS"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full run configuration.
type Config struct {
	// Underlying symbol, e.g. NIFTY or SPY.
	Underlying string `mapstructure:"underlying"`
	// Expiry to analyse; empty selects the nearest upcoming one.
	Expiry string `mapstructure:"expiry"`
	// Annual continuously compounded risk-free rate.
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
	// Pipeline parallelism; 0 means one goroutine per row.
	Workers int `mapstructure:"workers"`

	Ladder   chain.LadderSpec `mapstructure:"ladder"`
	Provider data.Options     `mapstructure:"provider"`
	Log      logger.Config    `mapstructure:"log"`
	Report   ReportConfig     `mapstructure:"report"`
	Server   ServerConfig     `mapstructure:"server"`
}

// ReportConfig controls the files written after a CLI run.
type ReportConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"` // csv, json
}

// ServerConfig configures the REST surface.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("underlying", "")
	v.SetDefault("expiry", "")
	v.SetDefault("risk_free_rate", 0.0725)
	v.SetDefault("workers", 0)

	v.SetDefault("ladder.increment", 100.0)
	v.SetDefault("ladder.count_below", 2)
	v.SetDefault("ladder.count_above", 2)
	v.SetDefault("ladder.match", string(chain.MatchExact))

	v.SetDefault("provider.kind", data.KindMassive)
	v.SetDefault("provider.base_url", data.DefaultMassiveURL)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.csv_path", "")
	v.SetDefault("provider.timeout", "60s")
	v.SetDefault("provider.spot", 0.0)
	v.SetDefault("provider.step", 0.0)
	v.SetDefault("provider.seed", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "logs/option-greeks.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.formats", []string{"csv", "json"})

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
}

// Load reads path (YAML, TOML or JSON by extension) when it is not empty,
// applies OPTGREEKS_* environment overrides and validates the result.
// MASSIVE_API_KEY is honoured as an alias of OPTGREEKS_PROVIDER_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("provider.api_key", EnvPrefix+"_PROVIDER_API_KEY", "MASSIVE_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values the pipeline cannot recover from.
func (c *Config) Validate() error {
	if err := c.Ladder.Validate(); err != nil {
		return fmt.Errorf("%w: ladder: %w", ErrInvalidConfig, err)
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return fmt.Errorf("%w: risk_free_rate %v", ErrInvalidConfig, c.RiskFreeRate)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalidConfig, c.Workers)
	}
	if c.Expiry != "" {
		if _, err := pricing.ParseExpiry(c.Expiry); err != nil {
			return fmt.Errorf("%w: expiry: %w", ErrInvalidConfig, err)
		}
	}

	switch strings.ToLower(c.Provider.Kind) {
	case data.KindMassive:
	case data.KindCSV:
		if c.Provider.CSVPath == "" {
			return fmt.Errorf("%w: provider.csv_path is required for the csv provider", ErrInvalidConfig)
		}
	case data.KindSynthetic:
		if !(c.Provider.Spot > 0) {
			return fmt.Errorf("%w: provider.spot must be positive for the synthetic provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown provider kind %q", ErrInvalidConfig, c.Provider.Kind)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for _, f := range c.Report.Formats {
		switch strings.ToLower(f) {
		case "csv", "json":
		default:
			return fmt.Errorf("%w: unknown report format %q", ErrInvalidConfig, f)
		}
	}
	return nil
}
