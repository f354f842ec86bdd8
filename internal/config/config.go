// Package config provides configuration management for the quote tracker.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	qterrors "quote-tracker/internal/errors"
	"quote-tracker/internal/logging"
	"quote-tracker/internal/models"
	"quote-tracker/internal/poller"
)

// EnvPrefix prefixes every environment override, e.g. QT_POLL_INTERVAL.
const EnvPrefix = "QT"

// Config holds all application configuration.
type Config struct {
	Poll    PollConfig        `mapstructure:"poll"`
	Fetch   FetchConfig       `mapstructure:"fetch"`
	Extract ExtractConfig     `mapstructure:"extract"`
	Store   StoreConfig       `mapstructure:"store"`
	Log     logging.LogConfig `mapstructure:"log"`
}

// PollConfig holds polling loop configuration.
type PollConfig struct {
	Codes          string `mapstructure:"codes"`    // comma-separated SYMBOL:EXCHANGE list
	Interval       int    `mapstructure:"interval"` // seconds between tick starts
	Mode           string `mapstructure:"mode"`     // sequential, concurrent
	UseAsync       bool   `mapstructure:"use_async"` // shorthand for mode = concurrent
	WaitForTick    bool   `mapstructure:"wait_for_tick"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

// FetchConfig holds quote page retrieval configuration.
type FetchConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	UserAgent    string `mapstructure:"user_agent"`
	TimeoutSec   int    `mapstructure:"timeout"`
	Retries      int    `mapstructure:"retries"`
	RetryDelayMs int    `mapstructure:"retry_delay_ms"`
}

// ExtractConfig holds the quote page selectors.
type ExtractConfig struct {
	NameSelector  string `mapstructure:"name_selector"`
	PriceSelector string `mapstructure:"price_selector"`
}

// StoreConfig selects the valuation store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // memory, sqlite
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Poll: PollConfig{
			Codes:    "AAPL:NASDAQ,BBCA:IDX,TLKM:IDX",
			Interval: 10,
			Mode:     "sequential",
		},
		Fetch: FetchConfig{
			BaseURL:      "https://www.google.com/finance/quote",
			UserAgent:    "Mozilla/5.0",
			TimeoutSec:   15,
			Retries:      0,
			RetryDelayMs: 500,
		},
		Extract: ExtractConfig{
			NameSelector:  ".zzDege",
			PriceSelector: ".YMlKec.fxKbKc",
		},
		Store: StoreConfig{Backend: "memory"},
		Log:   logging.DefaultLogConfig(),
	}
}

// FlagBindings maps configuration keys to the command-line flags that override them.
var FlagBindings = map[string]string{
	"poll.codes":           "codes",
	"poll.interval":        "interval",
	"poll.mode":            "mode",
	"poll.use_async":       "use-async",
	"poll.wait_for_tick":   "wait",
	"poll.max_concurrency": "max-concurrency",
	"fetch.timeout":        "timeout",
	"fetch.retries":        "retries",
	"fetch.base_url":       "base-url",
	"store.backend":        "store",
	"log.file_path":        "log-file",
}

// Load builds the configuration from defaults, an optional config file,
// QT_* environment variables and changed flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, qterrors.Wrapf(err, "reading config %s", path)
		}
	}

	if flags != nil {
		for key, name := range FlagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, qterrors.Wrapf(err, "binding flag %s", name)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, qterrors.Wrap(err, "decoding config")
	}

	if cfg.Log.FilePath != "" && flags != nil {
		if f := flags.Lookup("log-file"); f != nil && f.Changed {
			cfg.Log.File = true
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, qterrors.Wrap(err, "validating config")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("poll.codes", d.Poll.Codes)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.mode", d.Poll.Mode)
	v.SetDefault("poll.use_async", d.Poll.UseAsync)
	v.SetDefault("poll.wait_for_tick", d.Poll.WaitForTick)
	v.SetDefault("poll.max_concurrency", d.Poll.MaxConcurrency)

	v.SetDefault("fetch.base_url", d.Fetch.BaseURL)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.timeout", d.Fetch.TimeoutSec)
	v.SetDefault("fetch.retries", d.Fetch.Retries)
	v.SetDefault("fetch.retry_delay_ms", d.Fetch.RetryDelayMs)

	v.SetDefault("extract.name_selector", d.Extract.NameSelector)
	v.SetDefault("extract.price_selector", d.Extract.PriceSelector)

	v.SetDefault("store.backend", d.Store.Backend)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Poll.Interval < 1 {
		return qterrors.NewValidationError("poll.interval", c.Poll.Interval, "must be at least 1 second")
	}
	symbols, err := c.Symbols()
	if err != nil {
		return qterrors.NewValidationError("poll.codes", c.Poll.Codes, err.Error())
	}
	if len(symbols) == 0 {
		return qterrors.NewValidationError("poll.codes", c.Poll.Codes, "no symbols configured")
	}
	if _, err := poller.ParseMode(c.Poll.Mode); err != nil {
		return qterrors.NewValidationError("poll.mode", c.Poll.Mode, "must be 'sequential' or 'concurrent'")
	}
	if c.Poll.MaxConcurrency < 0 {
		return qterrors.NewValidationError("poll.max_concurrency", c.Poll.MaxConcurrency, "must not be negative")
	}
	if c.Fetch.TimeoutSec < 1 {
		return qterrors.NewValidationError("fetch.timeout", c.Fetch.TimeoutSec, "must be at least 1 second")
	}
	if c.Fetch.Retries < 0 {
		return qterrors.NewValidationError("fetch.retries", c.Fetch.Retries, "must not be negative")
	}
	switch strings.ToLower(c.Store.Backend) {
	case "memory", "sqlite":
	default:
		return qterrors.NewValidationError("store.backend", c.Store.Backend, "must be 'memory' or 'sqlite'")
	}
	return nil
}

// Symbols parses the configured code list.
func (c *Config) Symbols() ([]models.Symbol, error) {
	return models.ParseSymbols(c.Poll.Codes)
}

// Mode returns the dispatch mode. UseAsync forces concurrent dispatch.
func (c *Config) Mode() poller.Mode {
	if c.Poll.UseAsync {
		return poller.ModeConcurrent
	}
	mode, err := poller.ParseMode(c.Poll.Mode)
	if err != nil {
		return poller.ModeSequential
	}
	return mode
}

// PollInterval returns the interval between tick starts.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.Interval) * time.Second
}

// RequestTimeout returns the per-request fetch timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSec) * time.Second
}

// RetryDelay returns the initial backoff between fetch attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Fetch.RetryDelayMs) * time.Millisecond
}
