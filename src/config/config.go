package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"indicator-observer/src/helpers"
	"indicator-observer/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// DefaultIndicators is the fetch order used when no indicator set is configured.
var DefaultIndicators = []string{
	"GDP",
	"Population",
	"Interest Rate",
	"Inflation Rate",
	"Current Account",
	"Unemployment Rate",
	"Balance of Trade",
	"Government Debt",
}

// DefaultUnits labels the magnitude of each default indicator.
var DefaultUnits = map[string]string{
	"GDP":               "USD Billion",
	"Population":        "Million",
	"Interest Rate":     "Percent",
	"Inflation Rate":    "Percent",
	"Current Account":   "SEK Billion",
	"Unemployment Rate": "Percent",
	"Balance of Trade":  "SEK Million",
	"Government Debt":   "SEK Million",
}

const (
	DefaultTTLSeconds           = 500
	DefaultSweepIntervalSeconds = 200
	DefaultInterCallDelayMs     = 250
	DefaultUpstreamBaseURL      = "https://api.tradingeconomics.com"
	DefaultUpstreamFormat       = "json"
	DefaultRequestTimeout       = 20
	DefaultRetentionDays        = 30
)

// Environment overrides
const (
	EnvTTLSeconds     = "TTL_SECONDS"
	EnvSweepInterval  = "CACHE_SWEEP_INTERVAL_SECONDS"
	EnvInterCallDelay = "INTER_CALL_DELAY_MS"
	EnvIndicatorSet   = "INDICATOR_SET"
	EnvUpstreamAPIKey = "UPSTREAM_API_KEY"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// DefaultConfig returns a configuration populated with defaults only.
func DefaultConfig() *Config {
	cfg := &Config{MConfig: &models.MConfig{}}
	cfg.applyDefaults()
	return cfg
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file. An empty path uses the
// defaults. Environment overrides are applied last.
func NewConfig(configPath string) (*Config, error) {
	var modelConfig models.MConfig

	if configPath != "" {
		// 1. Read the YAML file content
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
		}

		// 2. Unmarshal data into the models struct
		if err := yaml.Unmarshal(data, &modelConfig); err != nil {
			return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
		}
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Environment overrides
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, helpers.NewConfigurationError("invalid environment override", err)
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "indicator-observer"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcHost == "" {
		c.GrpcHost = "127.0.0.1"
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = 50051
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = "indicator-observer.db"
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = DefaultRetentionDays
	}

	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = DefaultRequestTimeout
	}

	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if c.Upstream.Format == "" {
		c.Upstream.Format = DefaultUpstreamFormat
	}

	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = DefaultTTLSeconds
	}
	if c.Cache.SweepIntervalSeconds == 0 {
		c.Cache.SweepIntervalSeconds = DefaultSweepIntervalSeconds
	}

	if c.Aggregator.InterCallDelayMs == 0 {
		c.Aggregator.InterCallDelayMs = DefaultInterCallDelayMs
	}
	if len(c.Aggregator.Indicators) == 0 {
		c.Aggregator.Indicators = append([]string(nil), DefaultIndicators...)
	}
	if c.Aggregator.Units == nil {
		c.Aggregator.Units = make(map[string]string, len(DefaultUnits))
		for indicator, unit := range DefaultUnits {
			c.Aggregator.Units[indicator] = unit
		}
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if err := envInt(lookup, EnvTTLSeconds, &c.Cache.TTLSeconds); err != nil {
		return err
	}
	if err := envInt(lookup, EnvSweepInterval, &c.Cache.SweepIntervalSeconds); err != nil {
		return err
	}
	// A zero delay is a legitimate override, so it is not re-defaulted.
	if err := envInt(lookup, EnvInterCallDelay, &c.Aggregator.InterCallDelayMs); err != nil {
		return err
	}
	if value, ok := lookup(EnvIndicatorSet); ok && strings.TrimSpace(value) != "" {
		c.Aggregator.Indicators = ParseList(value)
	}
	if value, ok := lookup(EnvUpstreamAPIKey); ok && strings.TrimSpace(value) != "" {
		c.Upstream.APIKey = strings.TrimSpace(value)
	}
	return nil
}

// -----------------------------------------------------------------------------

func envInt(lookup func(string) (string, bool), key string, dest *int) error {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dest = parsed
	return nil
}

// -----------------------------------------------------------------------------

// ParseList splits a comma-separated list, dropping empty items.
func ParseList(value string) []string {
	raw := strings.Split(value, ",")
	items := make([]string, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		items = append(items, trimmed)
	}
	return items
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("application name cannot be empty")
	}

	if c.Host == "" {
		return errors.New("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort <= 1024 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return errors.New("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return errors.New("database connection string cannot be empty for postgres")
		}
	case "none":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return errors.New("retention days cannot be negative")
	}

	if c.Network.RequestTimeout <= 0 {
		return errors.New("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}

	if c.Upstream.BaseURL == "" {
		return errors.New("upstream base url cannot be empty")
	}

	if c.Cache.TTLSeconds <= 0 {
		return errors.New("cache ttl must be greater than 0")
	}
	if c.Cache.SweepIntervalSeconds <= 0 {
		return errors.New("cache sweep interval must be greater than 0")
	}

	if c.Aggregator.InterCallDelayMs < 0 {
		return errors.New("inter-call delay cannot be negative")
	}
	if len(c.Aggregator.Indicators) == 0 {
		return errors.New("at least one indicator must be configured")
	}
	seen := make(map[string]struct{}, len(c.Aggregator.Indicators))
	for i, indicator := range c.Aggregator.Indicators {
		if strings.TrimSpace(indicator) == "" {
			return fmt.Errorf("indicator %d cannot be empty", i)
		}
		if _, dup := seen[indicator]; dup {
			return fmt.Errorf("indicator '%s' is configured twice", indicator)
		}
		seen[indicator] = struct{}{}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) TTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalSeconds) * time.Second
}

func (c *Config) InterCallDelay() time.Duration {
	return time.Duration(c.Aggregator.InterCallDelayMs) * time.Millisecond
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Network.RequestTimeout) * time.Second
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0600, the file may carry the upstream key)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
