// Package config provides configuration loading and validation for chartfang.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidWorkers     = errors.New("fetch workers must be positive")
	ErrInvalidTop         = errors.New("chart top must be positive")
	ErrInvalidCacheSize   = errors.New("cache max entries must be positive")
	ErrInvalidLogFormat   = errors.New("logging format must be text or json")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be within [0, 1]")
)

const (
	envPrefix = "CHARTFANG"
	maxPort   = 65535
)

// Config holds all configuration for chartfang.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LastFM    LastFMConfig    `mapstructure:"lastfm"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Chart     ChartConfig     `mapstructure:"chart"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds backend HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LastFMConfig holds Last.fm web service credentials.
type LastFMConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// BackendConfig points the CLI at a chartfang backend instead of Last.fm.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FetchConfig holds snapshot fetching settings.
type FetchConfig struct {
	Workers int `mapstructure:"workers"`
}

// ChartConfig holds the defaults used when a request leaves a field empty.
type ChartConfig struct {
	Kind      string `mapstructure:"kind"`
	Timeframe string `mapstructure:"timeframe"`
	Top       int    `mapstructure:"top"`
}

// CacheConfig holds weekly chart cache settings.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxEntries int  `mapstructure:"max_entries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("config")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/chartfang")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("server.host", DefaultHost)
	viperCfg.SetDefault("server.port", DefaultPort)
	viperCfg.SetDefault("server.read_timeout", DefaultReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultWriteTimeout)
	viperCfg.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	viperCfg.SetDefault("server.cors_origins", []string{"*"})

	// Keys need a default so AutomaticEnv can see them during Unmarshal.
	viperCfg.SetDefault("lastfm.api_key", "")
	viperCfg.SetDefault("lastfm.api_secret", "")
	viperCfg.SetDefault("lastfm.base_url", DefaultLastFMBaseURL)
	viperCfg.SetDefault("lastfm.timeout", DefaultLastFMTimeout)

	viperCfg.SetDefault("backend.url", "")
	viperCfg.SetDefault("backend.timeout", DefaultBackendTimeout)

	viperCfg.SetDefault("fetch.workers", DefaultFetchWorkers)

	viperCfg.SetDefault("chart.kind", DefaultChartKind)
	viperCfg.SetDefault("chart.timeframe", DefaultChartTimeframe)
	viperCfg.SetDefault("chart.top", DefaultChartTop)

	viperCfg.SetDefault("cache.enabled", DefaultCacheEnabled)
	viperCfg.SetDefault("cache.max_entries", DefaultCacheMaxEntries)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.environment", DefaultEnvironment)
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	if config.Fetch.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Fetch.Workers)
	}

	if config.Chart.Top <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTop, config.Chart.Top)
	}

	if config.Cache.Enabled && config.Cache.MaxEntries <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, config.Cache.MaxEntries)
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	return nil
}
