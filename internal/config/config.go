package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the analysis service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Stores   StoresConfig   `yaml:"stores"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address           string        `yaml:"address"`
	MetricsAddress    string        `yaml:"metricsAddress"`
	GracefulTimeout   time.Duration `yaml:"gracefulTimeout"`
	IngestPerMinute   int           `yaml:"ingestPerMinute"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// StoresConfig sizes the bounded rolling stores.
type StoresConfig struct {
	TelemetryCapacity int `yaml:"telemetryCapacity"`
	ThreatCapacity    int `yaml:"threatCapacity"`
}

// AnalysisConfig tunes the anomaly detector and scorer. Defaults match the
// fixed production behaviour; changing them changes scoring semantics.
type AnalysisConfig struct {
	DefaultWindowHours     float64 `yaml:"defaultWindowHours"`
	SigmaThreshold         float64 `yaml:"sigmaThreshold"`
	ExpectedBatchesPerHour float64 `yaml:"expectedBatchesPerHour"`
}

// CacheConfig controls optional caching of analysis results.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ResultTTL    time.Duration `yaml:"resultTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SENTINEL_ANALYSIS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:           ":8080",
			MetricsAddress:    ":2112",
			GracefulTimeout:   10 * time.Second,
			IngestPerMinute:   600,
			RequestsPerMinute: 120,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Stores: StoresConfig{
			TelemetryCapacity: 10000,
			ThreatCapacity:    1000,
		},
		Analysis: AnalysisConfig{
			DefaultWindowHours:     24,
			SigmaThreshold:         3,
			ExpectedBatchesPerHour: 6,
		},
		Cache: CacheConfig{
			Enabled:      false,
			Backend:      "memory",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			ResultTTL:    30 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_ANALYSIS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_INGEST_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.IngestPerMinute = n
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_TELEMETRY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Stores.TelemetryCapacity = n
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_THREAT_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Stores.ThreatCapacity = n
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_DEFAULT_WINDOW_HOURS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.DefaultWindowHours = f
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_SIGMA_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.SigmaThreshold = f
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_EXPECTED_BATCHES_PER_HOUR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.ExpectedBatchesPerHour = f
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_CACHE_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = n
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_CACHE_TLS"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_CACHE_RESULT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ResultTTL = d
		}
	}
}
