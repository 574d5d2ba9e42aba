package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the ETS decoder.
// All configuration is loaded from YAML and can be overridden by environment variables.
//
// The archive passphrase is deliberately absent: it is supplied by the
// credential store through GRAYLOGIC_ETS_PASSWORD and never persisted.
type Config struct {
	Staging  StagingConfig  `yaml:"staging"`
	Cache    CacheConfig    `yaml:"cache"`
	Decode   DecodeConfig   `yaml:"decode"`
	Logging  LoggingConfig  `yaml:"logging"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// StagingConfig controls where archives are extracted.
type StagingConfig struct {
	// Root is the directory under which each archive gets its own
	// staging directory, named after the archive.
	Root string `yaml:"root"`

	// CatalogCacheFile is the file name of the catalog cache artifact,
	// created inside each staging directory.
	CatalogCacheFile string `yaml:"catalog_cache_file"`
}

// CacheConfig contains SQLite settings for the catalog cache artifact.
type CacheConfig struct {
	WALMode     bool `yaml:"wal_mode"`
	BusyTimeout int  `yaml:"busy_timeout"`
}

// DecodeConfig tunes the decode pipeline.
type DecodeConfig struct {
	// Parallelism bounds concurrent application-program parsing.
	// 0 means one worker per CPU.
	Parallelism int `yaml:"parallelism"`

	// ProjectID selects a project when an archive holds more than one.
	// Empty selects the lexically first.
	ProjectID string `yaml:"project_id"`

	// Installation selects the numbered installation file. -1 selects the
	// lowest index present.
	Installation int `yaml:"installation"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_STAGING_ROOT, GRAYLOGIC_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration with environment overrides
// applied. It is used when no configuration file is given.
//
// Returns:
//   - *Config: Default configuration
//   - error: If environment overrides produce an invalid configuration
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Staging: StagingConfig{
			Root:             "./data/ets",
			CatalogCacheFile: "knx_master.db",
		},
		Cache: CacheConfig{
			WALMode:     false,
			BusyTimeout: 5,
		},
		Decode: DecodeConfig{
			Parallelism:  0,
			Installation: -1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-etsdecode",
			},
			QoS: 1,
		},
		InfluxDB: InfluxDBConfig{
			URL:    "http://localhost:8086",
			Org:    "graylogic",
			Bucket: "graylogic",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Staging
	if v := os.Getenv("GRAYLOGIC_STAGING_ROOT"); v != "" {
		cfg.Staging.Root = v
	}

	// Decode
	if v := os.Getenv("GRAYLOGIC_DECODE_PROJECT_ID"); v != "" {
		cfg.Decode.ProjectID = v
	}
	if v := os.Getenv("GRAYLOGIC_DECODE_INSTALLATION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Decode.Installation = n
		}
	}

	// Logging
	if v := os.Getenv("GRAYLOGIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Staging.Root == "" {
		errs = append(errs, "staging.root is required")
	}
	if c.Staging.CatalogCacheFile == "" {
		errs = append(errs, "staging.catalog_cache_file is required")
	} else if strings.ContainsAny(c.Staging.CatalogCacheFile, `/\`) {
		errs = append(errs, "staging.catalog_cache_file must be a file name, not a path")
	}

	if c.Cache.BusyTimeout < 0 {
		errs = append(errs, "cache.busy_timeout must not be negative")
	}

	if c.Decode.Parallelism < 0 {
		errs = append(errs, "decode.parallelism must not be negative")
	}
	if c.Decode.Installation < -1 {
		errs = append(errs, "decode.installation must be -1 (lowest) or a file index")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
