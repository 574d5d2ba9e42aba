package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
staging:
  root: "/tmp/ets"
  catalog_cache_file: "master.db"
cache:
  wal_mode: true
  busy_timeout: 3
decode:
  parallelism: 4
  project_id: "P-0501"
  installation: 0
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Staging.Root != "/tmp/ets" {
		t.Errorf("Staging.Root = %q, want %q", cfg.Staging.Root, "/tmp/ets")
	}
	if cfg.Staging.CatalogCacheFile != "master.db" {
		t.Errorf("Staging.CatalogCacheFile = %q, want %q", cfg.Staging.CatalogCacheFile, "master.db")
	}
	if cfg.Decode.Parallelism != 4 {
		t.Errorf("Decode.Parallelism = %d, want 4", cfg.Decode.Parallelism)
	}
	if cfg.Decode.ProjectID != "P-0501" {
		t.Errorf("Decode.ProjectID = %q, want %q", cfg.Decode.ProjectID, "P-0501")
	}
	if cfg.Decode.Installation != 0 {
		t.Errorf("Decode.Installation = %d, want 0", cfg.Decode.Installation)
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	// Unset sections keep their defaults.
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
staging:
  root: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty staging.root, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "missing staging root", mutate: func(c *Config) { c.Staging.Root = "" }, wantErr: true},
		{name: "missing cache file", mutate: func(c *Config) { c.Staging.CatalogCacheFile = "" }, wantErr: true},
		{name: "cache file is a path", mutate: func(c *Config) { c.Staging.CatalogCacheFile = "a/b.db" }, wantErr: true},
		{name: "negative parallelism", mutate: func(c *Config) { c.Decode.Parallelism = -1 }, wantErr: true},
		{name: "invalid installation", mutate: func(c *Config) { c.Decode.Installation = -2 }, wantErr: true},
		{name: "invalid QoS ignored when disabled", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: false},
		{
			name: "invalid QoS when enabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "invalid port when enabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("GRAYLOGIC_STAGING_ROOT", "/custom/staging")
	t.Setenv("GRAYLOGIC_DECODE_PROJECT_ID", "P-1234")
	t.Setenv("GRAYLOGIC_DECODE_INSTALLATION", "2")
	t.Setenv("GRAYLOGIC_LOG_LEVEL", "debug")
	t.Setenv("GRAYLOGIC_MQTT_HOST", "mqtt.example.com")
	t.Setenv("GRAYLOGIC_MQTT_USERNAME", "testuser")
	t.Setenv("GRAYLOGIC_MQTT_PASSWORD", "testpass")
	t.Setenv("GRAYLOGIC_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Staging.Root != "/custom/staging" {
		t.Errorf("Staging.Root = %q, want %q", cfg.Staging.Root, "/custom/staging")
	}
	if cfg.Decode.ProjectID != "P-1234" {
		t.Errorf("Decode.ProjectID = %q, want %q", cfg.Decode.ProjectID, "P-1234")
	}
	if cfg.Decode.Installation != 2 {
		t.Errorf("Decode.Installation = %d, want 2", cfg.Decode.Installation)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverrides_InvalidInstallationIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("GRAYLOGIC_DECODE_INSTALLATION", "first")

	applyEnvOverrides(cfg)

	if cfg.Decode.Installation != -1 {
		t.Errorf("Decode.Installation = %d, want -1", cfg.Decode.Installation)
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("GRAYLOGIC_STAGING_ROOT", "/env/root")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if cfg.Staging.Root != "/env/root" {
		t.Errorf("Staging.Root = %q, want %q", cfg.Staging.Root, "/env/root")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Staging.Root == "" {
		t.Error("defaultConfig should have non-empty Staging.Root")
	}
	if cfg.Staging.CatalogCacheFile != "knx_master.db" {
		t.Errorf("defaultConfig Staging.CatalogCacheFile = %q, want %q", cfg.Staging.CatalogCacheFile, "knx_master.db")
	}
	if cfg.Decode.Installation != -1 {
		t.Errorf("defaultConfig Decode.Installation = %d, want -1", cfg.Decode.Installation)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("defaultConfig should leave MQTT and InfluxDB disabled")
	}
}
