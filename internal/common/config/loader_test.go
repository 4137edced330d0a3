package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("TEST_BROKER", "zeebe:26500")

	path := writeConfig(t, `
camunda:
  broker_address: ${TEST_BROKER}
database:
  redis:
    address: localhost:6379
sync:
  store: redis
workers:
  inquiry-lead-sync:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "zeebe:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, StoreRedis, cfg.Sync.Store)
	assert.Equal(t, "inquiry-sync-history", cfg.Sync.HistoryIndex)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 8080, cfg.App.HealthPort)

	worker := GetWorkerConfig(cfg, "inquiry-lead-sync")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 3, worker.MaxRetries)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Camunda.BrokerAddress = "zeebe:26500"
		cfg.Database.Postgres = PostgresConfig{Host: "db", Database: "inquiries", User: "sync"}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid postgres", func(*Config) {}, ""},
		{"missing broker", func(c *Config) { c.Camunda.BrokerAddress = "" }, "camunda.broker_address is required"},
		{"missing pg host", func(c *Config) { c.Database.Postgres.Host = "" }, "database.postgres.host is required"},
		{"redis without address", func(c *Config) { c.Sync.Store = StoreRedis }, "database.redis.address is required"},
		{"unknown store", func(c *Config) { c.Sync.Store = "mongo" }, "sync.store must be"},
		{"email alerts without recipients", func(c *Config) { c.Sync.Alerts.Email.Enabled = true }, "sync.alerts.email.recipients is required"},
		{"topic alerts without arn", func(c *Config) { c.Sync.Alerts.Topic.Enabled = true }, "sync.alerts.topic.topic_arn is required"},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true }, "tracing.jaeger_endpoint is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsWorkerEnabled(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"off": {Enabled: false}}}

	assert.False(t, IsWorkerEnabled(cfg, "off"))
	assert.True(t, IsWorkerEnabled(cfg, "unlisted"))
}
