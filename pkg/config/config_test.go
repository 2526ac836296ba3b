package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	// Given no configuration sources
	cfg := Default()

	// Then the built-in values apply and validate
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.RequestTimeoutCheckInterval)
	assert.Equal(t, 10*time.Second, cfg.MaximumResponseDelay)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 4444, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.JournalPath)
}

func TestLoadFromFile(t *testing.T) {
	// Given a TOML config file
	dir := t.TempDir()
	configFile := filepath.Join(dir, "webgrid.toml")
	content := `
request_timeout = "2m"
request_timeout_check_interval = "30s"
maximum_response_delay = "5s"
batch_size = 4
port = 5555
log_level = "debug"
journal_path = "/var/lib/webgrid/journal.db"
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	// When loading it
	cfg, err := LoadFromFile(configFile)

	// Then file values override defaults
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeoutCheckInterval)
	assert.Equal(t, 5*time.Second, cfg.MaximumResponseDelay)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, 5555, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/webgrid/journal.db", cfg.JournalPath)

	// And unspecified values keep their defaults
	assert.Equal(t, 1000, cfg.JournalRecent)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/webgrid.toml")
	assert.Error(t, err)
}

func TestLoadFromFile_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "webgrid.toml")
	require.NoError(t, os.WriteFile(configFile, []byte("batch_size = -1"), 0644))

	_, err := LoadFromFile(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
}

func TestLoadWithEnvironment(t *testing.T) {
	// Given environment overrides
	t.Setenv("WEBGRID_REQUEST_TIMEOUT", "90s")
	t.Setenv("WEBGRID_BATCH_SIZE", "3")
	t.Setenv("WEBGRID_LOG_LEVEL", "warn")

	// When loading without a file
	cfg, err := LoadWithEnvironment("")

	// Then environment values win over defaults
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 4444, cfg.Port)
}

func TestLoadWithEnvironment_FileAndEnv(t *testing.T) {
	// Given both a config file and an environment override
	dir := t.TempDir()
	configFile := filepath.Join(dir, "webgrid.toml")
	require.NoError(t, os.WriteFile(configFile, []byte("port = 5555\nbatch_size = 4"), 0644))
	t.Setenv("WEBGRID_PORT", "6666")

	cfg, err := LoadWithEnvironment(configFile)

	// Then the environment wins over the file, which wins over defaults
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Port)
	assert.Equal(t, 4, cfg.BatchSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, "request_timeout"},
		{"zero check interval", func(c *Config) { c.RequestTimeoutCheckInterval = 0 }, "request_timeout_check_interval"},
		{"zero response delay", func(c *Config) { c.MaximumResponseDelay = 0 }, "maximum_response_delay"},
		{"response delay exceeds timeout", func(c *Config) { c.MaximumResponseDelay = 10 * time.Minute }, "maximum_response_delay"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"invalid port", func(c *Config) { c.Port = 70000 }, "port"},
		{"invalid log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"negative journal recent", func(c *Config) { c.JournalRecent = -1 }, "journal_recent"},
		{"negative journal max age", func(c *Config) { c.JournalMaxAge = -time.Hour }, "journal_max_age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Field: "port", Value: 0, Message: "must be a valid TCP port"}
	assert.Equal(t, "invalid port value '0': must be a valid TCP port", err.Error())
}

func TestConfigSource_String(t *testing.T) {
	assert.Equal(t, "default", SourceDefault.String())
	assert.Equal(t, "config file", SourceConfigFile.String())
	assert.Equal(t, "environment variable", SourceEnvironment.String())
	assert.Equal(t, "CLI flag", SourceCLIFlag.String())
}

func TestQueueOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.QueueOptions()

	assert.Equal(t, cfg.RequestTimeout, opts.RequestTimeout)
	assert.Equal(t, cfg.RequestTimeoutCheckInterval, opts.RequestTimeoutCheckInterval)
	assert.Equal(t, cfg.MaximumResponseDelay, opts.MaximumResponseDelay)
	assert.Equal(t, cfg.BatchSize, opts.BatchSize)
}
