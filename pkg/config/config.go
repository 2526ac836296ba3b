package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/webgridhq/webgrid/pkg/sessionqueue"
)

// Config holds the configuration for the webgrid queue daemon.
type Config struct {
	// Queue behavior.
	RequestTimeout              time.Duration `mapstructure:"request_timeout"`
	RequestTimeoutCheckInterval time.Duration `mapstructure:"request_timeout_check_interval"`
	MaximumResponseDelay        time.Duration `mapstructure:"maximum_response_delay"`
	BatchSize                   int           `mapstructure:"batch_size"`

	// Server.
	Port            int    `mapstructure:"port"`
	PidFile         string `mapstructure:"pid_file"`
	LogLevel        string `mapstructure:"log_level"`
	EnableProfiling bool   `mapstructure:"enable_profiling"`

	// Outcome journal.
	JournalPath   string        `mapstructure:"journal_path"`
	JournalRecent int           `mapstructure:"journal_recent"`
	JournalMaxAge time.Duration `mapstructure:"journal_max_age"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value '%v': %s", e.Field, e.Value, e.Message)
}

// ConfigSource represents where a configuration value came from
type ConfigSource int

const (
	SourceDefault ConfigSource = iota
	SourceConfigFile
	SourceEnvironment
	SourceCLIFlag
)

func (s ConfigSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceConfigFile:
		return "config file"
	case SourceEnvironment:
		return "environment variable"
	case SourceCLIFlag:
		return "CLI flag"
	default:
		return "unknown"
	}
}

// Default returns the daemon's built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		// Defaults are static; this cannot fail at runtime.
		panic(fmt.Sprintf("defaults failed to unmarshal: %v", err))
	}
	return &config
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Set config file
	v.SetConfigFile(configFile)
	v.SetConfigType("toml")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into config struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// LoadWithEnvironment loads configuration with environment variable support
func LoadWithEnvironment(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load config file if specified
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Configure environment variable support
	v.SetEnvPrefix("WEBGRID")
	v.AutomaticEnv()

	// Map environment variables to config keys
	for envVar, configKey := range envMappings() {
		v.BindEnv(configKey, envVar)
	}

	// Unmarshal into config struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func envMappings() map[string]string {
	return map[string]string{
		"WEBGRID_REQUEST_TIMEOUT":                "request_timeout",
		"WEBGRID_REQUEST_TIMEOUT_CHECK_INTERVAL": "request_timeout_check_interval",
		"WEBGRID_MAXIMUM_RESPONSE_DELAY":         "maximum_response_delay",
		"WEBGRID_BATCH_SIZE":                     "batch_size",
		"WEBGRID_PORT":                           "port",
		"WEBGRID_PID_FILE":                       "pid_file",
		"WEBGRID_LOG_LEVEL":                      "log_level",
		"WEBGRID_ENABLE_PROFILING":               "enable_profiling",
		"WEBGRID_JOURNAL_PATH":                   "journal_path",
		"WEBGRID_JOURNAL_RECENT":                 "journal_recent",
		"WEBGRID_JOURNAL_MAX_AGE":                "journal_max_age",
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("request_timeout", 5*time.Minute)
	v.SetDefault("request_timeout_check_interval", time.Minute)
	v.SetDefault("maximum_response_delay", 10*time.Second)
	v.SetDefault("batch_size", 10)
	v.SetDefault("port", 4444)
	v.SetDefault("pid_file", "/tmp/webgridd.pid")
	v.SetDefault("log_level", "info")
	v.SetDefault("enable_profiling", false)
	v.SetDefault("journal_path", "")
	v.SetDefault("journal_recent", 1000)
	v.SetDefault("journal_max_age", 24*time.Hour)
}

// Validate checks that the configuration values are usable together.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return ValidationError{Field: "request_timeout", Value: c.RequestTimeout, Message: "must be positive"}
	}
	if c.RequestTimeoutCheckInterval <= 0 {
		return ValidationError{Field: "request_timeout_check_interval", Value: c.RequestTimeoutCheckInterval, Message: "must be positive"}
	}
	if c.MaximumResponseDelay <= 0 {
		return ValidationError{Field: "maximum_response_delay", Value: c.MaximumResponseDelay, Message: "must be positive"}
	}
	if c.MaximumResponseDelay > c.RequestTimeout {
		return ValidationError{Field: "maximum_response_delay", Value: c.MaximumResponseDelay, Message: "must not exceed request_timeout"}
	}
	if c.BatchSize <= 0 {
		return ValidationError{Field: "batch_size", Value: c.BatchSize, Message: "must be positive"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ValidationError{Field: "port", Value: c.Port, Message: "must be a valid TCP port"}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ValidationError{Field: "log_level", Value: c.LogLevel, Message: "must be one of debug, info, warn, error"}
	}
	if c.JournalRecent < 0 {
		return ValidationError{Field: "journal_recent", Value: c.JournalRecent, Message: "must not be negative"}
	}
	if c.JournalMaxAge < 0 {
		return ValidationError{Field: "journal_max_age", Value: c.JournalMaxAge, Message: "must not be negative"}
	}
	return nil
}

// QueueOptions maps the configuration onto session queue options.
func (c *Config) QueueOptions() sessionqueue.Options {
	return sessionqueue.Options{
		RequestTimeout:              c.RequestTimeout,
		RequestTimeoutCheckInterval: c.RequestTimeoutCheckInterval,
		MaximumResponseDelay:        c.MaximumResponseDelay,
		BatchSize:                   c.BatchSize,
	}
}
