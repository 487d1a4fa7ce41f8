package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix scopes environment overrides, e.g. RANKER_SCORING_CONCURRENCY
const envPrefix = "RANKER"

// Config holds application configuration
type Config struct {
	GoogleCloudProject    string        `mapstructure:"google_cloud_project" json:"google_cloud_project"`
	GoogleCloudLocation   string        `mapstructure:"google_cloud_location" json:"google_cloud_location"`
	GoogleCredentialsPath string        `mapstructure:"google_credentials_path" json:"google_credentials_path"`
	Model                 string        `mapstructure:"model" json:"model"`
	DataPath              string        `mapstructure:"data_path" json:"data_path"`
	UploadsDir            string        `mapstructure:"uploads_dir" json:"uploads_dir"`
	DatabaseURL           string        `mapstructure:"database_url" json:"database_url,omitempty"`
	Port                  string        `mapstructure:"port" json:"port"`
	LogLevel              string        `mapstructure:"log_level" json:"log_level"`
	Scoring               ScoringConfig `mapstructure:"scoring" json:"scoring"`
}

// ScoringConfig tunes the batch scoring run against the LLM.
// A RequestsPerSecond of 0 disables rate limiting.
type ScoringConfig struct {
	Concurrency       int           `mapstructure:"concurrency" json:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries" json:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff" json:"retry_backoff"`
	Breaker           BreakerConfig `mapstructure:"breaker" json:"breaker"`
}

// BreakerConfig configures the circuit breaker around the scorer
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled" json:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests" json:"max_requests"`
	Interval         time.Duration `mapstructure:"interval" json:"interval"`
	Timeout          time.Duration `mapstructure:"timeout" json:"timeout"`
	MinRequests      uint32        `mapstructure:"min_requests" json:"min_requests"`
	FailureThreshold float64       `mapstructure:"failure_threshold" json:"failure_threshold"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		GoogleCloudLocation: "us-central1",
		Model:               "gemini-1.5-flash",
		DataPath:            filepath.Join("data", "candidates.json"),
		UploadsDir:          "uploads",
		Port:                "8080",
		LogLevel:            "info",
		Scoring: ScoringConfig{
			Concurrency:       2,
			RequestsPerSecond: 0.25, // one request every 4 seconds
			MaxRetries:        3,
			RetryBackoff:      10 * time.Second,
			Breaker: BreakerConfig{
				Enabled:          true,
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				MinRequests:      5,
				FailureThreshold: 0.6,
			},
		},
	}
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/CandidateRanker/config.json
// On Unix: ~/.config/CandidateRanker/config.json
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "CandidateRanker")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "CandidateRanker")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load loads configuration from the default config path
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFrom(configPath)
}

// LoadFrom loads configuration from a specific path. A missing file yields the
// defaults; RANKER_* environment variables override both.
func LoadFrom(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return config, nil
}

// newViper registers every key with its default so env overrides apply to all of them
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("google_cloud_project", d.GoogleCloudProject)
	v.SetDefault("google_cloud_location", d.GoogleCloudLocation)
	v.SetDefault("google_credentials_path", d.GoogleCredentialsPath)
	v.SetDefault("model", d.Model)
	v.SetDefault("data_path", d.DataPath)
	v.SetDefault("uploads_dir", d.UploadsDir)
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("port", d.Port)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("scoring.concurrency", d.Scoring.Concurrency)
	v.SetDefault("scoring.requests_per_second", d.Scoring.RequestsPerSecond)
	v.SetDefault("scoring.max_retries", d.Scoring.MaxRetries)
	v.SetDefault("scoring.retry_backoff", d.Scoring.RetryBackoff)
	v.SetDefault("scoring.breaker.enabled", d.Scoring.Breaker.Enabled)
	v.SetDefault("scoring.breaker.max_requests", d.Scoring.Breaker.MaxRequests)
	v.SetDefault("scoring.breaker.interval", d.Scoring.Breaker.Interval)
	v.SetDefault("scoring.breaker.timeout", d.Scoring.Breaker.Timeout)
	v.SetDefault("scoring.breaker.min_requests", d.Scoring.Breaker.MinRequests)
	v.SetDefault("scoring.breaker.failure_threshold", d.Scoring.Breaker.FailureThreshold)

	// Accept the conventional Google variables as well
	_ = v.BindEnv("google_cloud_project", envPrefix+"_GOOGLE_CLOUD_PROJECT", "GOOGLE_CLOUD_PROJECT")
	_ = v.BindEnv("google_cloud_location", envPrefix+"_GOOGLE_CLOUD_LOCATION", "GOOGLE_CLOUD_LOCATION")
	_ = v.BindEnv("google_credentials_path", envPrefix+"_GOOGLE_CREDENTIALS_PATH", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("database_url", envPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("port", envPrefix+"_PORT", "PORT")

	return v
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ScoringEnabled reports whether enough is configured to reach Vertex AI
func (c *Config) ScoringEnabled() bool {
	return c.GoogleCloudProject != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.GoogleCloudProject != "" && c.GoogleCloudLocation == "" {
		return fmt.Errorf("google_cloud_location is required when google_cloud_project is set")
	}

	if c.GoogleCredentialsPath != "" {
		if _, err := os.Stat(c.GoogleCredentialsPath); err != nil {
			return fmt.Errorf("google credentials file not found: %w", err)
		}
	}

	if c.DatabaseURL == "" && c.DataPath == "" {
		return fmt.Errorf("either database_url or data_path is required")
	}

	if c.Scoring.Concurrency < 1 {
		return fmt.Errorf("scoring.concurrency must be at least 1, got %d", c.Scoring.Concurrency)
	}

	if c.Scoring.RequestsPerSecond < 0 {
		return fmt.Errorf("scoring.requests_per_second must not be negative, got %g", c.Scoring.RequestsPerSecond)
	}

	if c.Scoring.MaxRetries < 0 {
		return fmt.Errorf("scoring.max_retries must not be negative, got %d", c.Scoring.MaxRetries)
	}

	if b := c.Scoring.Breaker; b.Enabled && (b.FailureThreshold <= 0 || b.FailureThreshold > 1) {
		return fmt.Errorf("scoring.breaker.failure_threshold must be in (0, 1], got %g", b.FailureThreshold)
	}

	return nil
}
