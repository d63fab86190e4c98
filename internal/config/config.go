package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all price-compass configuration.
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StoreConfig defines where the dataset and the side database live.
type StoreConfig struct {
	// DatasetPath is the canonical JSON dataset file.
	DatasetPath string `mapstructure:"dataset_path"`
	// DBPath is the SQLite database for submissions and price history.
	DBPath string `mapstructure:"db_path"`
}

// SourcesConfig defines the pricing sources.
type SourcesConfig struct {
	// VerifiedDir holds the hand-checked per-provider YAML files.
	VerifiedDir string `mapstructure:"verified_dir"`

	Aggregator AggregatorConfig `mapstructure:"aggregator"`

	// Submissions enables approved user submissions as a source.
	Submissions bool `mapstructure:"submissions"`
}

// AggregatorConfig defines the price aggregator API settings.
type AggregatorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Timeout string `mapstructure:"timeout"`
}

// ExtractionConfig defines the LLM page-extraction settings.
type ExtractionConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	// Delay is the pause between pages in a batch run.
	Delay   string         `mapstructure:"delay"`
	Targets []TargetConfig `mapstructure:"targets"`
}

// TargetConfig is one page the extractor should read.
type TargetConfig struct {
	URL      string `mapstructure:"url"`
	Provider string `mapstructure:"provider"`
}

// PipelineConfig tunes the update run.
type PipelineConfig struct {
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`
	PruneMissing    bool    `mapstructure:"prune_missing"`
}

// AlertsConfig defines notification integrations.
type AlertsConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// EmailConfig defines transactional email settings.
type EmailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
	To      string `mapstructure:"to"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	// AdminSecret guards the update endpoint. Empty disables it.
	AdminSecret string `mapstructure:"admin_secret"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".compass"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("store.dataset_path", filepath.Join(home, ".compass", "prices.json"))
	v.SetDefault("store.db_path", filepath.Join(home, ".compass", "compass.db"))
	v.SetDefault("sources.verified_dir", "pricing/")
	v.SetDefault("sources.aggregator.enabled", true)
	v.SetDefault("sources.aggregator.url", "https://www.llm-prices.com/current-v1.json")
	v.SetDefault("sources.aggregator.timeout", "15s")
	v.SetDefault("sources.submissions", true)
	v.SetDefault("extraction.model", "gpt-4-turbo")
	v.SetDefault("extraction.delay", "2s")
	v.SetDefault("pipeline.confidence_floor", 0.85)
	v.SetDefault("pipeline.prune_missing", false)
	v.SetDefault("alerts.slack.channel", "#llm-prices")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("COMPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// The extraction key usually arrives via the environment, not the
	// config file.
	if cfg.Extraction.APIKey == "" {
		cfg.Extraction.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
}
