package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/costcompass/llm-price-compass/internal/config"
	"github.com/costcompass/llm-price-compass/pkg/alerts"
	"github.com/costcompass/llm-price-compass/pkg/merge"
	"github.com/costcompass/llm-price-compass/pkg/pipeline"
	"github.com/costcompass/llm-price-compass/pkg/source"
	"github.com/costcompass/llm-price-compass/pkg/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "compass",
	Short: "LLM Price Compass - track, compare and publish LLM pricing",
	Long: `LLM Price Compass keeps a canonical dataset of LLM API prices. It pulls
prices from verified constants, an aggregator API, LLM-extracted pricing pages
and user submissions, detects significant changes, and publishes updates or
holds them for review.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	// Local env files are optional; real environments set variables directly.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.compass/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStore opens the canonical dataset store.
func initStore(cfg *config.Config) *store.FileStore {
	return store.NewFileStore(cfg.Store.DatasetPath)
}

// initSideStore opens the submissions and history database.
func initSideStore(cfg *config.Config) (*store.SQLite, error) {
	return store.NewSQLite(cfg.Store.DBPath)
}

// initNotifiers creates report notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Email.Enabled && cfg.Alerts.Email.APIKey != "" {
		notifiers = append(notifiers, alerts.NewEmailNotifier(
			cfg.Alerts.Email.APIKey,
			cfg.Alerts.Email.From,
			cfg.Alerts.Email.To,
		))
	}

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// initSources builds the source list for an update run. side may be nil.
func initSources(cfg *config.Config, side store.SideStore, logger *slog.Logger) ([]source.Source, error) {
	verified, err := source.LoadVerified(cfg.Sources.VerifiedDir)
	if err != nil {
		return nil, fmt.Errorf("load verified pricing: %w", err)
	}

	sources := []source.Source{verified}

	if cfg.Sources.Aggregator.Enabled && cfg.Sources.Aggregator.URL != "" {
		timeout := parseDuration(cfg.Sources.Aggregator.Timeout, 15*time.Second)
		sources = append(sources, source.NewAggregator(cfg.Sources.Aggregator.URL, verified, timeout, logger))
	}

	if cfg.Sources.Submissions && side != nil {
		sources = append(sources, source.NewSubmissions(side))
	}

	if cfg.Extraction.APIKey != "" && len(cfg.Extraction.Targets) > 0 {
		extractor, err := source.NewExtractor(extractorConfig(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("init extractor: %w", err)
		}
		sources = append(sources, extractor)
	}

	return sources, nil
}

// extractorConfig maps the config file section onto the extractor settings.
func extractorConfig(cfg *config.Config) source.ExtractorConfig {
	targets := make([]source.ExtractTarget, 0, len(cfg.Extraction.Targets))
	for _, t := range cfg.Extraction.Targets {
		targets = append(targets, source.ExtractTarget{URL: t.URL, Provider: t.Provider})
	}
	return source.ExtractorConfig{
		APIKey:  cfg.Extraction.APIKey,
		BaseURL: cfg.Extraction.BaseURL,
		Model:   cfg.Extraction.Model,
		Delay:   parseDuration(cfg.Extraction.Delay, 2*time.Second),
		Targets: targets,
	}
}

// initPipeline wires a full update pipeline over an already-open side store.
func initPipeline(cfg *config.Config, side store.SideStore, force, prune bool, logger *slog.Logger) (*pipeline.Pipeline, error) {
	sources, err := initSources(cfg, side, logger)
	if err != nil {
		return nil, err
	}

	pcfg := pipeline.Config{
		Merge:           merge.Policy{PruneMissing: prune || cfg.Pipeline.PruneMissing},
		ForcePublish:    force,
		ConfidenceFloor: cfg.Pipeline.ConfidenceFloor,
	}
	return pipeline.New(initStore(cfg), side, sources, initNotifiers(cfg), pcfg, logger), nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
