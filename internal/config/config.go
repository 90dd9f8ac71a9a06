// Package config loads and validates the pipeline's runtime configuration:
// search criteria, dedup weights, concurrency bounds, and external service
// credentials. Grounded on tarsy's pkg/config (YAML + env-expand + validator
// + fsnotify hot-reload).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// DedupConfig exposes the dedup scorer's tunables as configuration rather
// than hardcoding them, per SPEC_FULL.md's Open Question decision.
type DedupConfig struct {
	MatchThreshold float64 `yaml:"match_threshold" validate:"gte=0,lte=1"`
	MinSignals     int     `yaml:"min_signals" validate:"gte=1"`
}

// ConcurrencyConfig carries the semaphore defaults spec §5 names, overridable
// per deployment.
type ConcurrencyConfig struct {
	ScrapePerPlatform     int64 `yaml:"scrape_per_platform" validate:"gte=1"`
	EnrichPerProperty     int64 `yaml:"enrich_per_property" validate:"gte=1"`
	EnrichPerImage        int64 `yaml:"enrich_per_image" validate:"gte=1"`
	AnalyzePerRun         int64 `yaml:"analyze_per_run" validate:"gte=1"`
	EnrichMaxAttempts     int   `yaml:"enrich_max_attempts" validate:"gte=1"`
}

// SlackConfig mirrors tarsy's SlackConfig shape: enabled flag, token sourced
// from an env var (never written to YAML directly), target channel.
type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env"`
	Channel  string `yaml:"channel" validate:"required_if=Enabled true"`
}

// ExternalServicesConfig carries the base URLs and credentials for every
// capability spec §1 treats as an external non-goal collaborator (scraper
// platforms, analyzer, commute estimator) — spec §6's "api credentials,
// analyzer_api_key, analyzer_max_images".
type ExternalServicesConfig struct {
	ScraperBaseURLs  map[string]string `yaml:"scraper_base_urls"`
	AnalyzerBaseURL  string            `yaml:"analyzer_base_url"`
	AnalyzerAPIKeyEnv string           `yaml:"analyzer_api_key_env"`
	AnalyzerMaxImages int              `yaml:"analyzer_max_images" validate:"gte=1"`
	CommuteBaseURL   string            `yaml:"commute_base_url"`
	CommuteAPIKeyEnv string            `yaml:"commute_api_key_env"`
}

// FeatureFlags toggles optional filtering behavior (spec §6
// "enable_quality_filter, require_floorplan").
type FeatureFlags struct {
	EnableQualityFilter bool `yaml:"enable_quality_filter"`
	RequireFloorplan    bool `yaml:"require_floorplan"`
}

// Config is the top-level configuration object the pipeline orchestrator
// depends on.
type Config struct {
	DataDir        string                 `yaml:"data_dir" validate:"required"`
	SearchCriteria models.SearchCriteria  `yaml:"search_criteria" validate:"required"`
	SearchAreas    []string               `yaml:"search_areas" validate:"required,min=1"`
	Dedup          DedupConfig            `yaml:"dedup"`
	Concurrency    ConcurrencyConfig      `yaml:"concurrency"`
	Slack          SlackConfig            `yaml:"slack"`
	External       ExternalServicesConfig `yaml:"external"`
	Features       FeatureFlags           `yaml:"features"`
	DatabaseURLEnv string                 `yaml:"database_url_env"`
}

// Default returns a Config with the spec's stated defaults, awaiting
// overrides from a YAML file.
func Default() Config {
	return Config{
		DataDir:        "./data",
		DatabaseURLEnv: "DATABASE_URL",
		Dedup: DedupConfig{
			MatchThreshold: 0.7,
			MinSignals:     2,
		},
		Concurrency: ConcurrencyConfig{
			ScrapePerPlatform: 1,
			EnrichPerProperty: 5,
			EnrichPerImage:    5,
			AnalyzePerRun:     3,
			EnrichMaxAttempts: 3,
		},
		Slack: SlackConfig{
			TokenEnv: "SLACK_BOT_TOKEN",
		},
		External: ExternalServicesConfig{
			AnalyzerAPIKeyEnv: "ANALYZER_API_KEY",
			AnalyzerMaxImages: 8,
			CommuteAPIKeyEnv:  "COMMUTE_API_KEY",
		},
	}
}

var validate = validator.New()

// Load reads search-criteria.yaml from configDir, expands ${VAR} references
// against the process environment (tarsy's pkg/config/envexpand.go pattern),
// merges it onto Default(), and validates the result.
func Load(configDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(configDir, "search-criteria.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	data = ExpandEnv(data)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.SearchCriteria.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid search criteria: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// ExpandEnv expands ${VAR}/$VAR references in YAML bytes against the process
// environment, identical to tarsy's pkg/config/envexpand.go.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// AnalyzerBreakerTimeout is the circuit breaker's open-state duration
// (spec §7 default 60s), not currently operator-tunable.
const AnalyzerBreakerTimeout = 60 * time.Second
