// Command pipeline is the CLI entrypoint wiring every package into a
// runnable binary: run the full scrape-to-notify pass, serve the read-only
// API, or trigger a reanalysis sweep. Command registration follows
// codenerd's cmd/nerd root/subcommand idiom (one cobra.Command per verb,
// persistent flags on the root); startup sequencing (env load, config load,
// DB connect) follows tarsy's cmd/tarsy/main.go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MarcelCutts/home-finder-sub001/internal/adapters"
	"github.com/MarcelCutts/home-finder-sub001/internal/analyzer"
	"github.com/MarcelCutts/home-finder-sub001/internal/api"
	"github.com/MarcelCutts/home-finder-sub001/internal/commute"
	"github.com/MarcelCutts/home-finder-sub001/internal/config"
	"github.com/MarcelCutts/home-finder-sub001/internal/criteria"
	"github.com/MarcelCutts/home-finder-sub001/internal/database"
	"github.com/MarcelCutts/home-finder-sub001/internal/enrich"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
	"github.com/MarcelCutts/home-finder-sub001/internal/notify"
	"github.com/MarcelCutts/home-finder-sub001/internal/pipeline"
	"github.com/MarcelCutts/home-finder-sub001/internal/scrape"
	"github.com/MarcelCutts/home-finder-sub001/internal/store"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Rental listing aggregation, enrichment, and notification pipeline",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full pipeline pass: scrape, dedup, enrich, analyze, notify",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.dbClient.Close()

		run, err := deps.orchestrator.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("pipeline run: %w", err)
		}
		slog.Info("run_complete", "run_id", run.RunUUID, "status", run.Status)
		return nil
	},
}

var httpAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only health/status/property API",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.dbClient.Close()

		srv := api.NewServer(deps.store)
		slog.Info("api_listening", "addr", httpAddr)
		return srv.Run(httpAddr)
	},
}

var resetFailedCmd = &cobra.Command{
	Use:   "reset-failed",
	Short: "Reset analyses stuck in-flight back to pending_analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.dbClient.Close()

		n, err := deps.store.ResetFailedAnalyses(cmd.Context())
		if err != nil {
			return fmt.Errorf("reset failed analyses: %w", err)
		}
		slog.Info("reset_failed_analyses", "count", n)
		return nil
	},
}

var reanalyzeOutcodes []string
var reanalyzeAll bool

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Queue properties for reanalysis by outcode, or all properties",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.dbClient.Close()

		n, err := deps.store.RequestReanalysisByFilter(cmd.Context(), reanalyzeOutcodes, reanalyzeAll)
		if err != nil {
			return fmt.Errorf("request reanalysis: %w", err)
		}
		slog.Info("reanalysis_requested", "count", n, "outcodes", reanalyzeOutcodes, "all", reanalyzeAll)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	serveCmd.Flags().StringVar(&httpAddr, "addr", getEnv("HTTP_ADDR", ":8080"), "Address for the API server to listen on")
	reanalyzeCmd.Flags().StringSliceVar(&reanalyzeOutcodes, "outcode", nil, "Outcodes to requeue for reanalysis")
	reanalyzeCmd.Flags().BoolVar(&reanalyzeAll, "all", false, "Requeue every property for reanalysis")

	rootCmd.AddCommand(runCmd, serveCmd, resetFailedCmd, reanalyzeCmd)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// deps holds every constructed dependency a subcommand needs, so bootstrap
// can be shared across run/serve/reset-failed/reanalyze.
type deps struct {
	store        store.Store
	orchestrator *pipeline.Orchestrator
	dbClient     *database.Client
}

// bootstrap loads .env and search-criteria.yaml, opens the database, and
// wires every package's concrete implementation behind the interfaces the
// pipeline depends on.
func bootstrap(ctx context.Context) (*deps, error) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("dotenv_load_failed", "path", envPath, "error", err)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	st := store.NewPostgresStore(dbClient.DB())

	scrapeAdapters, fetchCapabilities := buildScrapeAdapters(cfg)
	scraper := scrape.NewOrchestrator(scrapeAdapters, cfg.SearchAreas, scrape.Config{
		MaxConcurrentPerPlatform: cfg.Concurrency.ScrapePerPlatform,
	})

	criteriaGate := criteria.NewCriteriaGate(cfg.SearchCriteria)
	locationGate := criteria.NewLocationGate(cfg.SearchAreas, false)

	enricher := enrich.New(
		adapters.NewMultiCapability(fetchCapabilities),
		adapters.NewImageDownloader(),
		nil, // no separate image-manifest store yet; disk-cache check alone gates re-download
		enrich.Config{
			DataDir:                 cfg.DataDir,
			MaxConcurrentProperties: cfg.Concurrency.EnrichPerProperty,
			MaxConcurrentImages:     cfg.Concurrency.EnrichPerImage,
			InterImageDelay:         enrich.DefaultConfig.InterImageDelay,
			MaxAttempts:             cfg.Concurrency.EnrichMaxAttempts,
		},
	)

	analyzerAdapter := adapters.NewAnalyzerAdapter(cfg.External.AnalyzerBaseURL, os.Getenv(cfg.External.AnalyzerAPIKeyEnv), cfg.External.AnalyzerMaxImages)
	analyzerDriver := analyzer.NewDriver(analyzerAdapter, analyzer.Config{
		MaxConcurrent:               int(cfg.Concurrency.AnalyzePerRun),
		InterCallDelay:              analyzer.DefaultConfig.InterCallDelay,
		BreakerTimeout:              config.AnalyzerBreakerTimeout,
		ConsecutiveFailureThreshold: analyzer.DefaultConfig.ConsecutiveFailureThreshold,
	})

	commuteAdapter := adapters.NewCommuteAdapter(cfg.External.CommuteBaseURL, os.Getenv(cfg.External.CommuteAPIKeyEnv))
	commuteCache := commute.NewCache(commuteAdapter)

	var notifier notify.Notifier
	if cfg.Slack.Enabled {
		notifier = notify.NewClient(os.Getenv(cfg.Slack.TokenEnv), cfg.Slack.Channel)
	} else {
		notifier = noopNotifier{}
	}

	orch := pipeline.New(st, scraper, criteriaGate, locationGate, enricher, analyzerDriver, commuteCache, notifier, cfg.SearchCriteria)

	return &deps{store: st, orchestrator: orch, dbClient: dbClient}, nil
}

// buildScrapeAdapters constructs one ScrapeAdapter per configured platform
// base URL, returning both the scrape.Adapter slice (for the scrape
// orchestrator) and an enrich.Capability map keyed by source (for the
// enrich multi-capability router), since the same adapter satisfies both
// boundaries.
func buildScrapeAdapters(cfg *config.Config) ([]scrape.Adapter, map[models.PropertySource]enrich.Capability) {
	sources := []models.PropertySource{models.SourceRightmove, models.SourceZoopla, models.SourceOpenRent, models.SourceOnTheMarket}

	var scrapeAdapters []scrape.Adapter
	fetchCapabilities := make(map[models.PropertySource]enrich.Capability)
	for _, source := range sources {
		baseURL, ok := cfg.External.ScraperBaseURLs[string(source)]
		if !ok || baseURL == "" {
			continue
		}
		a := adapters.NewScrapeAdapter(source, baseURL)
		scrapeAdapters = append(scrapeAdapters, a)
		fetchCapabilities[source] = a
	}
	return scrapeAdapters, fetchCapabilities
}

// noopNotifier discards notifications when Slack delivery is disabled
// (local/dev runs, spec §6 "slack.enabled").
type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, property models.TrackedProperty) error { return nil }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command_failed", "error", err)
		os.Exit(1)
	}
}
