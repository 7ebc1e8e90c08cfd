// -----------------------------------------------------------------------
// Harvest - web article corpus harvester
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/harvest/internal/classify"
	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/extract"
	"github.com/ternarybob/harvest/internal/fetcher"
	"github.com/ternarybob/harvest/internal/ledger"
	"github.com/ternarybob/harvest/internal/links"
	"github.com/ternarybob/harvest/internal/pipeline"
	"github.com/ternarybob/harvest/internal/seeds"
	"github.com/ternarybob/harvest/internal/storage"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	seedsDir     = flag.String("seeds", "", "Seed directory (overrides config)")
	outputDir    = flag.String("output", "", "Output directory (overrides config)")
	resetVisited = flag.Bool("reset", false, "Reset the visited set before the run")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Harvest version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence:
	// 1. Load config (defaults -> files -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner

	if len(configFiles) == 0 {
		if _, err := os.Stat("harvest.toml"); err == nil {
			configFiles = append(configFiles, "harvest.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *seedsDir != "" {
		config.Seeds.Dir = *seedsDir
	}
	if *outputDir != "" {
		config.Output.Dir = *outputDir
	}
	if *resetVisited {
		config.Storage.ResetOnStartup = true
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("seeds_dir", config.Seeds.Dir).
		Str("output_dir", config.Output.Dir).
		Str("log_level", config.Logging.Level).
		Bool("browser_enabled", config.Browser.Enabled).
		Msg("Configuration loaded")

	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

func run(config *common.Config, logger arbor.ILogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := seeds.NewReader(config.Seeds.ExcludeFile, logger)
	entries, err := reader.ReadDir(config.Seeds.Dir)
	if err != nil {
		return fmt.Errorf("failed to read seeds: %w", err)
	}

	visited, err := storage.NewVisitedStore(&config.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open visited store: %w", err)
	}
	defer visited.Close()

	writer, err := ledger.NewWriter(config.Output, logger)
	if err != nil {
		return fmt.Errorf("failed to open output ledger: %w", err)
	}
	defer writer.Close()

	strategies := []fetcher.Strategy{
		fetcher.NewHTTPStrategy(config.Fetcher, nil, logger),
	}
	var browser *fetcher.BrowserStrategy
	if config.Browser.Enabled {
		browser = fetcher.NewBrowserStrategy(config.Browser, config.Fetcher.UserAgent, logger)
		strategies = append(strategies, browser)
		defer browser.Shutdown()
	}
	tiered := fetcher.NewTieredFetcher(logger, strategies...)

	p := pipeline.New(
		config,
		tiered,
		fetcher.NewRateLimiter(config.Fetcher.RequestDelay.Std()),
		extract.NewExtractor(config.Extractor.MinCandidateChars, logger),
		classify.NewClassifier(config.Classifier),
		links.NewScorer(config.Links.MaxFollows, logger),
		writer,
		visited,
		logger,
	)

	stats, err := p.Run(ctx, entries)
	if err != nil {
		return err
	}

	logger.Info().
		Int("attempted", stats.Attempted).
		Int("articles", stats.Articles).
		Int("directories", stats.Directories).
		Int("followed", stats.Followed).
		Int("failures", stats.Failures).
		Int("skipped", stats.Skipped).
		Msg("Harvest complete")

	return nil
}
