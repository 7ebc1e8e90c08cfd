package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that decodes from TOML duration strings
// such as "20s" or "1500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration. All heuristic thresholds
// used by the classifier and link scorer are configuration with defaults,
// not hardcoded invariants.
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Seeds       SeedsConfig      `toml:"seeds"`
	Fetcher     FetcherConfig    `toml:"fetcher"`
	Browser     BrowserConfig    `toml:"browser"`
	Extractor   ExtractorConfig  `toml:"extractor"`
	Classifier  ClassifierConfig `toml:"classifier"`
	Links       LinksConfig      `toml:"links"`
	Output      OutputConfig     `toml:"output"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
}

// SeedsConfig controls seed ledger ingestion.
type SeedsConfig struct {
	Dir         string `toml:"dir"`          // Directory of seed text files
	ExcludeFile string `toml:"exclude_file"` // Summary file name always excluded from ingestion
}

// FetcherConfig contains HTTP tier settings.
type FetcherConfig struct {
	UserAgent      string   `toml:"user_agent"`      // Desktop browser user agent
	RequestTimeout Duration `toml:"request_timeout"` // Per-attempt HTTP timeout
	MaxBodySize    int      `toml:"max_body_size"`   // Maximum response body size in bytes
	RequestDelay   Duration `toml:"request_delay"`   // Politeness delay between requests to the same host
}

// BrowserConfig contains the headless browser tier settings.
type BrowserConfig struct {
	Enabled           bool     `toml:"enabled"`            // Enable the browser fallback tier
	Headless          bool     `toml:"headless"`           // Run Chrome headless
	DisableGPU        bool     `toml:"disable_gpu"`        //
	NoSandbox         bool     `toml:"no_sandbox"`         //
	NavigationTimeout Duration `toml:"navigation_timeout"` // Max time for a single page load
	SettleTime        Duration `toml:"settle_time"`        // Wait after load for the DOM to settle
}

// ExtractorConfig contains main-content extraction settings.
type ExtractorConfig struct {
	MinCandidateChars int `toml:"min_candidate_chars"` // Minimum rune length for a candidate content node
}

// ClassifierConfig holds the directory-page heuristic thresholds. Values are
// empirically tuned; boundary semantics are exercised by tests.
type ClassifierConfig struct {
	ShortTextChars       int     `toml:"short_text_chars"`        // Body shorter than this is "short"
	ShortTextMinLinks    int     `toml:"short_text_min_links"`    // Link count that makes a short page a directory
	ShortTextLinkDensity float64 `toml:"short_text_link_density"` // Link density that makes a short page a directory
	TinyTextChars        int     `toml:"tiny_text_chars"`         // Body shorter than this is "tiny"
	TinyTextMinLinks     int     `toml:"tiny_text_min_links"`     // Link count that makes a tiny page a directory
	PaginationMinLinks   int     `toml:"pagination_min_links"`    // Link count for the pagination-vocabulary rule
}

// LinksConfig controls link following out of directory pages.
type LinksConfig struct {
	MaxFollows int `toml:"max_follows"` // Maximum child links fetched per directory page
}

// OutputConfig controls the output ledger.
type OutputConfig struct {
	Dir             string `toml:"dir"`               // Root output directory
	AuditLog        string `toml:"audit_log"`         // Audit log file name (JSONL)
	ArticleLog      string `toml:"article_log"`       // Article log file name (JSONL)
	ArticlesDir     string `toml:"articles_dir"`      // Per-article text file directory name
	MinArticleChars int    `toml:"min_article_chars"` // Minimum body rune length for an article record
	TitleMaxChars   int    `toml:"title_max_chars"`   // Title truncation length in file names
}

// StorageConfig holds the visited-set database settings.
type StorageConfig struct {
	Path           string `toml:"path"`             // Badger database directory
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete the visited set on startup for a fresh run
}

// LoggingConfig controls the arbor logger.
type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the configuration defaults. Threshold values follow
// the tuned constants of the original corpus runs.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Seeds: SeedsConfig{
			Dir:         "seeds",
			ExcludeFile: "summary.txt",
		},
		Fetcher: FetcherConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: Duration(20 * time.Second),
			MaxBodySize:    10 * 1024 * 1024,
			RequestDelay:   Duration(1 * time.Second),
		},
		Browser: BrowserConfig{
			Enabled:           true,
			Headless:          true,
			DisableGPU:        true,
			NoSandbox:         false,
			NavigationTimeout: Duration(45 * time.Second),
			SettleTime:        Duration(3 * time.Second),
		},
		Extractor: ExtractorConfig{
			MinCandidateChars: 200,
		},
		Classifier: ClassifierConfig{
			ShortTextChars:       300,
			ShortTextMinLinks:    60,
			ShortTextLinkDensity: 0.35,
			TinyTextChars:        180,
			TinyTextMinLinks:     20,
			PaginationMinLinks:   50,
		},
		Links: LinksConfig{
			MaxFollows: 3,
		},
		Output: OutputConfig{
			Dir:             "corpus",
			AuditLog:        "audit.jsonl",
			ArticleLog:      "articles.jsonl",
			ArticlesDir:     "articles_txt",
			MinArticleChars: 350,
			TitleMaxChars:   60,
		},
		Storage: StorageConfig{
			Path:           "data/visited",
			ResetOnStartup: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration by layering: defaults, then each config
// file in order (later files override earlier ones), then environment
// variables. Missing files are an error; an empty path list returns
// defaults plus environment overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	clampConfig(config)

	return config, nil
}

// applyEnvOverrides applies HARVEST_* environment variables on top of the
// loaded configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("HARVEST_SEEDS_DIR"); v != "" {
		config.Seeds.Dir = v
	}
	if v := os.Getenv("HARVEST_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}
	if v := os.Getenv("HARVEST_STORAGE_PATH"); v != "" {
		config.Storage.Path = v
	}
	if v := os.Getenv("HARVEST_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("HARVEST_BROWSER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			config.Browser.Enabled = enabled
		}
	}
}

// clampConfig keeps obviously broken values out of the pipeline rather than
// failing the run over a typo in a threshold.
func clampConfig(config *Config) {
	if config.Fetcher.RequestTimeout <= 0 {
		config.Fetcher.RequestTimeout = Duration(20 * time.Second)
	}
	if config.Fetcher.MaxBodySize <= 0 {
		config.Fetcher.MaxBodySize = 10 * 1024 * 1024
	}
	if config.Links.MaxFollows < 0 {
		config.Links.MaxFollows = 0
	}
	if config.Output.MinArticleChars <= 0 {
		config.Output.MinArticleChars = 350
	}
	if config.Extractor.MinCandidateChars <= 0 {
		config.Extractor.MinCandidateChars = 200
	}
	if config.Output.TitleMaxChars <= 0 {
		config.Output.TitleMaxChars = 60
	}
}
