// Package config handles configuration loading for tickersent.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	Scrape   ScrapeConfig   `mapstructure:"scrape"   yaml:"scrape" json:"scrape"`
	RSS      RSSConfig      `mapstructure:"rss"      yaml:"rss" json:"rss"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Scorer   ScorerConfig   `mapstructure:"scorer"   yaml:"scorer" json:"scorer"`
	Export   ExportConfig   `mapstructure:"export"   yaml:"export" json:"export"`
	API      APIConfig      `mapstructure:"api"      yaml:"api" json:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging" json:"logging"`

	file string // config file read, empty when only defaults/env apply
}

// ScrapeConfig holds FinViz scraping settings.
type ScrapeConfig struct {
	QuoteURL       string `mapstructure:"quote_url"        yaml:"quote_url" json:"quote_url"` // ticker is appended
	NewsURL        string `mapstructure:"news_url"         yaml:"news_url" json:"news_url"`
	ScreenerURL    string `mapstructure:"screener_url"     yaml:"screener_url" json:"screener_url"`
	ScreenMaxPages int    `mapstructure:"screen_max_pages" yaml:"screen_max_pages" json:"screen_max_pages"`
	UserAgent      string `mapstructure:"user_agent"       yaml:"user_agent" json:"user_agent"`
	TimeoutSec     int    `mapstructure:"timeout_sec"      yaml:"timeout_sec" json:"timeout_sec"`
	CacheTTL       int    `mapstructure:"cache_ttl"        yaml:"cache_ttl" json:"cache_ttl"` // seconds, 0 disables
	CleanupSec     int    `mapstructure:"cleanup_sec"      yaml:"cleanup_sec" json:"cleanup_sec"` // cache sweep interval for serve
}

// RSSConfig holds the RSS supplier settings.
type RSSConfig struct {
	URLTemplate string `mapstructure:"url_template" yaml:"url_template" json:"url_template"` // "{ticker}" is substituted
}

// PipelineConfig holds normalization and aggregation settings.
type PipelineConfig struct {
	Supplier string   `mapstructure:"supplier" yaml:"supplier" json:"supplier"` // "finviz", "rss", "csv"
	Input    string   `mapstructure:"input"    yaml:"input" json:"input"`    // CSV path for the csv supplier
	Tickers  []string `mapstructure:"tickers"  yaml:"tickers" json:"tickers"`
	Screen   []string `mapstructure:"screen"   yaml:"screen" json:"screen"` // FinViz screener filters, e.g. cap_large
	Timezone string   `mapstructure:"timezone" yaml:"timezone" json:"timezone"` // resolves "Today"/"Yesterday"
	Workers  int      `mapstructure:"workers"  yaml:"workers" json:"workers"`
}

// ScorerConfig selects the sentiment scorer.
type ScorerConfig struct {
	Name     string    `mapstructure:"name"      yaml:"name" json:"name"`           // "lexicon" or "llm"
	CacheTTL int       `mapstructure:"cache_ttl" yaml:"cache_ttl" json:"cache_ttl"` // seconds, 0 disables
	LLM      LLMConfig `mapstructure:"llm"       yaml:"llm" json:"llm"`
}

// LLMConfig configures the "llm" scorer's OpenAI-compatible endpoint.
type LLMConfig struct {
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url" json:"base_url"`
	Model      string `mapstructure:"model"       yaml:"model" json:"model"`
	APIKey     string `mapstructure:"api_key"     yaml:"-" json:"-"` // env only: TICKERSENT_SCORER_LLM_API_KEY
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "table", "csv", "json", "parquet", "sqlite"
	Path   string `mapstructure:"path"   yaml:"path" json:"path"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host" json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level" json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Location resolves the pipeline timezone. An empty value or "Local" means
// the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Pipeline.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("pipeline.timezone %q: %w", tz, err)
	}
	return loc, nil
}

// File returns the path of the config file that was read, if any.
func (c *Config) File() string { return c.file }

// WriteYAML writes the effective configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.tickersent/config.yaml (home directory)
//  3. /etc/tickersent/config.yaml (system)
//
// Environment variables override config file values.
// Format: TICKERSENT_<SECTION>_<KEY>, e.g., TICKERSENT_PIPELINE_WORKERS
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".tickersent"))
	v.AddConfigPath("/etc/tickersent")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TICKERSENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()
	cfg.Pipeline.Tickers = splitList(cfg.Pipeline.Tickers)
	cfg.Pipeline.Screen = splitList(cfg.Pipeline.Screen)
	if cfg.Pipeline.Workers < 1 {
		cfg.Pipeline.Workers = 1
	}
	return &cfg, nil
}

// splitList flattens comma-separated entries, which is how list values
// arrive from environment variables.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Scrape defaults
	v.SetDefault("scrape.quote_url", "https://finviz.com/quote.ashx?t=")
	v.SetDefault("scrape.news_url", "https://finviz.com/news.ashx?v=3")
	v.SetDefault("scrape.screener_url", "https://finviz.com/screener.ashx?v=111")
	v.SetDefault("scrape.screen_max_pages", 10)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0")
	v.SetDefault("scrape.timeout_sec", 30)
	v.SetDefault("scrape.cache_ttl", 600) // 10 minutes
	v.SetDefault("scrape.cleanup_sec", 300)

	// RSS defaults
	v.SetDefault("rss.url_template", "https://feeds.finance.yahoo.com/rss/2.0/headline?s={ticker}&region=US&lang=en-US")

	// Pipeline defaults
	v.SetDefault("pipeline.supplier", "finviz")
	v.SetDefault("pipeline.input", "")
	v.SetDefault("pipeline.tickers", []string{})
	v.SetDefault("pipeline.screen", []string{})
	v.SetDefault("pipeline.timezone", "Local")
	v.SetDefault("pipeline.workers", 4)

	// Scorer defaults
	v.SetDefault("scorer.name", "lexicon")
	v.SetDefault("scorer.cache_ttl", 0)
	v.SetDefault("scorer.llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("scorer.llm.model", "qwen2.5:7b")
	v.SetDefault("scorer.llm.api_key", "")
	v.SetDefault("scorer.llm.timeout_sec", 30)

	// Export defaults
	v.SetDefault("export.format", "table")
	v.SetDefault("export.path", "")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
