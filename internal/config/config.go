// Package config handles configuration loading for newsquant.
// It supports YAML config files with environment variable overrides and
// an optional .env file for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	Market  MarketConfig  `mapstructure:"market"  yaml:"market"`
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	Export  ExportConfig  `mapstructure:"export"  yaml:"export"`
	HTTP    HTTPConfig    `mapstructure:"http"    yaml:"http"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// NewsConfig holds news provider settings.
type NewsConfig struct {
	Source     string         `mapstructure:"source"     yaml:"source"` // "newsapi" or "rss"
	APIKey     string         `mapstructure:"api_key"    yaml:"api_key"`
	Endpoint   string         `mapstructure:"endpoint"   yaml:"endpoint"`
	Language   string         `mapstructure:"language"   yaml:"language"`
	PageSize   int            `mapstructure:"page_size"  yaml:"page_size"` // 0 = provider default
	Days       int            `mapstructure:"days"       yaml:"days"`      // default lookback
	Categories []string       `mapstructure:"categories" yaml:"categories"`
	RSSFeeds   []string       `mapstructure:"rss_feeds"  yaml:"rss_feeds"`
	FullText   FullTextConfig `mapstructure:"fulltext"   yaml:"fulltext"`
}

// FullTextConfig controls article body extraction.
type FullTextConfig struct {
	Enabled     bool    `mapstructure:"enabled"      yaml:"enabled"`
	Concurrency int     `mapstructure:"concurrency"  yaml:"concurrency"`  // 1 = sequential
	RatePerSec  float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec"` // 0 = unlimited
}

// MarketConfig holds market-data provider settings.
type MarketConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Period   string `mapstructure:"period"   yaml:"period"`   // e.g., "1mo"
	Interval string `mapstructure:"interval" yaml:"interval"` // e.g., "1d"
}

// DataConfig holds the on-disk layout.
type DataConfig struct {
	RawDir       string `mapstructure:"raw_dir"       yaml:"raw_dir"`
	ProcessedDir string `mapstructure:"processed_dir" yaml:"processed_dir"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Formats []string `mapstructure:"formats" yaml:"formats"` // "csv", "spreadsheet"
}

// HTTPConfig holds outbound HTTP settings.
type HTTPConfig struct {
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the per-request timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSec) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// envPrefix is the prefix for environment overrides, e.g., NEWSQUANT_MARKET_PERIOD.
const envPrefix = "NEWSQUANT"

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.newsquant/config.yaml (home directory)
//  3. /etc/newsquant/config.yaml (system)
//
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".newsquant"))
	v.AddConfigPath("/etc/newsquant")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// News defaults
	v.SetDefault("news.source", "newsapi")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.endpoint", "https://newsapi.org/v2/everything")
	v.SetDefault("news.language", "en")
	v.SetDefault("news.page_size", 0)
	v.SetDefault("news.days", 30)
	v.SetDefault("news.categories", []string{})
	v.SetDefault("news.rss_feeds", []string{
		"https://finance.yahoo.com/news/rssindex",
		"https://feeds.marketwatch.com/marketwatch/topstories/",
		"https://www.cnbc.com/id/100003114/device/rss/rss.html",
	})
	v.SetDefault("news.fulltext.enabled", false)
	v.SetDefault("news.fulltext.concurrency", 1)
	v.SetDefault("news.fulltext.rate_per_sec", 2.0)

	// Market defaults
	v.SetDefault("market.endpoint", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("market.period", "1mo")
	v.SetDefault("market.interval", "1d")

	// Data layout
	v.SetDefault("data.raw_dir", "data/raw")
	v.SetDefault("data.processed_dir", "data/processed")

	v.SetDefault("export.formats", []string{"csv", "spreadsheet"})

	v.SetDefault("http.timeout_sec", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// NewsAPIKeyEnv is the conventional variable holding the NewsAPI credential.
const NewsAPIKeyEnv = "NEWS_API_KEY"

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(envPrefix + "_NEWS_API_KEY"); key != "" {
		cfg.News.APIKey = key
	} else if key := os.Getenv(NewsAPIKeyEnv); key != "" {
		cfg.News.APIKey = key
	}
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
