package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything a crawl run needs
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Output   OutputConfig   `yaml:"output"`
	Filters  FilterConfig   `yaml:"filters"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// SiteConfig points the crawler at the developer's website
type SiteConfig struct {
	BaseURL       string `yaml:"base_url"`
	DirectoryPath string `yaml:"directory_path"`
	FlatsPath     string `yaml:"flats_path"`
	ParkingSuffix string `yaml:"parking_suffix"`
}

// DirectoryURL is the building-complex directory seed
func (s SiteConfig) DirectoryURL() string { return s.BaseURL + s.DirectoryPath }

// FlatsURL is the flat listing seed
func (s SiteConfig) FlatsURL() string { return s.BaseURL + s.FlatsPath }

// FetcherConfig selects and tunes the page fetcher
type FetcherConfig struct {
	Engine    string        `yaml:"engine"` // "colly" or "rod"
	UserAgent string        `yaml:"user_agent"`
	Delay     time.Duration `yaml:"delay"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CrawlConfig tunes the crawl walk
type CrawlConfig struct {
	// Workers bounds the number of parking detail pages fetched at once
	Workers int `yaml:"workers"`
	// RefetchFirstPage fetches "?page=1" even though the seed page is the same page
	RefetchFirstPage bool `yaml:"refetch_first_page"`
}

// OutputConfig describes the JSON dump
type OutputConfig struct {
	Path string `yaml:"path"`
}

// FilterConfig represents the filter criteria applied before output
type FilterConfig struct {
	Types    []string `yaml:"types"`
	MinPrice int64    `yaml:"min_price"`
	MaxPrice int64    `yaml:"max_price"`
}

// DatabaseConfig names the table records are copied into
type DatabaseConfig struct {
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
}

// LogConfig sets the logger level
type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Site.BaseURL = "https://www.ndv.ru"
	cfg.Site.DirectoryPath = "/novostrojki"
	cfg.Site.FlatsPath = "/novostrojki/flats"
	cfg.Site.ParkingSuffix = "/parking"
	cfg.Fetcher.Engine = "colly"
	cfg.Fetcher.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	cfg.Fetcher.Timeout = 60 * time.Second
	cfg.Crawl.Workers = 4
	cfg.Output.Path = "ndv_ru.json"
	cfg.Database.Schema = "public"
	cfg.Database.Table = "ndv_records"
	cfg.Log.Level = "info"
	return cfg
}

// Validate rejects settings the crawler cannot run with
func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	switch c.Fetcher.Engine {
	case "colly", "rod":
	default:
		return fmt.Errorf("unknown fetcher.engine %q (want colly or rod)", c.Fetcher.Engine)
	}
	if c.Crawl.Workers < 1 {
		return fmt.Errorf("crawl.workers must be positive, got %d", c.Crawl.Workers)
	}
	if c.Filters.MaxPrice > 0 && c.Filters.MaxPrice < c.Filters.MinPrice {
		return fmt.Errorf("filters.max_price %d is below filters.min_price %d", c.Filters.MaxPrice, c.Filters.MinPrice)
	}
	return nil
}
