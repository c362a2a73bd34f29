package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Site.DirectoryURL(); got != "https://www.ndv.ru/novostrojki" {
		t.Errorf("DirectoryURL() = %q", got)
	}
	if got := cfg.Site.FlatsURL(); got != "https://www.ndv.ru/novostrojki/flats" {
		t.Errorf("FlatsURL() = %q", got)
	}
	if cfg.Output.Path != "ndv_ru.json" {
		t.Errorf("Output.Path = %q, want ndv_ru.json", cfg.Output.Path)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "overrides keep unset defaults",
			yaml: "crawl:\n  workers: 8\nfetcher:\n  delay: 500ms\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Crawl.Workers != 8 {
					t.Errorf("Workers = %d, want 8", cfg.Crawl.Workers)
				}
				if cfg.Fetcher.Delay != 500*time.Millisecond {
					t.Errorf("Delay = %v, want 500ms", cfg.Fetcher.Delay)
				}
				if cfg.Site.BaseURL != "https://www.ndv.ru" {
					t.Errorf("BaseURL = %q, want default", cfg.Site.BaseURL)
				}
			},
		},
		{
			name: "filters",
			yaml: "filters:\n  types: [parking]\n  min_price: 100\n  max_price: 200\n",
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Filters.Types) != 1 || cfg.Filters.Types[0] != "parking" {
					t.Errorf("Types = %v", cfg.Filters.Types)
				}
			},
		},
		{name: "unknown engine", yaml: "fetcher:\n  engine: curl\n", wantErr: true},
		{name: "zero workers", yaml: "crawl:\n  workers: 0\n", wantErr: true},
		{name: "inverted price range", yaml: "filters:\n  min_price: 10\n  max_price: 5\n", wantErr: true},
		{name: "malformed yaml", yaml: "crawl: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadConfig(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() expected error for missing file")
	}
}
