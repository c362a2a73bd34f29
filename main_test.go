package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"ndv-scraper/crawler"
)

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	logger := log.New(io.Discard)
	dir := t.TempDir()

	cfg := loadConfig(filepath.Join(dir, "missing.yaml"), logger)
	if cfg.Crawl.Workers != 4 {
		t.Errorf("Workers = %d, want default 4", cfg.Crawl.Workers)
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("crawl: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg = loadConfig(broken, logger)
	if cfg.Output.Path != "ndv_ru.json" {
		t.Errorf("Output.Path = %q, want default", cfg.Output.Path)
	}

	good := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(good, []byte("crawl:\n  workers: 9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg = loadConfig(good, logger)
	if cfg.Crawl.Workers != 9 {
		t.Errorf("Workers = %d, want 9", cfg.Crawl.Workers)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := loadConfig("does-not-exist.yaml", log.New(io.Discard))
	cli := &CLI{Output: "out/ndv.json", Workers: 2, Engine: "rod", LogLevel: "debug"}

	if err := applyFlags(cfg, cli); err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}
	if cfg.Output.Path != "out/ndv.json" || cfg.Crawl.Workers != 2 || cfg.Fetcher.Engine != "rod" || cfg.Log.Level != "debug" {
		t.Errorf("flags not applied: %+v", cfg)
	}

	if err := applyFlags(cfg, &CLI{Engine: "curl"}); err == nil {
		t.Error("applyFlags() accepted an unknown engine")
	}
	if err := applyFlags(cfg, &CLI{Engine: "colly", Workers: -1}); err == nil {
		t.Error("applyFlags() accepted negative workers")
	}
}

func TestKinds(t *testing.T) {
	got, err := kinds(nil)
	if err != nil || len(got) != 2 {
		t.Errorf("kinds(nil) = %v, %v; want all kinds", got, err)
	}

	got, err = kinds([]string{"parking"})
	if err != nil || len(got) != 1 || got[0] != crawler.KindParking {
		t.Errorf("kinds(parking) = %v, %v", got, err)
	}

	if _, err := kinds([]string{"garages"}); err == nil {
		t.Error("kinds() accepted an unknown kind")
	}
}
