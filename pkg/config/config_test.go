package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Mining.Granularity != "day" {
		t.Errorf("granularity = %q", cfg.Mining.Granularity)
	}
	if cfg.Mining.Traffic != "High" {
		t.Errorf("traffic = %q", cfg.Mining.Traffic)
	}
	if len(cfg.Mining.Features) != 6 {
		t.Errorf("features = %v", cfg.Mining.Features)
	}
	if cfg.Mining.Percentile != 0.9 || cfg.Mining.CoThresh != 0.5 {
		t.Errorf("thresholds = %v / %v", cfg.Mining.Percentile, cfg.Mining.CoThresh)
	}
	if cfg.Mining.MinPathFrequency != 10 || !cfg.Mining.OnlyMaximalPaths {
		t.Errorf("path filters = %d / %v", cfg.Mining.MinPathFrequency, cfg.Mining.OnlyMaximalPaths)
	}
	if cfg.Cache.Backend != "local" || cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry enabled by default")
	}
}

func TestLoadFileMergesNonZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
mining:
  granularity: week
  percentile: 0.95
cache:
  backend: redis
  redis: localhost:6379
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.loadFile(path); err != nil {
		t.Fatalf("loadFile: %v", err)
	}

	cfg := m.Get()
	if cfg.Mining.Granularity != "week" {
		t.Errorf("granularity = %q", cfg.Mining.Granularity)
	}
	if cfg.Mining.Percentile != 0.95 {
		t.Errorf("percentile = %v", cfg.Mining.Percentile)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	// Untouched fields keep their defaults.
	if cfg.Mining.Traffic != "High" {
		t.Errorf("traffic overwritten to %q", cfg.Mining.Traffic)
	}
	if cfg.Mining.CoThresh != 0.5 {
		t.Errorf("co_thresh overwritten to %v", cfg.Mining.CoThresh)
	}
}

func TestLoadFileBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mining: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewManager().loadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("HLEM_GRANULARITY", "month")
	t.Setenv("HLEM_FEATURES", "exit,enter")
	t.Setenv("HLEM_PERCENTILE", "0.8")
	t.Setenv("HLEM_CACHE_BACKEND", "s3")
	t.Setenv("HLEM_S3_BUCKET", "results-bucket")
	t.Setenv("HLEM_OTLP_ENDPOINT", "collector:4317")

	m := NewManager()
	m.loadEnv()

	cfg := m.Get()
	if cfg.Mining.Granularity != "month" {
		t.Errorf("granularity = %q", cfg.Mining.Granularity)
	}
	if len(cfg.Mining.Features) != 2 || cfg.Mining.Features[0] != "exit" {
		t.Errorf("features = %v", cfg.Mining.Features)
	}
	if cfg.Mining.Percentile != 0.8 {
		t.Errorf("percentile = %v", cfg.Mining.Percentile)
	}
	if cfg.Cache.Backend != "s3" || cfg.Cache.S3Bucket != "results-bucket" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "collector:4317" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoadEnvIgnoresBadPercentile(t *testing.T) {
	t.Setenv("HLEM_PERCENTILE", "not-a-number")
	m := NewManager()
	m.loadEnv()
	if m.Get().Mining.Percentile != 0.9 {
		t.Errorf("percentile = %v, want default", m.Get().Mining.Percentile)
	}
}
