// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all hlem configuration.
type Config struct {
	Version int `yaml:"version"`

	Mining     MiningConfig     `yaml:"mining"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Output     OutputConfig     `yaml:"output"`
	Cache      CacheConfig      `yaml:"cache"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// MiningConfig holds the mining parameter defaults; flags override these
// per run.
type MiningConfig struct {
	Granularity      string   `yaml:"granularity"` // day | week | month
	Traffic          string   `yaml:"traffic"`     // High | Low | "High,Low"
	Features         []string `yaml:"features"`
	Percentile       float64  `yaml:"percentile"`
	CoThresh         float64  `yaml:"co_thresh"`
	CoPathThresh     float64  `yaml:"co_path_thresh"`
	MinPathFrequency int      `yaml:"min_path_frequency"`
	OnlyMaximalPaths bool     `yaml:"only_maximal_paths"`
	ResourceInfo     bool     `yaml:"resource_info"`
	TypeBased        bool     `yaml:"type_based"`
	SegPercentile    float64  `yaml:"seg_percentile"`
}

// PreprocessConfig controls log preparation before mining.
type PreprocessConfig struct {
	WorkflowPrefix       string   `yaml:"workflow_prefix"`
	RolesAsResources     bool     `yaml:"roles_as_resources"`
	CompletionActivities []string `yaml:"completion_activities"`
	ExcludedResources    []string `yaml:"excluded_resources"`
	OutcomeActivity      string   `yaml:"outcome_activity"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Database string `yaml:"database"` // DuckDB path; empty = in-memory
	Parquet  bool   `yaml:"parquet"`
	Workbook bool   `yaml:"workbook"`
}

// CacheConfig selects the run cache backend.
type CacheConfig struct {
	Backend  string        `yaml:"backend"` // local | redis | s3 | off
	Dir      string        `yaml:"dir"`
	Redis    string        `yaml:"redis"` // address for the redis backend
	S3Bucket string        `yaml:"s3_bucket"`
	S3Region string        `yaml:"s3_region"`
	TTL      time.Duration `yaml:"ttl"`
}

// TelemetryConfig for optional trace export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	hlemDir := filepath.Join(homeDir, ".hlem")

	return &Config{
		Version: 1,
		Mining: MiningConfig{
			Granularity:      "day",
			Traffic:          "High",
			Features:         []string{"exit", "enter", "handover", "workload", "batch", "delay"},
			Percentile:       0.9,
			CoThresh:         0.5,
			CoPathThresh:     0.5,
			MinPathFrequency: 10,
			OnlyMaximalPaths: true,
			ResourceInfo:     true,
			SegPercentile:    0.9,
		},
		Preprocess: PreprocessConfig{
			RolesAsResources: false,
		},
		Output: OutputConfig{
			Dir: "results",
		},
		Cache: CacheConfig{
			Backend: "local",
			Dir:     filepath.Join(hlemDir, "cache"),
			TTL:     24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()

	// Later paths override earlier ones.
	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	m.loadEnv()
	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/hlem/config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".hlem", "config.yaml"))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".hlem.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Mining
	if src.Mining.Granularity != "" {
		m.config.Mining.Granularity = src.Mining.Granularity
	}
	if src.Mining.Traffic != "" {
		m.config.Mining.Traffic = src.Mining.Traffic
	}
	if len(src.Mining.Features) > 0 {
		m.config.Mining.Features = src.Mining.Features
	}
	if src.Mining.Percentile != 0 {
		m.config.Mining.Percentile = src.Mining.Percentile
	}
	if src.Mining.CoThresh != 0 {
		m.config.Mining.CoThresh = src.Mining.CoThresh
	}
	if src.Mining.CoPathThresh != 0 {
		m.config.Mining.CoPathThresh = src.Mining.CoPathThresh
	}
	if src.Mining.MinPathFrequency != 0 {
		m.config.Mining.MinPathFrequency = src.Mining.MinPathFrequency
	}
	if src.Mining.SegPercentile != 0 {
		m.config.Mining.SegPercentile = src.Mining.SegPercentile
	}

	// Preprocess
	if src.Preprocess.WorkflowPrefix != "" {
		m.config.Preprocess.WorkflowPrefix = src.Preprocess.WorkflowPrefix
	}
	if src.Preprocess.RolesAsResources {
		m.config.Preprocess.RolesAsResources = true
	}
	if len(src.Preprocess.CompletionActivities) > 0 {
		m.config.Preprocess.CompletionActivities = src.Preprocess.CompletionActivities
	}
	if len(src.Preprocess.ExcludedResources) > 0 {
		m.config.Preprocess.ExcludedResources = src.Preprocess.ExcludedResources
	}
	if src.Preprocess.OutcomeActivity != "" {
		m.config.Preprocess.OutcomeActivity = src.Preprocess.OutcomeActivity
	}

	// Output
	if src.Output.Dir != "" {
		m.config.Output.Dir = src.Output.Dir
	}
	if src.Output.Database != "" {
		m.config.Output.Database = src.Output.Database
	}
	if src.Output.Parquet {
		m.config.Output.Parquet = true
	}
	if src.Output.Workbook {
		m.config.Output.Workbook = true
	}

	// Cache
	if src.Cache.Backend != "" {
		m.config.Cache.Backend = src.Cache.Backend
	}
	if src.Cache.Dir != "" {
		m.config.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.Redis != "" {
		m.config.Cache.Redis = src.Cache.Redis
	}
	if src.Cache.S3Bucket != "" {
		m.config.Cache.S3Bucket = src.Cache.S3Bucket
	}
	if src.Cache.S3Region != "" {
		m.config.Cache.S3Region = src.Cache.S3Region
	}
	if src.Cache.TTL != 0 {
		m.config.Cache.TTL = src.Cache.TTL
	}

	// Telemetry
	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("HLEM_GRANULARITY"); v != "" {
		m.config.Mining.Granularity = v
	}
	if v := os.Getenv("HLEM_FEATURES"); v != "" {
		m.config.Mining.Features = strings.Split(v, ",")
	}
	if v := os.Getenv("HLEM_PERCENTILE"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			m.config.Mining.Percentile = p
		}
	}
	if v := os.Getenv("HLEM_CACHE_BACKEND"); v != "" {
		m.config.Cache.Backend = v
	}
	if v := os.Getenv("HLEM_REDIS"); v != "" {
		m.config.Cache.Redis = v
	}
	if v := os.Getenv("HLEM_S3_BUCKET"); v != "" {
		m.config.Cache.S3Bucket = v
	}
	if v := os.Getenv("HLEM_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".hlem")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
