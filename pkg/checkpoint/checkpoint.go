// Package checkpoint caches mining-run results keyed by log path and
// configuration, replacing the original's ad-hoc pickle files. Backends
// store runs locally, in Redis, or in S3.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pippi2802/hlem-framework/pkg/hlem"
)

// PathRecord is the cacheable form of one aggregated path row.
type PathRecord struct {
	Path             string   `json:"path"`
	Length           int      `json:"length"`
	Frequency        int      `json:"frequency"`
	Participating    []uint32 `json:"participating"`
	NonParticipating []uint32 `json:"non_participating"`
}

// Run is one cached mining run.
type Run struct {
	ID         string    `json:"id"`
	LogPath    string    `json:"log_path"`
	ConfigHash string    `json:"config_hash"`
	CreatedAt  time.Time `json:"created_at"`
	HLECount   int       `json:"hle_count"`
	Paths      []PathRecord `json:"paths"`
}

// NewRun packages an aggregated result table for caching.
func NewRun(logPath, configHash string, hleCount int, table hlem.Table) *Run {
	run := &Run{
		ID:         uuid.NewString(),
		LogPath:    logPath,
		ConfigHash: configHash,
		CreatedAt:  time.Now().UTC(),
		HLECount:   hleCount,
	}
	for _, r := range table.Rows {
		run.Paths = append(run.Paths, PathRecord{
			Path:             string(r.Path.Key()),
			Length:           r.Path.Len(),
			Frequency:        r.Frequency,
			Participating:    r.Participating.ToArray(),
			NonParticipating: r.NonParticipating.ToArray(),
		})
	}
	return run
}

// Key derives the cache key of a (log, configuration) pair. Any change to
// the log path or a mining parameter yields a new key, so stale results are
// never served across parameter drift.
func Key(logPath string, cfg hlem.Config) string {
	data, _ := json.Marshal(struct {
		Log string      `json:"log"`
		Cfg hlem.Config `json:"cfg"`
	}{Log: logPath, Cfg: cfg})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// Backend stores cached runs. Implementations exist for the local
// filesystem, Redis and S3.
type Backend interface {
	// Save persists a run under its config hash.
	Save(ctx context.Context, run *Run) error

	// Load retrieves a run by cache key; (nil, nil) when absent.
	Load(ctx context.Context, key string) (*Run, error)

	// Delete removes a cached run.
	Delete(ctx context.Context, key string) error

	// Name returns the backend name for logging.
	Name() string
}

// LocalBackend stores runs as JSON files in a directory.
type LocalBackend struct {
	dir string
}

// NewLocalBackend creates the cache directory if needed.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("checkpoint: create cache dir: %w", err)
	}
	return &LocalBackend{dir: dir}, nil
}

// Name returns the backend name.
func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// Save persists a run.
func (b *LocalBackend) Save(_ context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal run: %w", err)
	}
	tmp := b.path(run.ConfigHash) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("checkpoint: write run: %w", err)
	}
	return os.Rename(tmp, b.path(run.ConfigHash))
}

// Load retrieves a run by key.
func (b *LocalBackend) Load(_ context.Context, key string) (*Run, error) {
	data, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read run: %w", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal run: %w", err)
	}
	return &run, nil
}

// Delete removes a cached run.
func (b *LocalBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
