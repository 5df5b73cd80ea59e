// Package config loads and watches Folio configuration.
package config

import (
	"os"
	"strconv"
	"time"

	folioerrors "github.com/foliocms/folio/core/errors"
)

// Config is the root configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Versioning VersioningConfig `yaml:"versioning"`
	Batch      BatchConfig      `yaml:"batch"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`

	// Path is the SQLite database path.
	Path string `yaml:"path"`

	BusyTimeout time.Duration `yaml:"busy_timeout"`
	MaxOpen     int           `yaml:"max_open"`
	MaxIdle     int           `yaml:"max_idle"`
}

// VersioningConfig holds the numbering retry policy.
type VersioningConfig struct {
	Retry folioerrors.RetryPolicy `yaml:"retry"`
}

// BatchConfig bounds release/purge batch concurrency.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// CacheConfig sizes the version-entry and actor-name caches.
type CacheConfig struct {
	VersionMaxCost int64 `yaml:"version_max_cost"`
	ActorNames     int   `yaml:"actor_names"`
}

// SearchConfig configures the content search index.
type SearchConfig struct {
	// Path is the bleve index directory; empty selects an in-memory index.
	Path string `yaml:"path"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:      "sqlite",
			Path:        ".folio/folio.db",
			BusyTimeout: 30 * time.Second,
			MaxOpen:     10,
			MaxIdle:     5,
		},
		Versioning: VersioningConfig{
			Retry: *folioerrors.DefaultNumberingPolicy(),
		},
		Batch: BatchConfig{Workers: 4},
		Cache: CacheConfig{
			VersionMaxCost: 1e7,
			ActorNames:     1024,
		},
		Search:  SearchConfig{Path: ".folio/index"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// applyEnvironment overlays FOLIO_* environment variables.
func applyEnvironment(cfg *Config) {
	if v := os.Getenv("FOLIO_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("FOLIO_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("FOLIO_BATCH_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil && workers > 0 {
			cfg.Batch.Workers = workers
		}
	}
	if v := os.Getenv("FOLIO_SEARCH_PATH"); v != "" {
		cfg.Search.Path = v
	}
	if v := os.Getenv("FOLIO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
