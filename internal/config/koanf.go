// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for, in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/resolvd/config.yaml",
	"/etc/resolvd/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}

// defaultConfig returns a Config with every field set to a sensible default.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Dir:        "/data/resolvd/index",
			ShardCount: 16,
		},
		Cache: CacheConfig{
			MaxEntries:    50000,
			LowWatermark:  40000,
			SweepInterval: 30 * time.Second,
			BackingDir:    "/data/resolvd/cache",
		},
		Database: DatabaseConfig{
			Path:      "/data/resolvd/mapping.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Build: BuildConfig{
			BatchSize:     2500,
			RetryAttempts: 5,
			RetryBackoff:  200 * time.Millisecond,
		},
		Shard: ShardConfig{
			RequestTimeout:    2 * time.Second,
			QueueDepth:        256,
			CleanerConfidence: DefaultCleanerConfidence,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load is the standard entry point for cmd/ binaries: defaults, then an
// optional config file, then environment overrides, then validation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file, if found
//  3. Environment variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("RESOLVD_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, checking the override env var
// before falling back to DefaultConfigPaths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps RESOLVD_-prefixed environment variable names to
// koanf dotted paths, e.g. RESOLVD_INDEX_DIR -> index.dir.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"INDEX_DIR":          "index.dir",
		"INDEX_SHARD_COUNT":  "index.shard_count",
		"CACHE_MAX_ENTRIES":  "cache.max_entries",
		"CACHE_LOW_WATERMARK": "cache.low_watermark",
		"CACHE_SWEEP_INTERVAL": "cache.sweep_interval",
		"CACHE_BACKING_DIR":  "cache.backing_dir",
		"DATABASE_PATH":      "database.path",
		"DATABASE_MAX_MEMORY": "database.max_memory",
		"DATABASE_THREADS":   "database.threads",
		"BUILD_BATCH_SIZE":   "build.batch_size",
		"BUILD_RETRY_ATTEMPTS": "build.retry_attempts",
		"BUILD_RETRY_BACKOFF": "build.retry_backoff",
		"SHARD_REQUEST_TIMEOUT": "shard.request_timeout",
		"SHARD_QUEUE_DEPTH":  "shard.queue_depth",
		"SHARD_CLEANER_CONFIDENCE": "shard.cleaner_confidence",
		"LOG_LEVEL":          "logging.level",
		"LOG_FORMAT":         "logging.format",
		"LOG_CALLER":         "logging.caller",
	}
	if mapped, ok := mappings[strings.TrimPrefix(key, "RESOLVD_")]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a fresh Koanf instance for advanced usage, such as
// hot-reload or test fixtures.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher that invokes callback whenever path
// changes on disk. The caller owns synchronizing access to any config it
// swaps in from the callback.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
