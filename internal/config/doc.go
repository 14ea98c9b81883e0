// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package config loads and validates the resolver daemon's configuration.

# Configuration Sources

Configuration is assembled in three layers, later layers winning:

 1. Built-in struct defaults (defaultConfig)
 2. An optional YAML config file, found via CONFIG_PATH or DefaultConfigPaths
 3. RESOLVD_-prefixed environment variables (see envTransformFunc)

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("config: %v", err)
	}

# Thread Safety

Config is immutable after LoadWithKoanf returns; use WatchConfigFile with
external synchronization if hot-reload is required.
*/
package config
