// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the process environment understood by assetcache.
type Env struct {
	// ConfigFile overrides the config file search.
	ConfigFile string `env:"ASSETCACHE_CFG"`
	// Log is the apex/log level name.
	Log string `env:"ASSETCACHE_LOG" envDefault:"ERROR"`
	// CacheDir is the base directory of the file store.
	CacheDir string `env:"ASSETCACHE_CACHE_DIR"`
}

// LoadEnv parses the process environment into an Env.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
