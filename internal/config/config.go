// Package config loads engine configuration from taxograph.yaml plus
// TAXOGRAPH_-prefixed environment variables. Connection settings for the
// excluded transport layers are not configured here.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the default config file looked up in the working dir.
const ConfigFileName = "taxograph.yaml"

const envPrefix = "TAXOGRAPH_"

// Config holds everything the engine needs for a run.
type Config struct {
	// DatabasePath is the SQLite file holding the persistent forest.
	DatabasePath string `koanf:"database_path"`
	// NodesPath / NamesPath point at extracted dump files.
	NodesPath string `koanf:"nodes_path"`
	NamesPath string `koanf:"names_path"`
	// ArchivePath points at a local taxdump.tar.gz; used when the dump
	// files are not already extracted.
	ArchivePath string `koanf:"archive_path"`
	// BatchSize bounds rows per bulk-load transaction.
	BatchSize int `koanf:"batch_size"`
	// SearchLimit caps search results when the caller passes none.
	SearchLimit int `koanf:"search_limit"`
	// SampleTaxIDs overrides the curated sample set.
	SampleTaxIDs []int `koanf:"sample_taxids"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = "taxograph.db"
	}
	if c.NodesPath == "" {
		c.NodesPath = "nodes.dmp"
	}
	if c.NamesPath == "" {
		c.NamesPath = "names.dmp"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10000
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 10
	}
}

// Load reads configuration: the given file (or ./taxograph.yaml when path
// is empty and one exists), then TAXOGRAPH_ environment overrides, then
// defaults. A missing explicit file is an error; a missing default is not.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if path == "" {
		if _, err := os.Stat(ConfigFileName); err == nil {
			path = ConfigFileName
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	// TAXOGRAPH_BATCH_SIZE -> batch_size
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}
