// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline wires the conversion step and its two upload
// collaborators into one CI pipeline step.
//
// The step is described declaratively: a TOML file selects
// directories, bucket, server and policy knobs, and the ambient CI
// metadata (repository, run id, build time) comes from the
// environment the pipeline runner injects. Everything the core
// transform needs is resolved here, up front, into an explicit
// BuildContext; nothing downstream reads the environment.
package pipeline

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"golang.org/x/cachebench/artifact"
	"golang.org/x/cachebench/benchjson"
	"golang.org/x/cachebench/convert"
)

// Config describes one pipeline step.
type Config struct {
	Converter ConverterConfig `toml:"converter"`
	Artifact  ArtifactConfig  `toml:"artifact"`
	Results   ResultsConfig   `toml:"results"`
}

// ConverterConfig selects the converter's input and output
// locations.
type ConverterConfig struct {
	// StatsDir is the directory scanned for sccache-stats-*.json.
	StatsDir string `toml:"stats_dir"`

	// OutputDir is where the report document is written and
	// where the results uploader looks for it.
	OutputDir string `toml:"output_dir"`
}

// ArtifactConfig configures the raw-stats upload to object storage.
type ArtifactConfig struct {
	Enabled bool   `toml:"enabled"`
	Bucket  string `toml:"bucket"`

	// RetentionDays is how long uploaded artifacts are kept.
	RetentionDays int `toml:"retention_days"`
}

// ResultsConfig configures the report upload to the storage server.
type ResultsConfig struct {
	Enabled bool   `toml:"enabled"`
	Server  string `toml:"server"`

	// SchemaVersion is the schema tag declared to the server.
	SchemaVersion string `toml:"schema_version"`

	// DryRun asks the server to validate without storing.
	DryRun bool `toml:"dry_run"`
}

// DefaultConfig returns the step configuration used when no TOML
// file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Converter: ConverterConfig{
			StatsDir:  ".",
			OutputDir: "test/test-reports",
		},
		Artifact: ArtifactConfig{
			Enabled:       true,
			RetentionDays: artifact.DefaultRetentionDays,
		},
		Results: ResultsConfig{
			Enabled:       true,
			SchemaVersion: benchjson.SchemaV3,
			DryRun:        false,
		},
	}
}

// LoadConfig loads a step configuration from a TOML file layered
// over the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Converter.StatsDir == "" {
		return fmt.Errorf("converter.stats_dir is empty")
	}
	if c.Converter.OutputDir == "" {
		return fmt.Errorf("converter.output_dir is empty")
	}
	if c.Artifact.Enabled && c.Artifact.Bucket == "" {
		return fmt.Errorf("artifact.bucket is required when artifact upload is enabled")
	}
	if c.Results.Enabled && c.Results.Server == "" {
		return fmt.Errorf("results.server is required when results upload is enabled")
	}
	if v := c.Results.SchemaVersion; v != benchjson.SchemaV3 {
		return fmt.Errorf("results.schema_version %q is not supported, want %q", v, benchjson.SchemaV3)
	}
	return nil
}

// BuildContextFromEnv resolves the ambient CI metadata from the
// variables the pipeline runner sets. getenv is os.Getenv in
// production and a fake in tests.
//
// BUILD_TIME is optional, but when present it must be a
// non-negative number of seconds: a malformed value is a fatal
// configuration error here, before any conversion runs, rather than
// a silently dropped or zero-coerced metric.
func BuildContextFromEnv(getenv func(string) string) (convert.BuildContext, error) {
	bc := convert.BuildContext{
		Repository: getenv("GITHUB_REPOSITORY"),
		RunID:      getenv("GITHUB_RUN_ID"),
	}
	if bc.Repository == "" {
		return bc, fmt.Errorf("GITHUB_REPOSITORY is not set")
	}
	if bc.RunID == "" {
		return bc, fmt.Errorf("GITHUB_RUN_ID is not set")
	}

	if v := getenv("GITHUB_RUN_ATTEMPT"); v != "" {
		attempt, err := strconv.Atoi(v)
		if err != nil || attempt < 1 {
			return bc, fmt.Errorf("GITHUB_RUN_ATTEMPT %q is not a positive integer", v)
		}
		bc.RunAttempt = attempt
	} else {
		bc.RunAttempt = 1
	}

	if v := getenv("BUILD_TIME"); v != "" {
		seconds, err := strconv.ParseFloat(v, 64)
		if err != nil || seconds < 0 {
			return bc, fmt.Errorf("BUILD_TIME %q is not a non-negative number of seconds", v)
		}
		bc.BuildTime = &seconds
	}
	return bc, nil
}
