// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ".", cfg.Converter.StatsDir)
	assert.Equal(t, "test/test-reports", cfg.Converter.OutputDir)
	assert.True(t, cfg.Artifact.Enabled)
	assert.Equal(t, 14, cfg.Artifact.RetentionDays)
	assert.True(t, cfg.Results.Enabled)
	assert.Equal(t, "v3", cfg.Results.SchemaVersion)
	assert.False(t, cfg.Results.DryRun)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cachebench.toml")
	content := `
[converter]
stats_dir = "/workspace"
output_dir = "/workspace/test/test-reports"

[artifact]
bucket = "ci-artifacts"
retention_days = 7

[results]
server = "https://bench.example.com"
dry_run = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0666))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/workspace", cfg.Converter.StatsDir)
	assert.Equal(t, "ci-artifacts", cfg.Artifact.Bucket)
	assert.Equal(t, 7, cfg.Artifact.RetentionDays)
	assert.Equal(t, "https://bench.example.com", cfg.Results.Server)
	assert.True(t, cfg.Results.DryRun)
	// Unset keys keep their defaults.
	assert.Equal(t, "v3", cfg.Results.SchemaVersion)
	assert.True(t, cfg.Artifact.Enabled)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missingBucket", "[results]\nserver = \"https://x\"\n"},
		{"missingServer", "[artifact]\nbucket = \"b\"\n"},
		{"badSchema", "[artifact]\nbucket = \"b\"\n[results]\nserver = \"https://x\"\nschema_version = \"v2\"\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cachebench.toml")
			require.NoError(t, os.WriteFile(path, []byte(test.content), 0666))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func fakeEnv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestBuildContextFromEnv(t *testing.T) {
	bc, err := BuildContextFromEnv(fakeEnv(map[string]string{
		"GITHUB_REPOSITORY":  "golang/go",
		"GITHUB_RUN_ID":      "8675309",
		"GITHUB_RUN_ATTEMPT": "2",
		"BUILD_TIME":         "120",
	}))
	require.NoError(t, err)
	assert.Equal(t, "golang/go", bc.Repository)
	assert.Equal(t, "8675309", bc.RunID)
	assert.Equal(t, 2, bc.RunAttempt)
	require.NotNil(t, bc.BuildTime)
	assert.Equal(t, 120.0, *bc.BuildTime)
}

func TestBuildContextOptionalBuildTime(t *testing.T) {
	bc, err := BuildContextFromEnv(fakeEnv(map[string]string{
		"GITHUB_REPOSITORY": "golang/go",
		"GITHUB_RUN_ID":     "1",
	}))
	require.NoError(t, err)
	assert.Nil(t, bc.BuildTime)
	assert.Equal(t, 1, bc.RunAttempt)
}

func TestBuildContextErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"noRepository", map[string]string{"GITHUB_RUN_ID": "1"}},
		{"noRunID", map[string]string{"GITHUB_REPOSITORY": "golang/go"}},
		{"badBuildTime", map[string]string{
			"GITHUB_REPOSITORY": "golang/go",
			"GITHUB_RUN_ID":     "1",
			"BUILD_TIME":        "soon",
		}},
		{"negativeBuildTime", map[string]string{
			"GITHUB_REPOSITORY": "golang/go",
			"GITHUB_RUN_ID":     "1",
			"BUILD_TIME":        "-5",
		}},
		{"badAttempt", map[string]string{
			"GITHUB_REPOSITORY":  "golang/go",
			"GITHUB_RUN_ID":      "1",
			"GITHUB_RUN_ATTEMPT": "zero",
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := BuildContextFromEnv(fakeEnv(test.vars))
			assert.Error(t, err)
		})
	}
}
