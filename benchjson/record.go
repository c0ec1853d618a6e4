// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchjson provides a reader and writer for the JSON
// benchmark-report format consumed by the results storage server.
//
// A report document is line-delimited JSON: one Record per line,
// every record carrying the same schema version. The format is
// versioned so that the ingestion service can reject documents
// produced against an incompatible record layout; this package
// implements schema v3.
package benchjson

import (
	"fmt"
	"math"
	"time"
)

// SchemaV3 is the schema version tag written into and expected from
// every record handled by this package.
const SchemaV3 = "v3"

// A Record is a single benchmark report: one named benchmark, its
// measured metrics, and the metadata the storage server indexes to
// compare results across runs.
type Record struct {
	// SchemaVersion identifies the record layout. It must equal
	// SchemaV3 for every record this package reads or writes.
	SchemaVersion string `json:"schema_version"`

	Benchmark Benchmark `json:"benchmark"`

	// Metrics is the set of measurements in this record. A valid
	// record has at least one metric.
	Metrics []Metric `json:"metrics"`

	Metadata Metadata `json:"metadata"`
}

// A Benchmark names the workload a record describes.
type Benchmark struct {
	// Name is the benchmark name, e.g. "sccache-stats-0".
	Name string `json:"name"`

	// Group collects related benchmarks under one heading,
	// e.g. "build-cache".
	Group string `json:"group,omitempty"`

	// ExtraInfo carries non-numeric attributes of the benchmark
	// environment, such as compiler identifiers reported by the
	// build cache.
	ExtraInfo map[string]string `json:"extra_info,omitempty"`
}

// A Metric is a single name/value measurement.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Metadata identifies the CI run a record was produced by.
type Metadata struct {
	// Repository is the source repository, e.g. "golang/go".
	Repository string `json:"repository"`

	// RunID identifies the CI run within the repository.
	RunID string `json:"run_id"`

	// RunAttempt is the retry counter of the run, starting at 1.
	RunAttempt int `json:"run_attempt,omitempty"`

	// Timestamp records when the report was produced.
	Timestamp time.Time `json:"timestamp"`

	// BuildTimeSeconds is the wall-clock build duration. It is
	// optional per-record metadata: nil means the invoking
	// pipeline did not supply one, and the field is omitted from
	// the JSON encoding rather than written as zero.
	BuildTimeSeconds *float64 `json:"build_time_seconds,omitempty"`
}

// Value returns the value of the named metric.
func (r *Record) Value(name string) (float64, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

// Validate checks that r is a well-formed schema v3 record. It
// returns nil if the record would be accepted by the storage server.
func (r *Record) Validate() error {
	if r.SchemaVersion != SchemaV3 {
		return fmt.Errorf("schema_version is %q, want %q", r.SchemaVersion, SchemaV3)
	}
	if r.Benchmark.Name == "" {
		return fmt.Errorf("benchmark.name is empty")
	}
	if len(r.Metrics) == 0 {
		return fmt.Errorf("benchmark %q has no metrics", r.Benchmark.Name)
	}
	seen := make(map[string]bool)
	for _, m := range r.Metrics {
		if m.Name == "" {
			return fmt.Errorf("benchmark %q has a metric with an empty name", r.Benchmark.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("benchmark %q has duplicate metric %q", r.Benchmark.Name, m.Name)
		}
		seen[m.Name] = true
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			return fmt.Errorf("metric %q has non-finite value", m.Name)
		}
	}
	if r.Metadata.Repository == "" {
		return fmt.Errorf("metadata.repository is empty")
	}
	if r.Metadata.RunID == "" {
		return fmt.Errorf("metadata.run_id is empty")
	}
	if bt := r.Metadata.BuildTimeSeconds; bt != nil && (math.IsNaN(*bt) || math.IsInf(*bt, 0) || *bt < 0) {
		return fmt.Errorf("metadata.build_time_seconds %v is not a non-negative finite number", *bt)
	}
	return nil
}
