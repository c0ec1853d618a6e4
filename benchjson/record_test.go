// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchjson

import (
	"math"
	"strings"
	"testing"
	"time"
)

func validRecord() Record {
	bt := 120.0
	return Record{
		SchemaVersion: SchemaV3,
		Benchmark:     Benchmark{Name: "sccache-stats-0", Group: "build-cache"},
		Metrics: []Metric{
			{Name: "cache_hits", Value: 10},
			{Name: "cache_misses", Value: 2},
		},
		Metadata: Metadata{
			Repository:       "golang/go",
			RunID:            "8675309",
			RunAttempt:       1,
			Timestamp:        time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
			BuildTimeSeconds: &bt,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Record)
		want string // substring of the error, or "" for valid
	}{
		{"valid", func(r *Record) {}, ""},
		{"noBuildTime", func(r *Record) { r.Metadata.BuildTimeSeconds = nil }, ""},
		{"badVersion", func(r *Record) { r.SchemaVersion = "v2" }, "schema_version"},
		{"emptyName", func(r *Record) { r.Benchmark.Name = "" }, "benchmark.name"},
		{"noMetrics", func(r *Record) { r.Metrics = nil }, "no metrics"},
		{"emptyMetricName", func(r *Record) { r.Metrics[0].Name = "" }, "empty name"},
		{"dupMetric", func(r *Record) { r.Metrics[1].Name = "cache_hits" }, "duplicate metric"},
		{"nanMetric", func(r *Record) { r.Metrics[0].Value = math.NaN() }, "non-finite"},
		{"noRepo", func(r *Record) { r.Metadata.Repository = "" }, "metadata.repository"},
		{"noRunID", func(r *Record) { r.Metadata.RunID = "" }, "metadata.run_id"},
		{"negBuildTime", func(r *Record) { bt := -1.0; r.Metadata.BuildTimeSeconds = &bt }, "build_time_seconds"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := validRecord()
			test.edit(&r)
			err := r.Validate()
			if test.want == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", test.want)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, test.want)
			}
		})
	}
}

func TestValue(t *testing.T) {
	r := validRecord()
	if v, ok := r.Value("cache_misses"); !ok || v != 2 {
		t.Errorf("Value(cache_misses) = %v, %v, want 2, true", v, ok)
	}
	if _, ok := r.Value("nope"); ok {
		t.Errorf("Value(nope) found a metric, want none")
	}
}
