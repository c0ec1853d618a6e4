// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchjson

import (
	"bytes"
	"testing"
	"time"

	"golang.org/x/cachebench/internal/diff"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestWriterGolden(t *testing.T) {
	bt := 120.0
	recs := []Record{
		{
			SchemaVersion: SchemaV3,
			Benchmark:     Benchmark{Name: "sccache-stats-0", Group: "build-cache"},
			Metrics:       []Metric{{Name: "cache_hits", Value: 10}, {Name: "build_time", Value: 120}},
			Metadata: Metadata{
				Repository:       "golang/go",
				RunID:            "12345",
				RunAttempt:       1,
				Timestamp:        mustTime(t, "2023-06-01T12:00:00Z"),
				BuildTimeSeconds: &bt,
			},
		},
		{
			SchemaVersion: SchemaV3,
			Benchmark:     Benchmark{Name: "sccache-stats-1"},
			Metrics:       []Metric{{Name: "cache_misses", Value: 2}},
			Metadata: Metadata{
				Repository: "golang/go",
				RunID:      "12345",
				Timestamp:  mustTime(t, "2023-06-01T12:00:00Z"),
			},
		},
	}

	want := `{"schema_version":"v3","benchmark":{"name":"sccache-stats-0","group":"build-cache"},"metrics":[{"name":"cache_hits","value":10},{"name":"build_time","value":120}],"metadata":{"repository":"golang/go","run_id":"12345","run_attempt":1,"timestamp":"2023-06-01T12:00:00Z","build_time_seconds":120}}
{"schema_version":"v3","benchmark":{"name":"sccache-stats-1"},"metrics":[{"name":"cache_misses","value":2}],"metadata":{"repository":"golang/go","run_id":"12345","timestamp":"2023-06-01T12:00:00Z"}}
`

	var buf bytes.Buffer
	if err := WriteAll(&buf, recs); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if d := diff.Diff(buf.String(), want); d != "" {
		t.Errorf("wrong document: (- have/+ want)\n%s", d)
	}
}
