// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package convert turns sccache statistics snapshots into
// benchmark-report records.
//
// The transform itself is pure: Convert maps a slice of parsed
// snapshots and an explicit BuildContext to records, touching
// neither the filesystem nor the process environment. Run wraps it
// with the I/O glue a pipeline step needs: scan a directory, convert
// and write one report document for a downstream uploader to find.
package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/cachebench/benchjson"
	"golang.org/x/cachebench/sccache"
)

// Group is the benchmark group assigned to every converted record.
const Group = "build-cache"

// BuildTimeMetric is the metric name under which the build duration
// is injected into each record.
const BuildTimeMetric = "build_time"

// OutputFile is the report document name written by Run.
const OutputFile = "sccache-stats.json"

// A BuildContext carries the ambient CI metadata a conversion runs
// under. It is supplied by the invoking pipeline and read-only here;
// the core transform never consults the process environment itself.
type BuildContext struct {
	// Repository is the source repository, e.g. "golang/go".
	Repository string

	// RunID identifies the CI run.
	RunID string

	// RunAttempt is the retry counter of the run.
	RunAttempt int

	// BuildTime is the wall-clock build duration in seconds, or
	// nil if the pipeline did not supply one. A missing build
	// time is omitted from the output, never written as zero.
	BuildTime *float64

	// Start is the timestamp stamped onto every record. The zero
	// value means "now".
	Start time.Time
}

func (bc BuildContext) timestamp() time.Time {
	if bc.Start.IsZero() {
		return time.Now().UTC()
	}
	return bc.Start
}

// A WriteError reports that the report document could not be
// created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Convert maps each snapshot to exactly one record: the record's
// metrics are the snapshot's counters plus the injected build time,
// its extra info is the snapshot's string attributes, and its
// metadata comes from bc. Snapshots are converted in input order.
// A snapshot counter named "build_time" is dropped in favor of the
// injected value when one is supplied.
func Convert(stats []sccache.Stats, bc BuildContext) []benchjson.Record {
	ts := bc.timestamp()
	recs := make([]benchjson.Record, 0, len(stats))
	for i := range stats {
		recs = append(recs, convertOne(&stats[i], bc, ts))
	}
	return recs
}

func convertOne(s *sccache.Stats, bc BuildContext, ts time.Time) benchjson.Record {
	metrics := make([]benchjson.Metric, 0, len(s.Counters)+1)
	for _, c := range s.Counters {
		// The pipeline's measured build time supersedes any
		// counter the tool itself reports under the same name;
		// keeping both would make the record invalid.
		if c.Name == BuildTimeMetric && bc.BuildTime != nil {
			continue
		}
		metrics = append(metrics, benchjson.Metric{Name: c.Name, Value: c.Value})
	}
	if bc.BuildTime != nil {
		bt := *bc.BuildTime
		metrics = append(metrics, benchjson.Metric{Name: BuildTimeMetric, Value: bt})
	}

	var extra map[string]string
	if len(s.Attrs) > 0 {
		extra = make(map[string]string, len(s.Attrs))
		for k, v := range s.Attrs {
			extra[k] = v
		}
	}

	bt := bc.BuildTime
	if bt != nil {
		v := *bt
		bt = &v
	}
	return benchjson.Record{
		SchemaVersion: benchjson.SchemaV3,
		Benchmark: benchjson.Benchmark{
			Name:      s.Name,
			Group:     Group,
			ExtraInfo: extra,
		},
		Metrics: metrics,
		Metadata: benchjson.Metadata{
			Repository:       bc.Repository,
			RunID:            bc.RunID,
			RunAttempt:       bc.RunAttempt,
			Timestamp:        ts,
			BuildTimeSeconds: bt,
		},
	}
}

// Run converts every snapshot in dir and writes one report document
// to outDir/sccache-stats.json, returning the number of records
// written.
//
// Zero snapshots is not an error: Run returns 0 and writes nothing,
// leaving outDir untouched. Malformed input surfaces as
// *sccache.ParseError and an unwritable output as *WriteError; in
// both cases no output document is left behind. The input files are
// never modified.
func Run(dir, outDir string, bc BuildContext) (n int, err error) {
	stats, err := sccache.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	if len(stats) == 0 {
		return 0, nil
	}
	recs := Convert(stats, bc)

	if err := os.MkdirAll(outDir, 0777); err != nil {
		return 0, &WriteError{outDir, err}
	}
	out := filepath.Join(outDir, OutputFile)

	// Stage the document and rename it into place so a failed
	// write never leaves a partial report for the uploader.
	f, err := os.CreateTemp(outDir, OutputFile+".tmp")
	if err != nil {
		return 0, &WriteError{out, err}
	}
	defer os.Remove(f.Name())

	if err := benchjson.WriteAll(f, recs); err != nil {
		f.Close()
		return 0, &WriteError{out, err}
	}
	if err := f.Close(); err != nil {
		return 0, &WriteError{out, err}
	}
	if err := os.Rename(f.Name(), out); err != nil {
		return 0, &WriteError{out, err}
	}
	return len(recs), nil
}
