// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db_test

import (
	"context"
	"testing"
	"time"

	"golang.org/x/cachebench/benchjson"
	"golang.org/x/cachebench/storage/db/dbtest"
)

// Most of the db package is also exercised by the end-to-end tests
// in storage/app.

func report(name, repo, runID string) benchjson.Record {
	return benchjson.Record{
		SchemaVersion: benchjson.SchemaV3,
		Benchmark:     benchjson.Benchmark{Name: name, Group: "build-cache"},
		Metrics:       []benchjson.Metric{{Name: "cache_hits", Value: 10}},
		Metadata: benchjson.Metadata{
			Repository: repo,
			RunID:      runID,
			RunAttempt: 1,
			Timestamp:  time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestInsertAndQuery(t *testing.T) {
	ctx := context.Background()

	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	u, err := db.NewUpload(ctx)
	if err != nil {
		t.Fatalf("NewUpload: %v", err)
	}
	recs := []benchjson.Record{
		report("sccache-stats-0", "golang/go", "111"),
		report("sccache-stats-1", "golang/go", "111"),
		report("sccache-stats-0", "golang/tools", "222"),
	}
	for i := range recs {
		if err := u.InsertRecord(ctx, &recs[i]); err != nil {
			t.Fatalf("InsertRecord: %v", err)
		}
	}

	tests := []struct {
		q    string
		want int
	}{
		{"repository:golang/go", 2},
		{"repository:golang/go run_id:111", 2},
		{"repository:golang/tools", 1},
		{"benchmark:sccache-stats-0", 2},
		{"repository:golang/go benchmark:sccache-stats-1", 1},
		{"repository:nonesuch", 0},
	}
	for _, test := range tests {
		q := db.Query(test.q)
		n := 0
		for q.Next() {
			if err := q.Record().Validate(); err != nil {
				t.Errorf("query %q returned invalid record: %v", test.q, err)
			}
			n++
		}
		if err := q.Err(); err != nil {
			t.Fatalf("query %q: %v", test.q, err)
		}
		q.Close()
		if n != test.want {
			t.Errorf("query %q matched %d records, want %d", test.q, n, test.want)
		}
	}
}

func TestInsertRejectsInvalid(t *testing.T) {
	ctx := context.Background()

	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	u, err := db.NewUpload(ctx)
	if err != nil {
		t.Fatalf("NewUpload: %v", err)
	}
	bad := report("sccache-stats-0", "golang/go", "111")
	bad.Metrics = nil
	if err := u.InsertRecord(ctx, &bad); err == nil {
		t.Fatal("InsertRecord accepted a record with no metrics")
	}

	q := db.Query("repository:golang/go")
	defer q.Close()
	if q.Next() {
		t.Error("rejected record is queryable")
	}
}

func TestQueryMalformed(t *testing.T) {
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	for _, q := range []string{"", "noseparator"} {
		query := db.Query(q)
		if query.Next() {
			t.Errorf("query %q returned a record", q)
		}
		if query.Err() == nil {
			t.Errorf("query %q did not report an error", q)
		}
		query.Close()
	}
}
