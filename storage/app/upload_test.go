// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/cachebench/benchjson"
	"golang.org/x/cachebench/storage/db/dbtest"
	"golang.org/x/cachebench/storage/fs"
)

func testApp(t *testing.T) (*App, *fs.MemFS, func()) {
	t.Helper()
	d, cleanup := dbtest.NewDB(t)
	mfs := fs.NewMemFS()
	return &App{DB: d, FS: mfs}, mfs, cleanup
}

func testDocument(t *testing.T) []byte {
	t.Helper()
	bt := 120.0
	rec := benchjson.Record{
		SchemaVersion: benchjson.SchemaV3,
		Benchmark:     benchjson.Benchmark{Name: "sccache-stats-0", Group: "build-cache"},
		Metrics: []benchjson.Metric{
			{Name: "cache_hits", Value: 10},
			{Name: "build_time", Value: 120},
		},
		Metadata: benchjson.Metadata{
			Repository:       "golang/go",
			RunID:            "12345",
			RunAttempt:       1,
			Timestamp:        time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
			BuildTimeSeconds: &bt,
		},
	}
	var buf bytes.Buffer
	if err := benchjson.WriteAll(&buf, []benchjson.Record{rec}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// postUpload sends a multipart upload with the given schema, dryrun
// flag, and file contents.
func postUpload(t *testing.T, url, schema, dryrun string, files ...[]byte) *http.Response {
	t.Helper()
	pr, pw := io.Pipe()
	mpw := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		defer mpw.Close()
		if schema != "" {
			mpw.WriteField("schema", schema)
		}
		if dryrun != "" {
			mpw.WriteField("dryrun", dryrun)
		}
		for i, data := range files {
			w, err := mpw.CreateFormFile("file", fmt.Sprintf("%d.json", i))
			if err != nil {
				t.Errorf("CreateFormFile: %v", err)
				return
			}
			w.Write(data)
		}
	}()
	resp, err := http.Post(url, mpw.FormDataContentType(), pr)
	if err != nil {
		t.Fatalf("post /upload: %v", err)
	}
	return resp
}

func TestUpload(t *testing.T) {
	app, mfs, cleanup := testApp(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(app.upload))
	defer srv.Close()

	resp := postUpload(t, srv.URL, benchjson.SchemaV3, "", testDocument(t))
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("post /upload: %v\n%s", resp.Status, body)
	}

	var status uploadStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decoding /upload response: %v", err)
	}
	if status.UploadID == "" {
		t.Error("response has no upload ID")
	}
	if len(status.FileIDs) != 1 {
		t.Errorf("response lists %d file IDs, want 1", len(status.FileIDs))
	}

	if files := mfs.Files(); len(files) != 1 {
		t.Errorf("/upload wrote %d files, want 1", len(files))
	}

	q := app.DB.Query("repository:golang/go")
	defer q.Close()
	if !q.Next() {
		t.Fatalf("uploaded record not indexed: %v", q.Err())
	}
	if v, ok := q.Record().Value("build_time"); !ok || v != 120 {
		t.Errorf("indexed build_time = %v, %v, want 120, true", v, ok)
	}
}

func TestUploadDryRun(t *testing.T) {
	app, mfs, cleanup := testApp(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(app.upload))
	defer srv.Close()

	resp := postUpload(t, srv.URL, benchjson.SchemaV3, "1", testDocument(t))
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("post /upload: %v", resp.Status)
	}

	var status uploadStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decoding /upload response: %v", err)
	}
	if !status.DryRun {
		t.Error("response does not mark the upload as a dry run")
	}
	if len(mfs.Files()) != 0 {
		t.Errorf("dry run wrote %d files, want 0", len(mfs.Files()))
	}
	if uploads, err := app.DB.CountUploads(); err != nil || uploads != 0 {
		t.Errorf("dry run created %d uploads (err=%v), want 0", uploads, err)
	}
}

func TestUploadRejects(t *testing.T) {
	app, _, cleanup := testApp(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(app.upload))
	defer srv.Close()

	tests := []struct {
		name   string
		schema string
		files  [][]byte
	}{
		{"wrongSchema", "v2", [][]byte{testDocument(t)}},
		{"noSchema", "", [][]byte{testDocument(t)}},
		{"badDocument", benchjson.SchemaV3, [][]byte{[]byte("not json\n")}},
		{"noFiles", benchjson.SchemaV3, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			resp := postUpload(t, srv.URL, test.schema, "", test.files...)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %v, want 400", resp.Status)
			}
		})
	}

	if uploads, err := app.DB.CountUploads(); err != nil || uploads != 0 {
		t.Errorf("rejected uploads created %d uploads (err=%v), want 0", uploads, err)
	}
}
