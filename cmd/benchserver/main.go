// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchserver runs an HTTP server for benchmark-report storage.
//
// Usage:
//
//	benchserver [-addr address] [-view_url_base url] [-driver sqlite3] [-dsn :memory:] [-fs_bucket name] [-fs_dir dir] [-token secret]
//
// By default reports are stored in an in-memory SQLite database and
// an in-memory file store, which is useful for local pipeline runs
// and tests. With -driver mysql, a DSN and -fs_bucket, the same
// server fronts a production database and a Cloud Storage bucket.
package main

import (
	"context"
	"crypto/subtle"
	"flag"
	"log"
	"net/http"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"golang.org/x/cachebench/storage/app"
	"golang.org/x/cachebench/storage/db"
	_ "golang.org/x/cachebench/storage/db/sqlite3"
	"golang.org/x/cachebench/storage/fs"
	"golang.org/x/cachebench/storage/fs/gcs"
	"golang.org/x/cachebench/storage/fs/local"
)

var (
	addr        = flag.String("addr", ":8080", "serve HTTP on `address`")
	viewURLBase = flag.String("view_url_base", "", "/upload response with `URL` for viewing")
	driver      = flag.String("driver", "sqlite3", "database `driver` (sqlite3 or mysql)")
	dsn         = flag.String("dsn", ":memory:", "database `dsn`")
	fsBucket    = flag.String("fs_bucket", "", "store uploads in Cloud Storage `bucket`")
	fsDir       = flag.String("fs_dir", "", "store uploads in `directory` instead of memory")
	token       = flag.String("token", "", "require this bearer `token` on uploads")
)

func main() {
	log.SetPrefix("benchserver: ")
	log.SetFlags(0)
	flag.Parse()

	d, err := db.OpenSQL(*driver, *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	fsys, err := openFS(context.Background(), *fsBucket, *fsDir)
	if err != nil {
		log.Fatalf("open file store: %v", err)
	}

	a := &app.App{
		DB:          d,
		FS:          fsys,
		ViewURLBase: *viewURLBase,
	}
	if *token != "" {
		a.Auth = tokenAuth(*token)
	}
	a.RegisterOnMux(http.DefaultServeMux)

	log.Printf("Listening on %s", *addr)

	log.Fatal(http.ListenAndServe(*addr, nil))
}

// openFS selects the upload file store: a Cloud Storage bucket when
// one is named, else a local directory, else memory.
func openFS(ctx context.Context, bucket, dir string) (fs.FS, error) {
	switch {
	case bucket != "":
		return gcs.NewFS(ctx, bucket)
	case dir != "":
		return local.NewFS(dir), nil
	default:
		return fs.NewMemFS(), nil
	}
}

// tokenAuth accepts any request carrying the configured bearer
// token.
func tokenAuth(token string) func(http.ResponseWriter, *http.Request) (string, error) {
	return func(w http.ResponseWriter, r *http.Request) (string, error) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return "", app.ErrResponseWritten
		}
		return "uploader", nil
	}
}
