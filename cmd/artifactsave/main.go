// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Artifactsave uploads raw sccache statistics files to object
// storage for retention.
//
// Usage:
//
//	artifactsave -bucket name [-dir .] [-retention-days 14] [-list]
//
// The object key prefix is composed from the CI run's identity:
// {repository}/{run_id}/{run_attempt}/artifact. Zero matching files
// is a warning, not a failure. With -list, artifactsave prints the
// keys already stored under the run's prefix instead of uploading.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/cachebench/artifact"
	"golang.org/x/cachebench/pipeline"
	"golang.org/x/cachebench/sccache"
)

var (
	bucket    = flag.String("bucket", "", "destination `bucket` (required)")
	dir       = flag.String("dir", ".", "`directory` scanned for stats files")
	retention = flag.Int("retention-days", artifact.DefaultRetentionDays, "retention window in `days`")
	list      = flag.Bool("list", false, "list the run's stored artifacts instead of uploading")
)

func main() {
	log.SetPrefix("artifactsave: ")
	log.SetFlags(0)
	flag.Parse()

	if *bucket == "" {
		log.Print("-bucket is required")
		flag.Usage()
		os.Exit(2)
	}

	bc, err := pipeline.BuildContextFromEnv(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	prefix := artifact.KeyPrefix(bc.Repository, bc.RunID, bc.RunAttempt)

	ctx := context.Background()
	up, err := artifact.NewUploader(ctx, *bucket)
	if err != nil {
		log.Fatal(err)
	}
	defer up.Close()
	up.RetentionDays = *retention

	if *list {
		keys, err := up.List(ctx, prefix)
		if err != nil {
			log.Fatal(err)
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return
	}

	files, err := sccache.Glob(*dir)
	if err != nil {
		log.Fatal(err)
	}
	n, err := up.Upload(ctx, files, prefix)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("uploaded %d file(s) under %s", n, prefix)
}
