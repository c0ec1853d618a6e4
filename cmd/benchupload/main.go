// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchupload uploads benchmark-report documents to a storage
// server.
//
// Usage:
//
//	benchupload [-v] [-server url] [-schema v3] [-dry-run] [-token-file file] file...
//
// Each input file should be a line-delimited JSON report document,
// such as the one written by the cachebench converter. With no file
// arguments, benchupload uploads every document in the conventional
// report directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"golang.org/x/cachebench/benchjson"
	"golang.org/x/cachebench/storage"
)

var (
	server    = flag.String("server", "https://bench.example.com", "upload reports to server at `url`")
	schema    = flag.String("schema", benchjson.SchemaV3, "declare schema `version` to the server")
	dryRun    = flag.Bool("dry-run", false, "validate on the server without storing")
	tokenFile = flag.String("token-file", "", "`file` holding the auth token")
	reportDir = flag.String("dir", "test/test-reports", "report `directory` used when no files are given")
	verbose   = flag.Bool("v", false, "print verbose log messages")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of benchupload:
	benchupload [flags] [file...]
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetPrefix("benchupload: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	client := &storage.Client{
		BaseURL:       *server,
		SchemaVersion: *schema,
		DryRun:        *dryRun,
	}
	if *tokenFile != "" {
		token, err := os.ReadFile(*tokenFile)
		if err != nil {
			log.Fatal(err)
		}
		client.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: strings.TrimSpace(string(token)),
		})
	}

	ctx := context.Background()
	start := time.Now()

	var status *storage.UploadStatus
	var err error
	if files := flag.Args(); len(files) > 0 {
		status, err = client.Upload(ctx, files)
	} else {
		status, err = client.UploadDirectory(ctx, *reportDir)
	}
	if err != nil {
		log.Fatal(err)
	}

	if *verbose {
		s := ""
		if len(status.FileIDs) != 1 {
			s = "s"
		}
		log.Printf("%d file%s uploaded in %.2f seconds.\n", len(status.FileIDs), s, time.Since(start).Seconds())
	}
	if status.ViewURL != "" {
		fmt.Printf("%s\n", status.ViewURL)
	}
}
