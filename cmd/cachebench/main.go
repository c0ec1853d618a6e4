// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Cachebench runs the build-cache benchmark pipeline step: it
// converts sccache statistics files into benchmark reports, ships
// the raw files to artifact storage, and uploads the reports to the
// results server.
//
// Usage:
//
//	cachebench [-config cachebench.toml] [-env .env] [-token-file file] [-skip-uploads]
//
// The ambient CI metadata (GITHUB_REPOSITORY, GITHUB_RUN_ID,
// GITHUB_RUN_ATTEMPT, BUILD_TIME) is read from the environment,
// optionally seeded from an env file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"golang.org/x/cachebench/artifact"
	"golang.org/x/cachebench/pipeline"
	"golang.org/x/cachebench/storage"
)

var (
	configFile  = flag.String("config", "cachebench.toml", "step configuration `file`")
	envFile     = flag.String("env", "", "optional env `file` loaded before reading the environment")
	tokenFile   = flag.String("token-file", "", "`file` holding the results-server auth token")
	skipUploads = flag.Bool("skip-uploads", false, "convert only; skip both uploads")
)

func main() {
	log.SetPrefix("cachebench: ")
	log.SetFlags(0)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("loading env file: %v", err)
		}
	}

	cfg, err := pipeline.LoadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	bc, err := pipeline.BuildContextFromEnv(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	runner := &pipeline.Runner{Config: cfg, BuildContext: bc}

	if !*skipUploads && cfg.Artifact.Enabled {
		up, err := artifact.NewUploader(ctx, cfg.Artifact.Bucket)
		if err != nil {
			log.Fatalf("artifact uploader: %v", err)
		}
		defer up.Close()
		up.RetentionDays = cfg.Artifact.RetentionDays
		runner.Artifacts = up
	}

	if !*skipUploads && cfg.Results.Enabled {
		client := &storage.Client{
			BaseURL:       cfg.Results.Server,
			SchemaVersion: cfg.Results.SchemaVersion,
			DryRun:        cfg.Results.DryRun,
		}
		if *tokenFile != "" {
			token, err := os.ReadFile(*tokenFile)
			if err != nil {
				log.Fatalf("reading token file: %v", err)
			}
			client.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: strings.TrimSpace(string(token)),
			})
		}
		runner.Reports = client
	}

	sum, err := runner.Run(ctx)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("converted %d record(s), uploaded %d artifact(s)", sum.Converted, sum.ArtifactsUploaded)
	if sum.Upload != nil && sum.Upload.ViewURL != "" {
		log.Printf("results: %s", sum.Upload.ViewURL)
	}
}
