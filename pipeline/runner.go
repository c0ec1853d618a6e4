// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"log"

	"golang.org/x/cachebench/artifact"
	"golang.org/x/cachebench/convert"
	"golang.org/x/cachebench/sccache"
	"golang.org/x/cachebench/storage"
)

// An ArtifactUploader ships raw stats files to object storage.
// artifact.Uploader implements it.
type ArtifactUploader interface {
	Upload(ctx context.Context, files []string, prefix string) (int, error)
}

// A ReportUploader ships a directory of report documents to the
// storage server. storage.Client implements it.
type ReportUploader interface {
	UploadDirectory(ctx context.Context, dir string) (*storage.UploadStatus, error)
}

// A Runner executes one pipeline step: convert, then upload.
// Either uploader may be nil, which skips that upload.
type Runner struct {
	Config       *Config
	BuildContext convert.BuildContext
	Artifacts    ArtifactUploader
	Reports      ReportUploader
}

// A Summary reports what one step execution did.
type Summary struct {
	// Converted is the number of records written to the report
	// document.
	Converted int

	// ArtifactsUploaded is the number of raw files shipped to
	// object storage.
	ArtifactsUploaded int

	// Upload is the storage server's response, or nil if the
	// report upload was skipped.
	Upload *storage.UploadStatus
}

// Run executes the step. Conversion failures are fatal; zero input
// files is not, per the artifact contract's warn-don't-fail policy.
//
// The conversion and the artifact upload both read the same input
// files and neither mutates them, so no ordering between the two
// uploads matters; they run sequentially here for simplicity.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	cfg := r.Config
	var sum Summary

	n, err := convert.Run(cfg.Converter.StatsDir, cfg.Converter.OutputDir, r.BuildContext)
	if err != nil {
		return nil, err
	}
	sum.Converted = n
	if n == 0 {
		log.Printf("pipeline: no stats files in %s; nothing to convert", cfg.Converter.StatsDir)
	}

	if r.Artifacts != nil {
		files, err := sccache.Glob(cfg.Converter.StatsDir)
		if err != nil {
			return nil, err
		}
		prefix := artifact.KeyPrefix(r.BuildContext.Repository, r.BuildContext.RunID, r.BuildContext.RunAttempt)
		uploaded, err := r.Artifacts.Upload(ctx, files, prefix)
		if err != nil {
			return nil, err
		}
		sum.ArtifactsUploaded = uploaded
	}

	if r.Reports != nil {
		if n == 0 {
			log.Printf("pipeline: no report document; skipping results upload")
		} else {
			status, err := r.Reports.UploadDirectory(ctx, cfg.Converter.OutputDir)
			if err != nil {
				return nil, err
			}
			sum.Upload = status
		}
	}

	return &sum, nil
}
