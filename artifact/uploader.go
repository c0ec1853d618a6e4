// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package artifact uploads raw build byproducts to object storage.
//
// This is the retention side of the pipeline: the same stats files
// the converter reads are shipped unmodified to a bucket, keyed by
// run, and kept for a fixed window. Zero matching files is a normal
// outcome and is surfaced as a warning, never a failure, so a build
// that ran without the cache does not fail its upload step.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultRetentionDays is the retention window applied to uploaded
// artifacts when none is configured.
const DefaultRetentionDays = 14

// KeyPrefix composes the object key prefix for a run's artifacts.
func KeyPrefix(repository, runID string, runAttempt int) string {
	return path.Join(repository, runID, strconv.Itoa(runAttempt), "artifact")
}

// An Uploader writes artifacts to a Cloud Storage bucket.
type Uploader struct {
	client *storage.Client
	bucket *storage.BucketHandle

	// RetentionDays is stamped onto every object as the
	// "retention-days" metadata value, which the bucket's
	// lifecycle rule uses to expire artifacts. Zero means
	// DefaultRetentionDays.
	RetentionDays int
}

// NewUploader constructs an Uploader for the named bucket.
func NewUploader(ctx context.Context, bucketName string, opts ...option.ClientOption) (*Uploader, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Uploader{client: client, bucket: client.Bucket(bucketName)}, nil
}

// Close releases the underlying client.
func (u *Uploader) Close() error {
	return u.client.Close()
}

func (u *Uploader) retentionDays() int {
	if u.RetentionDays == 0 {
		return DefaultRetentionDays
	}
	return u.RetentionDays
}

// objectMetadata returns the metadata stamped onto every object of
// one upload batch.
func objectMetadata(batchID string, retentionDays int) map[string]string {
	return map[string]string{
		"batch":          batchID,
		"retention-days": strconv.Itoa(retentionDays),
	}
}

// Upload copies each named file to <prefix>/<basename> in the
// bucket and returns the number of objects written. The files are
// only read. Zero files logs a warning and returns 0 with no error.
func (u *Uploader) Upload(ctx context.Context, files []string, prefix string) (int, error) {
	if len(files) == 0 {
		log.Printf("artifact: no files matched; nothing to upload")
		return 0, nil
	}

	meta := objectMetadata(uuid.NewString(), u.retentionDays())
	for _, name := range files {
		if err := u.uploadOne(ctx, name, path.Join(prefix, filepath.Base(name)), meta); err != nil {
			return 0, fmt.Errorf("uploading %s: %v", name, err)
		}
	}
	return len(files), nil
}

func (u *Uploader) uploadOne(ctx context.Context, name, key string, meta map[string]string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := u.bucket.Object(key).NewWriter(ctx)
	w.Metadata = meta
	if _, err := io.Copy(w, f); err != nil {
		cancel()
		w.Close()
		return err
	}
	return w.Close()
}

// List returns the object keys stored under prefix, in lexical
// order.
func (u *Uploader) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := u.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}
