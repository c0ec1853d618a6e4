// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcs implements the fs.FS interface using Google Cloud
// Storage.
package gcs

import (
	"context"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"golang.org/x/cachebench/storage/fs"
)

var _ fs.FS = (*FS)(nil)

// FS is an fs.FS backed by a Cloud Storage bucket.
type FS struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewFS constructs an FS that writes to the provided bucket.
func NewFS(ctx context.Context, bucketName string, opts ...option.ClientOption) (*FS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &FS{client: client, bucket: client.Bucket(bucketName)}, nil
}

// NewWriter creates a bucket object named name, carrying metadata as
// object metadata. The object only becomes visible once the Writer
// is closed without error.
func (fsys *FS) NewWriter(ctx context.Context, name string, metadata map[string]string) (fs.Writer, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := fsys.bucket.Object(name).NewWriter(ctx)
	if len(metadata) > 0 {
		w.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			w.Metadata[k] = v
		}
	}
	return &gcsWriter{w: w, cancel: cancel}, nil
}

// Close releases the underlying client.
func (fsys *FS) Close() error {
	return fsys.client.Close()
}

type gcsWriter struct {
	w      *storage.Writer
	cancel context.CancelFunc
}

func (w *gcsWriter) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

func (w *gcsWriter) Close() error {
	defer w.cancel()
	return w.w.Close()
}

// CloseWithError aborts the upload. Canceling the write context
// prevents the partially-written object from being committed.
func (w *gcsWriter) CloseWithError(error) error {
	w.cancel()
	w.w.Close()
	return nil
}
