// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package local implements the fs.FS interface backed by a local
// directory.
package local

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/cachebench/storage/fs"
)

// NewFS constructs an FS that writes to the provided directory.
func NewFS(dir string) *FS {
	return &FS{dir: dir}
}

// FS is an fs.FS backed by a local directory.
type FS struct {
	dir string
}

// NewWriter creates a file under the FS root, creating intermediate
// directories as needed. Metadata is discarded; the local store is
// for development and tests only.
func (fsys *FS) NewWriter(_ context.Context, name string, _ map[string]string) (fs.Writer, error) {
	path := filepath.Join(fsys.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &localWriter{f: f}, nil
}

type localWriter struct {
	f *os.File
}

func (w *localWriter) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWriter) Close() error {
	return w.f.Close()
}

func (w *localWriter) CloseWithError(error) error {
	name := w.f.Name()
	w.f.Close()
	return os.Remove(name)
}
