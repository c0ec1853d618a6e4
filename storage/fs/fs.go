// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fs provides a backend-agnostic, write-once file store for
// the report storage server.
package fs

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
)

// An FS stores uploaded report documents.
type FS interface {
	// NewWriter returns a Writer for a new file named name,
	// tagged with metadata. Closing the Writer commits the file.
	NewWriter(ctx context.Context, name string, metadata map[string]string) (Writer, error)
}

// A Writer is an io.WriteCloser whose contents are only committed
// once Close is called. CloseWithError abandons the write.
type Writer interface {
	io.WriteCloser
	CloseWithError(error) error
}

// MemFS is an in-memory FS implementation for testing.
type MemFS struct {
	mu      sync.Mutex
	content map[string][]byte
}

// NewMemFS constructs an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{content: make(map[string][]byte)}
}

// NewWriter returns a Writer that commits the file into the MemFS on
// Close.
func (fs *MemFS) NewWriter(_ context.Context, name string, _ map[string]string) (Writer, error) {
	return &memWriter{fs: fs, name: name}, nil
}

// Files returns the names of the files written to fs, sorted.
func (fs *MemFS) Files() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var names []string
	for name := range fs.content {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadFile returns the contents of the named file.
func (fs *MemFS) ReadFile(name string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, ok := fs.content[name]
	if !ok {
		return nil, errors.New("file not found: " + name)
	}
	return data, nil
}

type memWriter struct {
	fs   *MemFS
	name string
	buf  []byte
	done bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *memWriter) Close() error {
	if w.done {
		return errors.New("already closed")
	}
	w.done = true
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.content[w.name] = w.buf
	return nil
}

func (w *memWriter) CloseWithError(error) error {
	w.done = true
	return nil
}
