// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"testing"

	"golang.org/x/cachebench/storage/fs"
	"golang.org/x/cachebench/storage/fs/local"
)

func TestOpenFS(t *testing.T) {
	ctx := context.Background()

	fsys, err := openFS(ctx, "", t.TempDir())
	if err != nil {
		t.Fatalf("openFS(dir): %v", err)
	}
	if _, ok := fsys.(*local.FS); !ok {
		t.Errorf("openFS(dir) = %T, want *local.FS", fsys)
	}

	fsys, err = openFS(ctx, "", "")
	if err != nil {
		t.Fatalf("openFS(): %v", err)
	}
	if _, ok := fsys.(*fs.MemFS); !ok {
		t.Errorf("openFS() = %T, want *fs.MemFS", fsys)
	}
}
