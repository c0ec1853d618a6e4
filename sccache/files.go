// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sccache

import (
	"path/filepath"
	"sort"
	"strings"
)

// StatsGlob is the file naming pattern for statistics snapshots: one
// file per build shard, written next to each other in the build's
// working directory.
const StatsGlob = "sccache-stats-*.json"

// Glob returns the snapshot files in dir, sorted by name. A missing
// or empty directory yields an empty slice, not an error; zero
// snapshots is a normal outcome for builds that ran without the
// cache.
func Glob(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, StatsGlob))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// A Files reads statistics snapshots from a sequence of input files.
//
// Its API is modeled on bufio.Scanner: call Scan to advance to the
// next snapshot, Stats to retrieve it, and Err once Scan returns
// false.
type Files struct {
	// Paths is the list of file names to read in.
	Paths []string

	pos   int
	stats *Stats
	err   error
}

// ScanDir returns a Files over the snapshots in dir.
func ScanDir(dir string) (*Files, error) {
	paths, err := Glob(dir)
	if err != nil {
		return nil, err
	}
	return &Files{Paths: paths}, nil
}

// Scan advances to the next snapshot in the sequence of files and
// reports whether one was read.
func (f *Files) Scan() bool {
	if f.err != nil || f.pos >= len(f.Paths) {
		return false
	}
	f.stats, f.err = ReadFile(f.Paths[f.pos])
	f.pos++
	return f.err == nil
}

// Stats returns the snapshot that was just read by Scan.
func (f *Files) Stats() *Stats {
	return f.stats
}

// Err returns the error that stopped Scan, if any.
func (f *Files) Err() error {
	return f.err
}

// ReadDir parses every snapshot in dir, in sorted file order.
func ReadDir(dir string) ([]Stats, error) {
	f, err := ScanDir(dir)
	if err != nil {
		return nil, err
	}
	var all []Stats
	for f.Scan() {
		all = append(all, *f.Stats())
	}
	if err := f.Err(); err != nil {
		return nil, err
	}
	return all, nil
}

// statName derives a snapshot name from its file name:
// "x/sccache-stats-0.json" becomes "sccache-stats-0".
func statName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
