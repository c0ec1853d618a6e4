// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for the storage db.
// Importing it registers an open hook that enables foreign-key
// enforcement, which sqlite3 leaves off by default.
package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"golang.org/x/cachebench/storage/db"
)

func init() {
	db.RegisterOpenHook("sqlite3", func(d *sql.DB) error {
		_, err := d.Exec("PRAGMA foreign_keys = ON;")
		return err
	})
}
