// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db provides the high-level database interface for the
// report storage server.
package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/cachebench/benchjson"
)

// DB is a high-level interface to a database for the storage
// server. It's safe for concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertUpload *sql.Stmt
	insertRecord *sql.Stmt
	insertLabel  *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(driverName); err != nil {
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Uploads (
	UploadID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}}
);
CREATE TABLE IF NOT EXISTS Records (
	UploadID BIGINT UNSIGNED,
	RecordID BIGINT UNSIGNED,
	Content BLOB,
	PRIMARY KEY (UploadID, RecordID),
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS RecordLabels (
	UploadID BIGINT UNSIGNED,
	RecordID BIGINT UNSIGNED,
	Name VARCHAR(255),
	Value VARCHAR(8192),
{{if not .sqlite3}}
	Index (Name(100), Value(100)),
{{end}}
       FOREIGN KEY (UploadID, RecordID) REFERENCES Records(UploadID, RecordID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS RecordLabelsNameValue ON RecordLabels(Name, Value);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements(driverName string) error {
	var err error
	q := "INSERT INTO Uploads() VALUES ()"
	if driverName == "sqlite3" {
		q = "INSERT INTO Uploads DEFAULT VALUES"
	}
	db.insertUpload, err = db.sql.Prepare(q)
	if err != nil {
		return err
	}
	db.insertRecord, err = db.sql.Prepare("INSERT INTO Records(UploadID, RecordID, Content) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertLabel, err = db.sql.Prepare("INSERT INTO RecordLabels(UploadID, RecordID, Name, Value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// An Upload is a collection of report records that share an upload ID.
type Upload struct {
	// ID is the upload ID assigned to this upload.
	ID string

	// id is the numeric value used as the primary key. ID is a
	// string for the public API; the underlying table actually
	// uses an integer key.
	id int64
	// recordid is the index of the next record to insert.
	recordid int64
	// db is the underlying database that this upload is going to.
	db *DB
}

// NewUpload returns an upload for storing new report records.
// All records written to the Upload will have the same upload ID.
func (db *DB) NewUpload(ctx context.Context) (*Upload, error) {
	res, err := db.insertUpload.ExecContext(ctx)
	if err != nil {
		return nil, err
	}
	i, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Upload{
		ID: fmt.Sprint(i),
		id: i,
		db: db,
	}, nil
}

// labels returns the indexed label set for r: the fields the /search
// endpoint can match terms against.
func labels(r *benchjson.Record) [][2]string {
	ls := [][2]string{
		{"repository", r.Metadata.Repository},
		{"run_id", r.Metadata.RunID},
		{"benchmark", r.Benchmark.Name},
	}
	if r.Benchmark.Group != "" {
		ls = append(ls, [2]string{"group", r.Benchmark.Group})
	}
	if r.Metadata.RunAttempt > 0 {
		ls = append(ls, [2]string{"run_attempt", strconv.Itoa(r.Metadata.RunAttempt)})
	}
	return ls
}

// InsertRecord validates r and inserts it in an existing upload.
func (u *Upload) InsertRecord(ctx context.Context, r *benchjson.Record) (err error) {
	if err := r.Validate(); err != nil {
		return err
	}
	tx, err := u.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	content, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err = tx.Stmt(u.db.insertRecord).ExecContext(ctx, u.id, u.recordid, content); err != nil {
		return err
	}
	for _, l := range labels(r) {
		if _, err := tx.Stmt(u.db.insertLabel).ExecContext(ctx, u.id, u.recordid, l[0], l[1]); err != nil {
			return err
		}
	}
	u.recordid++
	return nil
}

// CountUploads returns the number of uploads in the database.
func (db *DB) CountUploads() (int, error) {
	var uploads int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Uploads").Scan(&uploads)
	return uploads, err
}

// Query searches for records matching q, a space-separated list of
// label:value terms, e.g. "repository:golang/go run_id:12345". All
// terms must match. The returned Query must be closed when done.
func (db *DB) Query(q string) *Query {
	terms, err := parseQuery(q)
	if err != nil {
		return &Query{err: err}
	}

	query := "SELECT r.Content FROM Records r"
	var args []interface{}
	for i, t := range terms {
		query += fmt.Sprintf(" JOIN RecordLabels l%d ON l%d.UploadID = r.UploadID AND l%d.RecordID = r.RecordID AND l%d.Name = ? AND l%d.Value = ?", i, i, i, i, i)
		args = append(args, t[0], t[1])
	}
	query += " ORDER BY r.UploadID, r.RecordID"

	rows, err := db.sql.Query(query, args...)
	if err != nil {
		return &Query{err: err}
	}
	return &Query{rows: rows}
}

// parseQuery splits q into label/value terms.
func parseQuery(q string) ([][2]string, error) {
	var terms [][2]string
	for _, f := range strings.Fields(q) {
		name, value, ok := strings.Cut(f, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed query term %q", f)
		}
		terms = append(terms, [2]string{name, value})
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty query")
	}
	return terms, nil
}

// A Query iterates over the records matched by a search.
// Its API is modeled on sql.Rows.
type Query struct {
	rows *sql.Rows
	rec  benchjson.Record
	err  error
}

// Next advances to the next matching record.
func (q *Query) Next() bool {
	if q.err != nil || q.rows == nil {
		return false
	}
	if !q.rows.Next() {
		q.err = q.rows.Err()
		return false
	}
	var content []byte
	if q.err = q.rows.Scan(&content); q.err != nil {
		return false
	}
	q.rec = benchjson.Record{}
	q.err = json.Unmarshal(content, &q.rec)
	return q.err == nil
}

// Record returns the most recent record returned by Next.
func (q *Query) Record() *benchjson.Record {
	return &q.rec
}

// Err returns the error that stopped Next, if any.
func (q *Query) Err() error {
	return q.err
}

// Close frees the resources held by the query.
func (q *Query) Close() error {
	if q.rows != nil {
		return q.rows.Close()
	}
	return nil
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	if err := db.insertUpload.Close(); err != nil {
		return err
	}
	if err := db.insertRecord.Close(); err != nil {
		return err
	}
	if err := db.insertLabel.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
