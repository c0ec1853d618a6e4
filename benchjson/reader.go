// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// A Reader reads a line-delimited JSON report document.
//
// Its API is modeled on bufio.Scanner: call Scan to advance to the
// next record, Record to retrieve it, and Err once Scan returns
// false. Blank lines are skipped. Every record is validated against
// schema v3 as it is read; a record that decodes but fails
// validation stops the Reader with a *SyntaxError.
type Reader struct {
	s        *bufio.Scanner
	fileName string
	line     int

	rec Record
	err error
}

// A SyntaxError describes a malformed record on a particular line of
// a report document.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Pos() (fileName string, line int) {
	return e.FileName, e.Line
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// NewReader constructs a Reader that parses a report document from r.
// fileName is used in error messages; it is purely diagnostic.
func NewReader(r io.Reader, fileName string) *Reader {
	reader := new(Reader)
	reader.Reset(r, fileName)
	return reader
}

// Reset resets the Reader to begin reading from a new input.
func (r *Reader) Reset(ior io.Reader, fileName string) {
	if fileName == "" {
		fileName = "<unknown>"
	}
	r.s = bufio.NewScanner(ior)
	r.s.Buffer(nil, 16<<20)
	r.fileName = fileName
	r.line = 0
	r.rec = Record{}
	r.err = nil
}

// Scan advances the Reader to the next record in the document and
// reports whether one was read.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for r.s.Scan() {
		r.line++
		line := bytes.TrimSpace(r.s.Bytes())
		if len(line) == 0 {
			continue
		}
		r.rec = Record{}
		if err := json.Unmarshal(line, &r.rec); err != nil {
			r.err = &SyntaxError{r.fileName, r.line, err.Error()}
			return false
		}
		if err := r.rec.Validate(); err != nil {
			r.err = &SyntaxError{r.fileName, r.line, err.Error()}
			return false
		}
		return true
	}
	r.err = r.s.Err()
	return false
}

// Record returns the record read by the last call to Scan. The
// Reader retains ownership of the returned pointer; callers that
// need to keep a record across Scan calls must copy it.
func (r *Reader) Record() *Record {
	return &r.rec
}

// Err returns the error that stopped Scan, if any. Reaching the end
// of the document is not an error.
func (r *Reader) Err() error {
	return r.err
}

// ReadAll decodes and validates every record in a report document.
func ReadAll(ior io.Reader, fileName string) ([]Record, error) {
	r := NewReader(ior, fileName)
	var recs []Record
	for r.Scan() {
		recs = append(recs, *r.Record())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}
