// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchjson

import (
	"bytes"
	"encoding/json"
	"io"
)

// A Writer writes records to a report document.
//
// Records are validated before they are written, so a document
// produced by a Writer always reads back cleanly.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewWriter returns a Writer that emits a line-delimited JSON report
// document to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write validates rec and appends it to the document.
func (w *Writer) Write(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	enc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	w.buf.Write(enc)
	w.buf.WriteByte('\n')

	// Flush the buffer out to the io.Writer. Write to the buffer
	// can't fail, so we only have to check if this fails.
	_, err = w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

// WriteAll writes every record in recs to w as one report document.
func WriteAll(w io.Writer, recs []Record) error {
	bw := NewWriter(w)
	for i := range recs {
		if err := bw.Write(&recs[i]); err != nil {
			return err
		}
	}
	return nil
}
