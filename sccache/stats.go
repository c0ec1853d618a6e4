// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sccache parses statistics snapshots emitted by the sccache
// build-cache tool.
//
// A snapshot is a JSON object of named counters. The exact key set
// is owned by sccache and changes between releases, so this package
// does not bind to a fixed schema: it walks whatever object it is
// given and flattens nested keys into dotted counter names, keeping
// numeric values as counters and string values as attributes.
package sccache

import (
	"fmt"
	"os"
	"strconv"

	"github.com/valyala/fastjson"
)

// A Stats is one parsed statistics snapshot.
type Stats struct {
	// Name is the snapshot name, derived from the file base name
	// without its extension, e.g. "sccache-stats-0".
	Name string

	// File is the path the snapshot was read from.
	File string

	// Counters holds the numeric counters in document order.
	// Nested objects contribute dotted names, so
	// {"cache_hits": {"counts": {"C": 3}}} yields the counter
	// "cache_hits.counts.C". Booleans count as 0 or 1.
	Counters []Counter

	// Attrs holds the string-valued entries, such as tool version
	// identifiers, under the same dotted naming scheme.
	Attrs map[string]string
}

// A Counter is a single named numeric counter.
type Counter struct {
	Name  string
	Value float64
}

// A ParseError reports that a statistics file was not valid
// structured data.
type ParseError struct {
	File string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

// ParseStats parses one snapshot from data. file names the source in
// errors and the snapshot Name.
func ParseStats(file string, data []byte) (*Stats, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, &ParseError{file, err.Error()}
	}
	if v.Type() != fastjson.TypeObject {
		return nil, &ParseError{file, fmt.Sprintf("top-level value is %s, want object", v.Type())}
	}
	s := &Stats{
		Name:  statName(file),
		File:  file,
		Attrs: make(map[string]string),
	}
	if err := s.walk("", v); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadFile parses the snapshot stored in the named file. The file is
// only read; it is never modified.
func ReadFile(file string) (*Stats, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParseStats(file, data)
}

func (s *Stats) walk(prefix string, v *fastjson.Value) error {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		var werr error
		obj.Visit(func(key []byte, elem *fastjson.Value) {
			if werr != nil {
				return
			}
			werr = s.walk(join(prefix, string(key)), elem)
		})
		return werr
	case fastjson.TypeArray:
		for i, elem := range v.GetArray() {
			if err := s.walk(join(prefix, strconv.Itoa(i)), elem); err != nil {
				return err
			}
		}
		return nil
	case fastjson.TypeNumber:
		s.Counters = append(s.Counters, Counter{prefix, v.GetFloat64()})
		return nil
	case fastjson.TypeTrue:
		s.Counters = append(s.Counters, Counter{prefix, 1})
		return nil
	case fastjson.TypeFalse:
		s.Counters = append(s.Counters, Counter{prefix, 0})
		return nil
	case fastjson.TypeString:
		s.Attrs[prefix] = string(v.GetStringBytes())
		return nil
	case fastjson.TypeNull:
		return nil
	}
	return &ParseError{s.File, fmt.Sprintf("unsupported value type %s at %q", v.Type(), prefix)}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
