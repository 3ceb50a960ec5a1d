// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package data provides the tabular input feeding data-driven
// scenarios. A Source hands out its rows round-robin to unboundedly
// many concurrent workers through a single atomic cursor.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// Row maps column names to the values of one data record.
type Row map[string]string

// Source is a round-robin provider of parameter rows. Headers and rows
// are immutable after construction; only the cursor advances.
type Source struct {
	headers []string
	rows    []Row
	cursor  atomic.Uint64
}

// NewSource builds a Source from CSV input. The first record is the
// header row; every following record is one data row. Standard CSV
// double-quote escaping applies. An input without any data rows is a
// construction error.
func NewSource(r io.Reader) (*Source, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("data: reading csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("data: need a header row and at least one data row, got %d records", len(records))
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	return &Source{headers: headers, rows: rows}, nil
}

// NewSourceFromFile reads filename and builds a Source from it.
func NewSourceFromFile(filename string) (*Source, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	defer f.Close()
	return NewSource(f)
}

// Headers returns the column names in input order.
func (s *Source) Headers() []string {
	return s.headers
}

// Len returns the number of data rows.
func (s *Source) Len() int {
	return len(s.rows)
}

// Next returns the next row in round-robin order. It is safe to call
// from any number of concurrent callers; each call observes a distinct
// cursor position.
func (s *Source) Next() Row {
	n := s.cursor.Add(1) - 1
	return s.rows[n%uint64(len(s.rows))]
}

// Reset sets the cursor back to the first row. Calling Reset while
// other goroutines read from the source needs external coordination.
func (s *Source) Reset() {
	s.cursor.Store(0)
}
