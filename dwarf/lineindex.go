// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"io"

	"github.com/plasma-umass/go-dwarf/internal/imap"
)

// A LineIndex maps program counters to line-table rows.
//
// A LineTable answers FindAddress by replaying its opcode program; the
// index instead decodes each program once and records the address
// interval every row covers, so lookups over many tables are
// logarithmic. Sequences within a program don't have to be in address
// order, and a binary may have one table per compilation unit; the
// interval map absorbs both.
type LineIndex struct {
	m imap.Imap[Row]
}

// Add decodes lt's opcode program and indexes every row it emits. A
// row covers the addresses from its own up to (but not including) the
// next row's; end_sequence rows close an interval and cover nothing.
func (ix *LineIndex) Add(lt *LineTable) error {
	it := lt.Iter()
	var prev, row Row
	have := false
	for {
		err := it.Next(&row)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if have && !prev.EndSequence && prev.Address < row.Address {
			ix.m.Insert(imap.Interval{Low: prev.Address, High: row.Address}, prev)
		}
		prev, have = row, true
	}
}

// Find returns the row covering addr.
func (ix *LineIndex) Find(addr uint64) (Row, bool) {
	_, row, ok := ix.m.Find(addr)
	return row, ok
}
