// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"encoding/binary"
	"io"

	"github.com/plasma-umass/go-dwarf/arch"
)

// A Range is a half-open address interval [Low, High).
type Range struct {
	Low, High uint64
}

// Contains reports whether r contains addr.
func (r Range) Contains(addr uint64) bool {
	return r.Low <= addr && addr < r.High
}

// A RangeList is a list of address ranges associated with a DIE,
// backed by either the flat DWARF 4 .debug_ranges encoding or the
// tagged DWARF 5 .debug_rnglists encoding.
type RangeList struct {
	// sec is the backing slice, positioned at the first entry. A nil
	// sec is an empty list.
	sec    *Slice
	base   uint64
	dwarf5 bool

	// u resolves indexed DWARF 5 entries through .debug_addr. It may
	// be nil for lists that contain none.
	u Unit
}

// NewRangeList returns a range list whose entries begin at off in sec.
// addrSize is the enclosing compilation unit's address size and base
// its low PC (or 0); dwarf5 selects the .debug_rnglists encoding. u
// may be nil if the list contains no indexed entries.
func NewRangeList(sec *Slice, off uint64, addrSize int, base uint64, dwarf5 bool, u Unit) (RangeList, error) {
	return newRangeListAt(sec, off, addrSize, base, dwarf5, u)
}

func newRangeListAt(sec *Slice, off uint64, addrSize int, base uint64, dwarf5 bool, u Unit) (RangeList, error) {
	if off > sec.Len() {
		return RangeList{}, &FormatError{Sect: sec.Sect, Off: sec.Start + off,
			Msg: "range list offset out of bounds"}
	}
	ns, err := sec.WithAddrSize(addrSize)
	if err != nil {
		return RangeList{}, err
	}
	ns.P = ns.P[off:]
	ns.Start += off
	return RangeList{sec: ns, base: base, dwarf5: dwarf5, u: u}, nil
}

// NewSyntheticRangeList returns an in-memory range list holding the
// given ranges. It is useful for representing a contiguous low/high PC
// pair in the same shape as a decoded list.
func NewSyntheticRangeList(ranges ...Range) RangeList {
	buf := make([]byte, 0, (len(ranges)+1)*16)
	for _, r := range ranges {
		buf = binary.LittleEndian.AppendUint64(buf, r.Low)
		buf = binary.LittleEndian.AppendUint64(buf, r.High)
	}
	buf = append(buf, make([]byte, 16)...)
	sec := NewSlice(SectionRanges, buf, arch.NewLayout(binary.LittleEndian, 8))
	return RangeList{sec: sec}
}

// Iter returns an iterator over the entries of rl.
func (rl RangeList) Iter() *RangeIter {
	return &RangeIter{rl: rl, base: rl.base}
}

// Contains reports whether any range in rl contains addr.
func (rl RangeList) Contains(addr uint64) (bool, error) {
	it := rl.Iter()
	var r Range
	for {
		switch err := it.Next(&r); err {
		case nil:
			if r.Contains(addr) {
				return true, nil
			}
		case io.EOF:
			return false, nil
		default:
			return false, err
		}
	}
}

// All decodes the whole list.
func (rl RangeList) All() ([]Range, error) {
	var out []Range
	it := rl.Iter()
	var r Range
	for {
		switch err := it.Next(&r); err {
		case nil:
			out = append(out, r)
		case io.EOF:
			return out, nil
		default:
			return nil, err
		}
	}
}

// A RangeIter iterates over a RangeList. Entries are produced in file
// order.
type RangeIter struct {
	rl   RangeList
	base uint64
	pos  uint64
	done bool
}

// Next decodes the next entry into *r. It returns io.EOF when the list
// is exhausted.
func (it *RangeIter) Next(r *Range) error {
	if it.done || it.rl.sec == nil {
		return io.EOF
	}
	cur := NewCursor(it.rl.sec, it.pos)
	var err error
	if it.rl.dwarf5 {
		err = it.next5(cur, r)
	} else {
		err = it.next4(cur, r)
	}
	if err != nil {
		it.done = true
		return err
	}
	it.pos = cur.Pos()
	return nil
}

// next4 reads .debug_ranges entries (DWARF 4 section 2.17.3): pairs of
// addresses, where (0, 0) terminates the list and a first word of all
// ones selects a new base address.
func (it *RangeIter) next4(cur *Cursor, r *Range) error {
	// The largest representable value of the section's address size
	// marks a base address selection.
	largest := ^uint64(0)
	if size := it.rl.sec.AddrSize(); size < 8 {
		largest = 1<<(8*uint(size)) - 1
	}

	for {
		low := cur.Address()
		high := cur.Address()
		if err := cur.Err(); err != nil {
			return err
		}

		switch {
		case low == 0 && high == 0:
			return io.EOF
		case low == largest:
			it.base = high
		default:
			r.Low = it.base + low
			r.High = it.base + high
			return nil
		}
	}
}

// next5 reads .debug_rnglists entries (DWARF 5 section 2.17.3). The
// indexed kinds resolve through .debug_addr using the unit the list
// was built from.
func (it *RangeIter) next5(cur *Cursor, r *Range) error {
	for {
		if cur.End() {
			// Tolerate streams that stop without an explicit
			// end_of_list.
			if err := cur.Err(); err != nil {
				return err
			}
			return io.EOF
		}

		kind := RLE(cur.Uint8())
		switch kind {
		case RLEEndOfList:
			return io.EOF

		case RLEBaseAddressx:
			index := cur.ULEB128()
			if err := cur.Err(); err != nil {
				return err
			}
			base, err := it.lookupAddr(cur, index)
			if err != nil {
				return err
			}
			it.base = base

		case RLEStartxEndx:
			lowIdx := cur.ULEB128()
			highIdx := cur.ULEB128()
			if err := cur.Err(); err != nil {
				return err
			}
			low, err := it.lookupAddr(cur, lowIdx)
			if err != nil {
				return err
			}
			high, err := it.lookupAddr(cur, highIdx)
			if err != nil {
				return err
			}
			r.Low, r.High = low, high
			return nil

		case RLEStartxLength:
			lowIdx := cur.ULEB128()
			length := cur.ULEB128()
			if err := cur.Err(); err != nil {
				return err
			}
			low, err := it.lookupAddr(cur, lowIdx)
			if err != nil {
				return err
			}
			r.Low, r.High = low, low+length
			return nil

		case RLEOffsetPair:
			low := cur.ULEB128()
			high := cur.ULEB128()
			if err := cur.Err(); err != nil {
				return err
			}
			r.Low = it.base + low
			r.High = it.base + high
			return nil

		case RLEBaseAddress:
			base := cur.Address()
			if err := cur.Err(); err != nil {
				return err
			}
			it.base = base

		case RLEStartEnd:
			r.Low = cur.Address()
			r.High = cur.Address()
			return cur.Err()

		case RLEStartLength:
			low := cur.Address()
			length := cur.ULEB128()
			if err := cur.Err(); err != nil {
				return err
			}
			r.Low, r.High = low, low+length
			return nil

		default:
			return &FormatError{Sect: it.rl.sec.Sect, Off: cur.SectionOffset() - 1,
				Msg: "unknown range-list entry kind " + kind.String()}
		}
	}
}

func (it *RangeIter) lookupAddr(cur *Cursor, index uint64) (uint64, error) {
	if it.rl.u == nil {
		return 0, &FormatError{Sect: it.rl.sec.Sect, Off: cur.SectionOffset(),
			Msg: "indexed range-list entry requires a compilation unit for .debug_addr lookup"}
	}
	return lookupAddr(it.rl.u, index)
}
