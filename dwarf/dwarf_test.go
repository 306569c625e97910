// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"encoding/binary"

	"github.com/plasma-umass/go-dwarf/arch"
)

// Test scaffolding shared by the decoder tests: little-endian byte
// builders and in-memory implementations of the Sections and Unit
// collaborators.

func appendULEB(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

func appendSLEB(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// A builder assembles little-endian test sections.
type builder struct {
	p []byte
}

func (b *builder) u8(v uint8)    { b.p = append(b.p, v) }
func (b *builder) u16(v uint16)  { b.p = binary.LittleEndian.AppendUint16(b.p, v) }
func (b *builder) u32(v uint32)  { b.p = binary.LittleEndian.AppendUint32(b.p, v) }
func (b *builder) u64(v uint64)  { b.p = binary.LittleEndian.AppendUint64(b.p, v) }
func (b *builder) uleb(v uint64) { b.p = appendULEB(b.p, v) }
func (b *builder) sleb(v int64)  { b.p = appendSLEB(b.p, v) }
func (b *builder) cstr(s string) { b.p = append(append(b.p, s...), 0) }
func (b *builder) raw(p []byte)  { b.p = append(b.p, p...) }

func (b *builder) addr(size int, v uint64) {
	switch size {
	case 4:
		b.u32(uint32(v))
	case 8:
		b.u64(v)
	default:
		panic("bad address size")
	}
}

// slice wraps the built bytes in a little-endian Slice.
func (b *builder) slice(t SectionType, addrSize int) *Slice {
	return NewSlice(t, b.p, arch.NewLayout(binary.LittleEndian, addrSize))
}

// slice32 is slice with the DWARF 32-bit format already established.
func (b *builder) slice32(t SectionType, addrSize int) *Slice {
	s := b.slice(t, addrSize)
	s.Format = Dwarf32
	return s
}

// fakeSections is an in-memory section provider.
type fakeSections map[SectionType]*Slice

func (f fakeSections) Section(t SectionType) (*Slice, error) {
	s, ok := f[t]
	if !ok {
		return nil, &FormatError{Sect: t, Msg: "no such section"}
	}
	return s, nil
}

// fakeDIE is the opaque DIE produced by fakeUnit.
type fakeDIE struct {
	u   *fakeUnit
	off uint64
}

// fakeUnit is an in-memory compilation unit handle.
type fakeUnit struct {
	data    *Slice
	off     uint64
	secs    Sections
	units   []Unit
	lowPC   *uint64
	addrBase       *uint64
	strOffsetsBase *uint64
	typeUnits      map[uint64]DIE
}

func (u *fakeUnit) Data() *Slice          { return u.data }
func (u *fakeUnit) SectionOffset() uint64 { return u.off }
func (u *fakeUnit) Sections() Sections    { return u.secs }

func (u *fakeUnit) Units() []Unit {
	if u.units != nil {
		return u.units
	}
	return []Unit{u}
}

func (u *fakeUnit) LowPC() (uint64, bool) {
	if u.lowPC == nil {
		return 0, false
	}
	return *u.lowPC, true
}

func (u *fakeUnit) AddrBase() (uint64, bool) {
	if u.addrBase == nil {
		return 0, false
	}
	return *u.addrBase, true
}

func (u *fakeUnit) StrOffsetsBase() (uint64, bool) {
	if u.strOffsetsBase == nil {
		return 0, false
	}
	return *u.strOffsetsBase, true
}

func (u *fakeUnit) DIEAt(off uint64) DIE { return fakeDIE{u, off} }

func (u *fakeUnit) TypeUnit(sig uint64) (DIE, bool) {
	d, ok := u.typeUnits[sig]
	return d, ok
}

func ptr(v uint64) *uint64 { return &v }
