// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"bytes"
	"fmt"

	"github.com/plasma-umass/go-dwarf/arch"
)

// A Slice is a shared immutable window over a DWARF section.
//
// Multiple live cursors, values, and iterators may reference the same
// Slice; none of them mutate it. Callers must not modify P.
type Slice struct {
	// Sect is the section this slice windows.
	Sect SectionType

	// P is the raw byte data.
	P []byte

	// Start is the offset of P[0] within the enclosing section.
	Start uint64

	// Layout is the byte order and address size of the data. The
	// address size must be 4 or 8 for slices whose decoding reads
	// addresses.
	Layout arch.Layout

	// Format is the 32/64-bit DWARF format of the data, determining
	// the width of section offsets. FormatUnknown until an initial
	// length has been seen.
	Format Format
}

// NewSlice returns a Slice over p with the given layout.
func NewSlice(sect SectionType, p []byte, layout arch.Layout) *Slice {
	return &Slice{Sect: sect, P: p, Layout: layout}
}

// AddrSize returns the size in bytes of a machine address in s.
func (s *Slice) AddrSize() int {
	return s.Layout.WordSize()
}

// WithAddrSize returns a copy of s whose address size is size. The
// underlying bytes are shared.
func (s *Slice) WithAddrSize(size int) (*Slice, error) {
	if size != 4 && size != 8 {
		return nil, &FormatError{Sect: s.Sect, Off: s.Start, Msg: fmt.Sprintf("unsupported address size %d", size)}
	}
	ns := *s
	ns.Layout = s.Layout.WithWordSize(size)
	return &ns, nil
}

// Len returns the length of s in bytes.
func (s *Slice) Len() uint64 {
	return uint64(len(s.P))
}

// Subsection reads the initial length field at off and returns a slice
// spanning the length field and the payload it delimits. The returned
// slice's Format reflects the 0xffffffff sentinel.
func (s *Slice) Subsection(off uint64) (*Slice, error) {
	c := NewCursor(s, off)
	length, format := c.InitialLength()
	if c.err != nil {
		return nil, c.err
	}
	end := c.Pos() + length
	if end > s.Len() {
		return nil, &FormatError{Sect: s.Sect, Off: s.Start + off,
			Msg: fmt.Sprintf("initial length %#x runs past end of section", length)}
	}
	ns := *s
	ns.P = s.P[off:end]
	ns.Start = s.Start + off
	ns.Format = format
	return &ns, nil
}

// A Cursor is a stateful reader over a Slice.
//
// Reads are bounds-checked. The first failed read records a
// FormatError and subsequent reads return zero values; callers check
// Err at decode boundaries rather than after every read. A Cursor must
// not be shared between goroutines.
type Cursor struct {
	s   *Slice
	off uint64
	err error
}

// NewCursor returns a cursor over s positioned at the slice-relative
// offset off.
func NewCursor(s *Slice, off uint64) *Cursor {
	c := &Cursor{s: s, off: off}
	if off > s.Len() {
		c.fail("cursor offset %#x out of range", off)
	}
	return c
}

// Err returns the first error encountered by c, or nil.
func (c *Cursor) Err() error {
	return c.err
}

// End reports whether c has reached the end of its slice or has
// failed. A failed cursor reports End so that decode loops terminate.
func (c *Cursor) End() bool {
	return c.err != nil || c.off >= c.s.Len()
}

// Pos returns c's position relative to the start of its slice.
func (c *Cursor) Pos() uint64 {
	return c.off
}

// SectionOffset returns c's position relative to the enclosing
// section.
func (c *Cursor) SectionOffset() uint64 {
	return c.s.Start + c.off
}

// Seek repositions c at the slice-relative offset pos.
func (c *Cursor) Seek(pos uint64) {
	if c.err != nil {
		return
	}
	if pos > c.s.Len() {
		c.fail("seek to %#x out of range", pos)
		return
	}
	c.off = pos
}

// Skip advances c by n bytes.
func (c *Cursor) Skip(n uint64) {
	c.take(n)
}

func (c *Cursor) fail(format string, args ...interface{}) {
	if c.err == nil {
		c.err = &FormatError{Sect: c.s.Sect, Off: c.s.Start + c.off, Msg: fmt.Sprintf(format, args...)}
	}
}

// take consumes n bytes and returns them, or nil if fewer than n
// remain.
func (c *Cursor) take(n uint64) []byte {
	if c.err != nil {
		return nil
	}
	if c.s.Len()-c.off < n {
		c.fail("section underflow reading %d bytes", n)
		return nil
	}
	b := c.s.P[c.off : c.off+n]
	c.off += n
	return b
}

func (c *Cursor) Uint8() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *Cursor) Uint16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return c.s.Layout.Uint16(b)
}

func (c *Cursor) Uint24() uint32 {
	b := c.take(3)
	if b == nil {
		return 0
	}
	return c.s.Layout.Uint24(b)
}

func (c *Cursor) Uint32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return c.s.Layout.Uint32(b)
}

func (c *Cursor) Uint64() uint64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return c.s.Layout.Uint64(b)
}

func (c *Cursor) Int8() int8   { return int8(c.Uint8()) }
func (c *Cursor) Int16() int16 { return int16(c.Uint16()) }
func (c *Cursor) Int32() int32 { return int32(c.Uint32()) }
func (c *Cursor) Int64() int64 { return int64(c.Uint64()) }

// ULEB128 reads an unsigned little-endian base-128 integer. Encodings
// longer than 10 bytes cannot fit in 64 bits and are a format error.
func (c *Cursor) ULEB128() uint64 {
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		if i == 10 {
			c.fail("ULEB128 longer than 10 bytes")
			return 0
		}
		b := c.take(1)
		if b == nil {
			return 0
		}
		v |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return v
		}
		shift += 7
	}
}

// SLEB128 reads a signed little-endian base-128 integer.
func (c *Cursor) SLEB128() int64 {
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		if i == 10 {
			c.fail("SLEB128 longer than 10 bytes")
			return 0
		}
		b := c.take(1)
		if b == nil {
			return 0
		}
		v |= uint64(b[0]&0x7f) << shift
		shift += 7
		if b[0]&0x80 == 0 {
			if shift < 64 && b[0]&0x40 != 0 {
				// Sign-extend from the MSB of the last group.
				v |= ^uint64(0) << shift
			}
			return int64(v)
		}
	}
}

// CString reads a NUL-terminated string and advances past the NUL. The
// returned bytes are a view into the slice and omit the NUL. A missing
// terminator is a format error.
func (c *Cursor) CString() []byte {
	if c.err != nil {
		return nil
	}
	rest := c.s.P[c.off:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		c.fail("unterminated string")
		return nil
	}
	c.off += uint64(n) + 1
	return rest[:n]
}

// Address reads a machine address of the slice's address size.
func (c *Cursor) Address() uint64 {
	size := c.s.AddrSize()
	if size != 4 && size != 8 {
		c.fail("unsupported address size %d", size)
		return 0
	}
	b := c.take(uint64(size))
	if b == nil {
		return 0
	}
	return c.s.Layout.Word(b)
}

// Offset reads a section offset: 4 or 8 bytes depending on the slice's
// DWARF format.
func (c *Cursor) Offset() uint64 {
	switch c.s.Format {
	case Dwarf32:
		return uint64(c.Uint32())
	case Dwarf64:
		return c.Uint64()
	}
	c.fail("offset read in unknown DWARF format")
	return 0
}

// InitialLength reads a DWARF initial length field and returns the
// payload length and the format it implies. The 32-bit sentinel
// 0xffffffff introduces a 64-bit length; reserved values are a format
// error.
func (c *Cursor) InitialLength() (uint64, Format) {
	v := c.Uint32()
	if c.err != nil {
		return 0, FormatUnknown
	}
	if v == 0xffffffff {
		return c.Uint64(), Dwarf64
	}
	if v >= 0xfffffff0 {
		c.fail("reserved initial length %#x", v)
		return 0, FormatUnknown
	}
	return uint64(v), Dwarf32
}

// SkipInitialLength advances past the initial length field at c's
// position.
func (c *Cursor) SkipInitialLength() {
	c.InitialLength()
}

// SkipForm advances past a value encoded with the given form without
// decoding it.
func (c *Cursor) SkipForm(f Form) {
	switch f {
	// No data.
	case FormFlagPresent, FormImplicitConst:

	// Fixed width.
	case FormData1, FormFlag, FormRef1, FormStrx1, FormAddrx1:
		c.Skip(1)
	case FormData2, FormRef2, FormStrx2, FormAddrx2:
		c.Skip(2)
	case FormStrx3, FormAddrx3:
		c.Skip(3)
	case FormData4, FormRef4, FormStrx4, FormAddrx4, FormRefSup4:
		c.Skip(4)
	case FormData8, FormRef8, FormRefSig8, FormRefSup8:
		c.Skip(8)
	case FormData16:
		c.Skip(16)
	case FormAddr:
		c.Skip(uint64(c.s.AddrSize()))

	// Offset sized.
	case FormStrp, FormLineStrp, FormStrpSup, FormSecOffset, FormRefAddr:
		c.Offset()

	// Variable length.
	case FormUdata, FormRefUdata, FormStrx, FormAddrx, FormLoclistx, FormRnglistx:
		c.ULEB128()
	case FormSdata:
		c.SLEB128()

	// Length prefixed.
	case FormBlock1:
		c.Skip(uint64(c.Uint8()))
	case FormBlock2:
		c.Skip(uint64(c.Uint16()))
	case FormBlock4:
		c.Skip(uint64(c.Uint32()))
	case FormBlock, FormExprloc:
		c.Skip(c.ULEB128())
	case FormString:
		c.CString()

	case FormIndirect:
		c.SkipForm(Form(c.ULEB128()))

	default:
		c.fail("cannot skip unknown form %s", f)
	}
}
