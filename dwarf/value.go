// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import "fmt"

// A Value is a form-encoded attribute value stored in a compilation
// unit's section slice. Projections decode the raw bytes under the
// value's form; they are deterministic and idempotent, and fail with
// a TypeMismatchError when the form does not fit the requested type.
type Value struct {
	u    Unit
	form Form
	cls  Class
	off  uint64

	// implicit_const values store their payload in the abbreviation
	// table rather than the unit's byte stream.
	implicit    int64
	hasImplicit bool
}

// NewValue returns a value with the given form whose encoding begins
// at the unit-slice-relative offset off.
//
// If cls is ClassInvalid, the class implied by the form is used. If
// form is FormIndirect, the actual form is resolved from the byte
// stream immediately: ULEB128 form codes are read until a non-indirect
// form is obtained, and the value's form, class, and offset are
// replaced, so an indirect value behaves identically to one
// constructed directly with the resolved form.
func NewValue(u Unit, form Form, cls Class, off uint64) (Value, error) {
	if form == FormIndirect {
		c := NewCursor(u.Data(), off)
		for form == FormIndirect {
			form = Form(c.ULEB128())
		}
		if err := c.Err(); err != nil {
			return Value{}, err
		}
		if form == FormImplicitConst {
			return Value{}, formatError(u.Data().Start+off, "indirect form resolves to implicit_const, which has no encoding")
		}
		cls = ClassInvalid
		off = c.Pos()
	}
	if cls == ClassInvalid {
		cls = DefaultClass(form)
	}
	return Value{u: u, form: form, cls: cls, off: off}, nil
}

// NewImplicitConstValue returns a value of form implicit_const with
// the given payload, which the producer stored in the abbreviation
// table.
func NewImplicitConstValue(u Unit, cls Class, payload int64) Value {
	if cls == ClassInvalid {
		cls = ClassSConstant
	}
	return Value{u: u, form: FormImplicitConst, cls: cls, implicit: payload, hasImplicit: true}
}

// Form returns the value's form code.
func (v Value) Form() Form { return v.form }

// Class returns the value's semantic class.
func (v Value) Class() Class { return v.cls }

// SectionOffset returns the offset of the value's encoding within
// .debug_info.
func (v Value) SectionOffset() uint64 {
	return v.u.SectionOffset() + v.off
}

func (v Value) cursor() *Cursor {
	return NewCursor(v.u.Data(), v.off)
}

func (v Value) mismatch(as string) error {
	return &TypeMismatchError{Form: v.form, Class: v.cls, As: as}
}

// Address decodes an address-class value. Direct addr values are read
// from the unit; the DWARF 5 index forms (addrx, addrx1..addrx4) are
// resolved through the unit's table in .debug_addr.
func (v Value) Address() (uint64, error) {
	cur := v.cursor()
	var index uint64
	switch v.form {
	case FormAddr:
		addr := cur.Address()
		return addr, cur.Err()
	case FormAddrx:
		index = cur.ULEB128()
	case FormAddrx1:
		index = uint64(cur.Uint8())
	case FormAddrx2:
		index = uint64(cur.Uint16())
	case FormAddrx3:
		index = uint64(cur.Uint24())
	case FormAddrx4:
		index = uint64(cur.Uint32())
	default:
		return 0, v.mismatch("address")
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}
	return lookupAddr(v.u, index)
}

// lookupAddr resolves slot index of the unit's address table in
// .debug_addr.
func lookupAddr(u Unit, index uint64) (uint64, error) {
	sec, err := u.Sections().Section(SectionAddr)
	if err != nil {
		return 0, err
	}
	base, ok := u.AddrBase()
	if !ok {
		// Without DW_AT_addr_base, assume the unit's table is the
		// section's first, directly past the header: initial length
		// (4 or 12 bytes), version (2), address size (1), segment
		// selector size (1).
		c := NewCursor(sec, 0)
		_, format := c.InitialLength()
		c.Skip(4)
		if err := c.Err(); err != nil {
			return 0, err
		}
		base = c.Pos()
		sec = withFormat(sec, format)
	}
	addrSize := u.Data().AddrSize()
	asec, err := sec.WithAddrSize(addrSize)
	if err != nil {
		return 0, err
	}
	c := NewCursor(asec, 0)
	c.Seek(base + index*uint64(addrSize))
	addr := c.Address()
	return addr, c.Err()
}

// UConstant decodes a constant-class value as unsigned.
func (v Value) UConstant() (uint64, error) {
	cur := v.cursor()
	var x uint64
	switch v.form {
	case FormData1:
		x = uint64(cur.Uint8())
	case FormData2:
		x = uint64(cur.Uint16())
	case FormData4:
		x = uint64(cur.Uint32())
	case FormData8:
		x = cur.Uint64()
	case FormUdata:
		x = cur.ULEB128()
	case FormImplicitConst:
		return uint64(v.implicit), nil
	default:
		return 0, v.mismatch("uconstant")
	}
	return x, cur.Err()
}

// SConstant decodes a constant-class value as signed. Fixed-width
// reads are sign-extended.
func (v Value) SConstant() (int64, error) {
	cur := v.cursor()
	var x int64
	switch v.form {
	case FormData1:
		x = int64(cur.Int8())
	case FormData2:
		x = int64(cur.Int16())
	case FormData4:
		x = int64(cur.Int32())
	case FormData8:
		x = cur.Int64()
	case FormSdata:
		x = cur.SLEB128()
	case FormImplicitConst:
		return v.implicit, nil
	default:
		return 0, v.mismatch("sconstant")
	}
	return x, cur.Err()
}

// Block decodes a block-class value and returns a view of its bytes.
func (v Value) Block() ([]byte, error) {
	cur := v.cursor()
	var size uint64
	switch v.form {
	case FormBlock1:
		size = uint64(cur.Uint8())
	case FormBlock2:
		size = uint64(cur.Uint16())
	case FormBlock4:
		size = uint64(cur.Uint32())
	case FormBlock, FormExprloc:
		size = cur.ULEB128()
	default:
		return nil, v.mismatch("block")
	}
	b := cur.take(size)
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// An Exprloc is a DWARF expression: a view of the expression bytes
// plus the unit and section offset they came from. Evaluating the
// expression is outside this package.
type Exprloc struct {
	Unit Unit

	// Off is the offset of the expression bytes within .debug_info.
	Off uint64

	// Data is a view of the expression bytes.
	Data []byte
}

// Exprloc decodes an expression-location value. Producers before
// DWARF 4 encoded expressions as blocks, so the block forms are
// accepted as well.
func (v Value) Exprloc() (Exprloc, error) {
	cur := v.cursor()
	var size uint64
	switch v.form {
	case FormExprloc, FormBlock:
		size = cur.ULEB128()
	case FormBlock1:
		size = uint64(cur.Uint8())
	case FormBlock2:
		size = uint64(cur.Uint16())
	case FormBlock4:
		size = uint64(cur.Uint32())
	default:
		return Exprloc{}, v.mismatch("exprloc")
	}
	off := v.u.SectionOffset() + cur.Pos()
	b := cur.take(size)
	if err := cur.Err(); err != nil {
		return Exprloc{}, err
	}
	return Exprloc{Unit: v.u, Off: off, Data: b}, nil
}

// Flag decodes a flag-class value.
func (v Value) Flag() (bool, error) {
	switch v.form {
	case FormFlag:
		cur := v.cursor()
		b := cur.Uint8()
		return b != 0, cur.Err()
	case FormFlagPresent:
		return true, nil
	}
	return false, v.mismatch("flag")
}

// Str decodes a string-class value. Inline strings are read from the
// unit; strp and line_strp chase an offset into .debug_str or
// .debug_line_str; the DWARF 5 index forms (strx, strx1..strx4) go
// through the unit's offset table in .debug_str_offsets and then into
// .debug_str. No transcoding is performed.
func (v Value) Str() (string, error) {
	cur := v.cursor()
	var index uint64
	switch v.form {
	case FormString:
		s := cur.CString()
		return string(s), cur.Err()
	case FormStrp:
		off := cur.Offset()
		if err := cur.Err(); err != nil {
			return "", err
		}
		return readStringAt(v.u.Sections(), SectionStr, off)
	case FormLineStrp:
		off := cur.Offset()
		if err := cur.Err(); err != nil {
			return "", err
		}
		return readStringAt(v.u.Sections(), SectionLineStr, off)
	case FormStrx:
		index = cur.ULEB128()
	case FormStrx1:
		index = uint64(cur.Uint8())
	case FormStrx2:
		index = uint64(cur.Uint16())
	case FormStrx3:
		index = uint64(cur.Uint24())
	case FormStrx4:
		index = uint64(cur.Uint32())
	default:
		return "", v.mismatch("string")
	}
	if err := cur.Err(); err != nil {
		return "", err
	}
	return lookupStrx(v.u, index)
}

// readStringAt reads the NUL-terminated string at off in the given
// string section.
func readStringAt(sections Sections, t SectionType, off uint64) (string, error) {
	sec, err := sections.Section(t)
	if err != nil {
		return "", err
	}
	c := NewCursor(sec, off)
	s := c.CString()
	return string(s), c.Err()
}

// lookupStrx resolves slot index of the unit's string offset table in
// .debug_str_offsets.
func lookupStrx(u Unit, index uint64) (string, error) {
	sec, err := u.Sections().Section(SectionStrOffsets)
	if err != nil {
		return "", err
	}
	// The offset width follows the section's own 32/64-bit format,
	// read from its initial length: a 4-byte length makes an 8-byte
	// header (length + version + padding) and 4-byte slots, a 12-byte
	// length a 16-byte header and 8-byte slots.
	c := NewCursor(sec, 0)
	_, format := c.InitialLength()
	c.Skip(4)
	if err := c.Err(); err != nil {
		return "", err
	}
	base, ok := u.StrOffsetsBase()
	if !ok {
		base = c.Pos()
	}
	osec := withFormat(sec, format)
	oc := NewCursor(osec, base+index*uint64(format.OffsetSize()))
	off := oc.Offset()
	if err := oc.Err(); err != nil {
		return "", err
	}
	return readStringAt(u.Sections(), SectionStr, off)
}

// Reference decodes a reference-class value and materializes the
// referenced DIE.
//
// The unit-relative forms (ref1..ref8, ref_udata) resolve within v's
// unit. ref_addr is an absolute .debug_info offset; the containing
// unit is the one whose start offset is the largest not exceeding the
// target. ref_sig8 is an 8-byte signature looked up among the type
// units; an unknown signature is a format error.
func (v Value) Reference() (DIE, error) {
	cur := v.cursor()
	var off uint64
	switch v.form {
	case FormRef1:
		off = uint64(cur.Uint8())
	case FormRef2:
		off = uint64(cur.Uint16())
	case FormRef4:
		off = uint64(cur.Uint32())
	case FormRef8:
		off = cur.Uint64()
	case FormRefUdata:
		off = cur.ULEB128()

	case FormRefAddr:
		off = cur.Offset()
		if err := cur.Err(); err != nil {
			return nil, err
		}
		// ref_addr is rare in practice, so a linear scan is fine; no
		// caching.
		var base Unit
		for _, u := range v.u.Units() {
			if u.SectionOffset() > off {
				break
			}
			base = u
		}
		if base == nil {
			return nil, formatError(off, "ref_addr target %#x precedes all compilation units", off)
		}
		return base.DIEAt(off - base.SectionOffset()), nil

	case FormRefSig8:
		sig := cur.Uint64()
		if err := cur.Err(); err != nil {
			return nil, err
		}
		d, ok := v.u.TypeUnit(sig)
		if !ok {
			return nil, formatError(v.SectionOffset(), "unknown type signature %#016x", sig)
		}
		return d, nil

	default:
		return nil, v.mismatch("reference")
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return v.u.DIEAt(off), nil
}

// SecOffset decodes a section-offset value. Producers before DWARF 4
// encoded section offsets as data4 or data8.
func (v Value) SecOffset() (uint64, error) {
	cur := v.cursor()
	var off uint64
	switch v.form {
	case FormData4:
		off = uint64(cur.Uint32())
	case FormData8:
		off = cur.Uint64()
	case FormSecOffset:
		off = cur.Offset()
	default:
		return 0, v.mismatch("sec_offset")
	}
	return off, cur.Err()
}

// RangeList decodes a range-list value. rnglistx values index the
// offsets table of .debug_rnglists; anything else is treated as a
// section offset into .debug_ranges in the DWARF 4 encoding.
//
// The list's initial base address is the unit's DW_AT_low_pc, or 0 if
// the unit has none (in which case a well-formed list begins with a
// base address selection).
func (v Value) RangeList() (RangeList, error) {
	base := uint64(0)
	if pc, ok := v.u.LowPC(); ok {
		base = pc
	}
	addrSize := v.u.Data().AddrSize()

	if v.form == FormRnglistx {
		cur := v.cursor()
		index := cur.ULEB128()
		if err := cur.Err(); err != nil {
			return RangeList{}, err
		}
		return rnglistxList(v.u, index, addrSize, base)
	}

	off, err := v.SecOffset()
	if err != nil {
		return RangeList{}, err
	}
	sec, err := v.u.Sections().Section(SectionRanges)
	if err != nil {
		return RangeList{}, err
	}
	return newRangeListAt(sec, off, addrSize, base, false, nil)
}

// rnglistxList resolves index through the offsets table of the
// .debug_rnglists header and returns the DWARF 5 list it designates.
func rnglistxList(u Unit, index uint64, addrSize int, base uint64) (RangeList, error) {
	sec, err := u.Sections().Section(SectionRnglists)
	if err != nil {
		return RangeList{}, err
	}

	// Header: unit_length (4 or 12), version (2), address size (1),
	// segment selector size (1), offset_entry_count (4).
	hdr := NewCursor(sec, 0)
	_, format := hdr.InitialLength()
	version := hdr.Uint16()
	hdr.Skip(2)
	offsetEntryCount := hdr.Uint32()
	if err := hdr.Err(); err != nil {
		return RangeList{}, err
	}
	if version != 5 {
		return RangeList{}, formatError(0, "bad .debug_rnglists version %d", version)
	}
	if index >= uint64(offsetEntryCount) {
		return RangeList{}, formatError(hdr.Pos(),
			"rnglistx index %d out of bounds (offset table has %d entries)", index, offsetEntryCount)
	}

	offsetSize := uint64(format.OffsetSize())
	headerSize := hdr.Pos()
	osec := withFormat(sec, format)
	oc := NewCursor(osec, headerSize+index*offsetSize)
	off := oc.Offset()
	if err := oc.Err(); err != nil {
		return RangeList{}, err
	}

	// Offsets in the table are relative to the first entry region,
	// directly past the table itself.
	entryBase := headerSize + uint64(offsetEntryCount)*offsetSize
	return newRangeListAt(sec, entryBase+off, addrSize, base, true, u)
}

// withFormat returns a copy of sec with the given DWARF format. The
// underlying bytes are shared.
func withFormat(sec *Slice, format Format) *Slice {
	ns := *sec
	ns.Format = format
	return &ns
}

// String renders v for diagnostics. Decoding errors render inline
// rather than failing.
func (v Value) String() string {
	switch v.cls {
	case ClassAddress:
		a, err := v.Address()
		if err != nil {
			return valueErrString(err)
		}
		return fmt.Sprintf("%#x", a)
	case ClassBlock:
		b, err := v.Block()
		if err != nil {
			return valueErrString(err)
		}
		return fmt.Sprintf("%d byte block: % x", len(b), b)
	case ClassConstant, ClassUConstant:
		x, err := v.UConstant()
		if err != nil {
			return valueErrString(err)
		}
		if v.cls == ClassConstant {
			return fmt.Sprintf("%#x", x)
		}
		return fmt.Sprintf("%d", x)
	case ClassSConstant:
		x, err := v.SConstant()
		if err != nil {
			return valueErrString(err)
		}
		return fmt.Sprintf("%d", x)
	case ClassExprloc:
		return "<exprloc>"
	case ClassFlag:
		f, err := v.Flag()
		if err != nil {
			return valueErrString(err)
		}
		if f {
			return "true"
		}
		return "false"
	case ClassLine, ClassLocList, ClassMac, ClassRangeList, ClassSecOffset:
		off, err := v.SecOffset()
		if err != nil && v.form == FormRnglistx {
			return "<rnglistx>"
		}
		if err != nil {
			return valueErrString(err)
		}
		return fmt.Sprintf("<%s %#x>", v.cls, off)
	case ClassReference:
		return fmt.Sprintf("<%#x>", v.SectionOffset())
	case ClassString:
		s, err := v.Str()
		if err != nil {
			return valueErrString(err)
		}
		return s
	}
	return "<invalid value>"
}

func valueErrString(err error) string {
	return "<error: " + err.Error() + ">"
}
