// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwarf decodes DWARF debugging information.
//
// It implements the byte-level core of a DWARF reader: the line-number
// program state machine, range lists in both the DWARF 4 .debug_ranges
// and DWARF 5 .debug_rnglists encodings, and form-encoded attribute
// values, including the cross-section indirections introduced in
// DWARF 5 (.debug_addr, .debug_str_offsets, .debug_rnglists).
//
// The package does not locate sections on disk and does not walk the
// DIE tree. Callers supply those through the Sections, Unit, and DIE
// interfaces; the obj package provides a Sections implementation for
// ELF files.
package dwarf

// Format is the 32/64-bit format of a DWARF unit. It determines the
// size of section offsets: 4 bytes for Dwarf32, 8 bytes for Dwarf64.
// A 64-bit unit is signalled by the 0xffffffff sentinel leading its
// initial length field.
type Format int

const (
	FormatUnknown Format = iota
	Dwarf32
	Dwarf64
)

func (f Format) String() string {
	switch f {
	case Dwarf32:
		return "DWARF32"
	case Dwarf64:
		return "DWARF64"
	}
	return "DWARF??"
}

// OffsetSize returns the size in bytes of a section offset in format f,
// or 0 if the format is unknown.
func (f Format) OffsetSize() int {
	switch f {
	case Dwarf32:
		return 4
	case Dwarf64:
		return 8
	}
	return 0
}

// A SectionType names one of the DWARF sections.
type SectionType int

const (
	SectionInfo SectionType = iota
	SectionStr
	SectionLineStr
	SectionStrOffsets
	SectionAddr
	SectionRanges
	SectionRnglists
	SectionTypes
	SectionLine
	numSections
)

var sectionNames = [numSections]string{
	".debug_info",
	".debug_str",
	".debug_line_str",
	".debug_str_offsets",
	".debug_addr",
	".debug_ranges",
	".debug_rnglists",
	".debug_types",
	".debug_line",
}

// Name returns the conventional ELF section name for t, such as
// ".debug_line".
func (t SectionType) Name() string {
	if t < 0 || t >= numSections {
		return ".debug_???"
	}
	return sectionNames[t]
}

func (t SectionType) String() string {
	return t.Name()
}

// Sections provides the raw bytes of DWARF sections. Implementations
// are expected to be idempotent: the decoder may request the same
// section repeatedly, caching the result where it can.
type Sections interface {
	// Section returns the named section. It returns an error if the
	// section does not exist in the underlying object.
	Section(t SectionType) (*Slice, error)
}

// A Unit is a handle on a compilation unit (or type unit) in
// .debug_info. The DIE-level machinery that produces Units lives
// outside this package; values and range lists decoded here consult
// the Unit for its backing bytes and its DWARF 5 base attributes.
type Unit interface {
	// Data returns the unit's backing section slice. Offsets stored in
	// Values are relative to this slice.
	Data() *Slice

	// SectionOffset returns the offset of the unit's header within
	// .debug_info.
	SectionOffset() uint64

	// Sections returns the section provider for the enclosing file.
	Sections() Sections

	// Units returns all compilation units of the enclosing file in
	// section order. Used to resolve ref_addr references.
	Units() []Unit

	// LowPC returns the unit's DW_AT_low_pc, if present. It seeds the
	// base address of the unit's range lists.
	LowPC() (uint64, bool)

	// AddrBase returns the unit's DW_AT_addr_base, if present: the
	// offset in .debug_addr of the unit's address table, past the
	// section header.
	AddrBase() (uint64, bool)

	// StrOffsetsBase returns the unit's DW_AT_str_offsets_base, if
	// present: the offset in .debug_str_offsets of the unit's offset
	// table, past the section header.
	StrOffsetsBase() (uint64, bool)

	// DIEAt materializes a reference to the DIE at the given offset
	// within this unit.
	DIEAt(off uint64) DIE

	// TypeUnit looks up a type unit by its 8-byte signature and returns
	// its type DIE. Used to resolve ref_sig8 references.
	TypeUnit(sig uint64) (DIE, bool)
}

// A DIE is an opaque reference to a debugging information entry,
// produced when resolving reference-class values. Interpreting the
// entry is the caller's concern.
type DIE interface{}
