// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package obj locates debug-info sections in object files.
//
// It provides the section bytes that the dwarf package decodes,
// loading each section lazily and memory-mapping it when the input is
// a real file.
package obj

import (
	"fmt"
	"io"

	"github.com/plasma-umass/go-dwarf/arch"
)

// Open attempts to open r as a known object file format.
func Open(r io.ReaderAt) (File, error) {
	if isElf, f, err := openElf(r); isElf {
		return f, err
	}
	return nil, fmt.Errorf("unrecognized object file format")
}

// A File represents an object file.
type File interface {
	// Close closes this object file, releasing any OS resources used by
	// it.
	//
	// It's possible that referencing a Data object returned from this
	// File after closing the File will panic.
	Close()

	// Info returns metadata about the whole object file.
	Info() FileInfo

	// Sections returns a slice of sections in this object file, indexed
	// by SectionID.
	//
	// Each section has a name that generally follows a platform
	// convention, such as ".text" or ".debug_line".
	Sections() []*Section

	// Section returns the i'th section. If i is out of range, it panics.
	Section(i SectionID) *Section

	// SectionByName returns the section with the given name, or nil if
	// the object has no such section.
	SectionByName(name string) *Section

	// sectionData implements Section.Data. On success, it should
	// populate *d and return d, nil. If there's an error, it should
	// return nil and the error.
	sectionData(s *Section, d *Data) (*Data, error)
}

type FileInfo struct {
	// Arch is the machine architecture of this object file, or
	// nil if unknown.
	Arch *arch.Arch
}

// SectionID is an index for a section in an object file. These indexes
// are compact and start at 0.
//
// These may not correspond to any section numbering used by the object
// format itself; see Section.RawID for this. For example, ELF section
// number 0 is reserved, so this slice starts at section 1 in ELF
// objects.
type SectionID int

// A Section is a contiguous region of address space in an object file.
type Section struct {
	// File is the object file containing this section.
	File File

	// Name is the name of this section. This typically follows platform
	// conventions, such as ".text" or ".debug_info", but isn't
	// necessarily meaningful.
	Name string

	// ID is the obj-internal index of this section.
	ID SectionID

	// RawID is the index of this section in the underlying format's
	// representation, or -1 if this is not meaningful.
	RawID int

	// Addr is the virtual address at which this section begins in
	// memory, or 0 if either this section should not be loaded into
	// memory, or it has not yet been assigned a meaningful address.
	Addr uint64

	// Size is the size of this section in memory, in bytes.
	//
	// This may not be the size of the section on disk. For example, the
	// section on disk may be compressed.
	Size uint64

	// SectionFlags stores flags for this section. This field is
	// embedded so Section inherits the methods of SectionFlags.
	SectionFlags
}

// Data reads this section's data.
func (s *Section) Data() (*Data, error) {
	// This approach allows the allocation of Data to be inlined into
	// the caller, where it can often be stack-allocated.
	var d Data
	return s.File.sectionData(s, &d)
}

// SectionFlags is a set of section flags.
type SectionFlags struct {
	f sectionFlags
}

type sectionFlags uint8

const (
	sectionFlagReadOnly sectionFlags = 1 << iota
	sectionFlagCompressed
)

// ReadOnly indicates a section's data is read-only.
func (s SectionFlags) ReadOnly() bool {
	return s.f&sectionFlagReadOnly != 0
}

// SetReadOnly sets the ReadOnly flag to v.
func (s *SectionFlags) SetReadOnly(v bool) {
	if v {
		s.f |= sectionFlagReadOnly
	} else {
		s.f &^= sectionFlagReadOnly
	}
}

// Compressed indicates a section's data is compressed on disk.
func (s SectionFlags) Compressed() bool {
	return s.f&sectionFlagCompressed != 0
}

// SetCompressed sets the Compressed flag to v.
func (s *SectionFlags) SetCompressed(v bool) {
	if v {
		s.f |= sectionFlagCompressed
	} else {
		s.f &^= sectionFlagCompressed
	}
}

// roundDown2 rounds x down to a multiple of y, where y must be a
// power of 2.
func roundDown2(x, y uint64) uint64 {
	if y&(y-1) != 0 {
		panic("y must be a power of 2")
	}
	return x &^ (y - 1)
}

// roundUp2 rounds x up to a multiple of y, where y must be a power
// of 2.
func roundUp2(x, y uint64) uint64 {
	if y&(y-1) != 0 {
		panic("y must be a power of 2")
	}
	return (x + y - 1) &^ (y - 1)
}
