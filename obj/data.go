// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"fmt"

	"github.com/plasma-umass/go-dwarf/arch"
	"github.com/plasma-umass/go-dwarf/dwarf"
)

// Data represents byte data in an object file.
type Data struct {
	// Addr is the address at which this data starts.
	//
	// If this Data is for a Section, this is the base address of the
	// section.
	Addr uint64

	// P stores the raw byte data. Callers must not modify this.
	P []byte

	// Layout specifies the byte order and word size of this data. This
	// is inferred from the object file's architecture.
	Layout arch.Layout
}

// Slice returns d's bytes as a DWARF section slice of the given
// section type.
func (d *Data) Slice(t dwarf.SectionType) *dwarf.Slice {
	return dwarf.NewSlice(t, d.P, d.Layout)
}

// DWARF returns a dwarf.Sections view of f's debug sections.
//
// Section lookups are by the conventional ELF section names
// (".debug_info" and friends). The section bytes are loaded lazily by
// f and cached there, so repeated lookups are cheap.
func DWARF(f File) dwarf.Sections {
	return &dwarfSections{f: f}
}

type dwarfSections struct {
	f File
}

func (ds *dwarfSections) Section(t dwarf.SectionType) (*dwarf.Slice, error) {
	s := ds.f.SectionByName(t.Name())
	if s == nil {
		return nil, fmt.Errorf("object has no %s section", t.Name())
	}
	d, err := s.Data()
	if err != nil {
		return nil, fmt.Errorf("reading section %s: %w", t.Name(), err)
	}
	return d.Slice(t), nil
}
