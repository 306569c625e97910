// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"debug/elf"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/plasma-umass/go-dwarf/arch"
)

type elfFile struct {
	f    *elf.File
	arch *arch.Arch

	// fd is the mmap-able FD of this file, or ^0.
	fd uintptr
	// pageSize is the system page size for mmapping.
	pageSize uint64

	// elfLayout is the data layout of the ELF file itself (as opposed
	// to the architecture).
	elfLayout arch.Layout

	// sections contains the sections of this object file, indexed by
	// internal ID (not ELF section number).
	sections []*elfSection

	// byName maps section names to *elfSection objects.
	byName map[string]*elfSection
}

var elfArches = map[elf.Machine]*arch.Arch{
	elf.EM_X86_64:  arch.AMD64,
	elf.EM_386:     arch.I386,
	elf.EM_AARCH64: arch.ARM64,
	elf.EM_ARM:     arch.ARM,
}

func openElf(r io.ReaderAt) (bool, File, error) {
	// Is this an ELF file?
	var magic [4]uint8
	if _, err := r.ReadAt(magic[0:], 0); err != nil {
		return false, nil, err
	}
	if magic[0] != '\x7f' || magic[1] != 'E' || magic[2] != 'L' || magic[3] != 'F' {
		return false, nil, nil
	}
	// If there are errors past this point, we assume it's ELF and we
	// should report the error.

	ff, err := elf.NewFile(r)
	if err != nil {
		return true, nil, err
	}

	f := &elfFile{f: ff, arch: elfArches[ff.Machine], byName: make(map[string]*elfSection)}

	// Is this a real file we can mmap?
	if file, ok := r.(*os.File); ok {
		f.fd = file.Fd()
		f.pageSize = uint64(os.Getpagesize())
	} else {
		f.fd = ^uintptr(0)
	}

	// Set per-class constants.
	var elfWordSize int
	switch ff.Class {
	default:
		return true, nil, fmt.Errorf("unknown ELF class %s", ff.Class)
	case elf.ELFCLASS32:
		elfWordSize = 4
	case elf.ELFCLASS64:
		elfWordSize = 8
	}
	f.elfLayout = arch.NewLayout(ff.ByteOrder, elfWordSize)

	// Process section table.
	for elfID, elfSect := range ff.Sections {
		if elfSect.Type == elf.SHT_NULL {
			continue
		}

		s := &Section{
			File:  f,
			Name:  elfSect.Name,
			ID:    SectionID(len(f.sections)),
			RawID: elfID,
			Addr:  elfSect.Addr,
			Size:  elfSect.Size,
		}
		if elfSect.Flags&elf.SHF_WRITE == 0 {
			s.SetReadOnly(true)
		}
		if elfSect.Flags&elf.SHF_COMPRESSED != 0 {
			s.SetCompressed(true)
		}

		es := &elfSection{Section: s, elf: elfSect}
		f.sections = append(f.sections, es)
		if _, ok := f.byName[s.Name]; !ok {
			f.byName[s.Name] = es
		}
	}

	return true, f, nil
}

func (f *elfFile) Close() {
	// Release mmaps.
	for _, s := range f.sections {
		if s.mmapped != nil {
			mmapped := s.mmapped
			s.data = nil
			s.mmapped = nil
			unix.Munmap(mmapped)
		}
	}
}

func (f *elfFile) Info() FileInfo {
	return FileInfo{f.arch}
}

// AsDebugElf is implemented by File types that can return an underlying
// *debug/elf.File for format-specific access. AsDebugElf may return
// nil, so the caller must both check that the type implements
// AsDebugElf and check the result of calling AsDebugElf.
type AsDebugElf interface {
	AsDebugElf() *elf.File
}

func (f *elfFile) AsDebugElf() *elf.File {
	return f.f
}

// Assert that elfFile implements AsDebugElf.
var _ AsDebugElf = (*elfFile)(nil)

type elfSection struct {
	*Section

	elf *elf.Section

	dataOnce sync.Once
	data     []byte
	dataErr  error
	mmapped  []byte // if non-nil, original mmap of this section
}

func (s *elfSection) String() string {
	return fmt.Sprintf("%s [%d]", s.Name, s.RawID)
}

func (f *elfFile) Sections() []*Section {
	out := make([]*Section, len(f.sections))
	for i, es := range f.sections {
		out[i] = es.Section
	}
	return out
}

func (f *elfFile) Section(i SectionID) *Section {
	return f.sections[i].Section
}

func (f *elfFile) SectionByName(name string) *Section {
	es, ok := f.byName[name]
	if !ok {
		return nil
	}
	return es.Section
}

func (f *elfFile) sectionData(s *Section, d *Data) (*Data, error) {
	es := f.sections[s.ID]
	bytes, err := f.sectionBytes(es)
	if err != nil {
		return nil, err
	}
	*d = Data{Addr: s.Addr, P: bytes, Layout: f.layout()}
	return d, nil
}

// layout returns the data layout for section contents. If the machine
// architecture is unknown, fall back to the ELF file's own layout.
func (f *elfFile) layout() arch.Layout {
	if f.arch != nil {
		return f.arch.Layout
	}
	return f.elfLayout
}

func (f *elfFile) sectionBytes(s *elfSection) (data []byte, err error) {
	s.dataOnce.Do(func() {
		s.data, s.mmapped, s.dataErr = f.sectionBytesUncached(s)
	})
	return s.data, s.dataErr
}

var testMmapSection func(bool)

func (f *elfFile) sectionBytesUncached(s *elfSection) (data []byte, mmapped []byte, err error) {
	es := s.elf

	if es.Type == elf.SHT_NOBITS {
		// There's no data on disk. Create an anonymous zeroed mmap to
		// avoid bloating the Go heap.
		size := roundUp2(es.Size, f.pageSize)
		if size > 0 && f.pageSize > 0 {
			data, err = unix.Mmap(-1, 0, int(size), unix.PROT_READ, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
			if err == nil {
				if testMmapSection != nil {
					testMmapSection(true)
				}
				return data[:es.Size], data, nil
			}
		}
		// Just allocate on the heap.
		if testMmapSection != nil {
			testMmapSection(false)
		}
		return make([]byte, es.Size), nil, nil
	}

	// Memory map the section when possible. Compressed sections have
	// to go through the decompressing reader instead.
	if f.fd != ^uintptr(0) && es.Flags&elf.SHF_COMPRESSED == 0 && es.Size > 0 {
		start := roundDown2(es.Offset, f.pageSize)
		end := roundUp2(es.Offset+es.Size, f.pageSize)
		data, err = unix.Mmap(int(f.fd), int64(start), int(end-start), unix.PROT_READ, unix.MAP_SHARED)
		if err == nil {
			if testMmapSection != nil {
				testMmapSection(true)
			}
			return data[es.Offset-start:][:es.Size], data, nil
		}
	}

	// Mmapping failed or wasn't possible. Read into the heap. The
	// section reader transparently decompresses.
	data, err = io.ReadAll(es.Open())
	if err != nil {
		return nil, nil, err
	}
	if testMmapSection != nil {
		testMmapSection(false)
	}
	return data, nil, nil
}
