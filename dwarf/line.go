// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// canonicalOpcodeLengths is the expected number of arguments for each
// standard opcode. The opcode_lengths header field is checked against
// this table.
var canonicalOpcodeLengths = [13]int{
	0,
	// DW_LNS_copy
	0, 1, 1, 1, 1,
	// DW_LNS_negate_stmt
	0, 0, 0, 1, 0,
	// DW_LNS_set_epilogue_begin
	0, 1,
}

// A FileEntry is a source file named by a line table. Entries are
// immutable after insertion.
type FileEntry struct {
	// Path is the file's path, resolved against the include directory
	// table and the compilation directory.
	Path string

	// Mtime is the implementation-defined modification time the
	// producer recorded, or 0.
	Mtime uint64

	// Length is the file's size in bytes as recorded, or 0.
	Length uint64
}

type lineEntryFormat struct {
	content LNCT
	form    Form
}

// A LineTable is a decoded line-number program header plus the state
// needed to execute its opcode program.
//
// A LineTable is not safe for concurrent iteration: executing the
// program discovers file entries defined mid-program and records them
// on the table. Distinct tables are independent.
type LineTable struct {
	// sec covers exactly this program: the initial length field
	// through the last opcode.
	sec      *Slice
	sections Sections
	compDir  string

	version       int
	programOffset uint64
	minInstLength int
	maxOpsPerInst int
	defaultIsStmt bool
	lineBase      int
	lineRange     int
	opcodeBase    int
	stdOpcodeLengths []int
	includeDirs      []string
	fileNames        []FileEntry
	fileEntryFormats []lineEntryFormat
	fileIndexBase    int

	// File entries can appear both in the header and in the program
	// itself (DW_LNE_define_file). Since the program can be iterated
	// repeatedly, lastFileNameEnd records the offset past the last
	// entry added so the same entry is never added twice.
	lastFileNameEnd uint64
	// Once an iterator has traversed the entire program, all file
	// names are known.
	fileNamesComplete bool

	// Lazily fetched string sections for strp/line_strp file names.
	strSec     *Slice
	lineStrSec *Slice
}

// NewLineTable decodes the line-number program header at off in sec
// (normally .debug_line).
//
// cuAddrSize is the enclosing compilation unit's address size, used
// for programs before DWARF 5, which do not carry their own. compDir
// and cuName are the unit's DW_AT_comp_dir and DW_AT_name; they seed
// directory 0 and file entry 0. sections supplies .debug_str and
// .debug_line_str for DWARF 5 headers and may be nil otherwise.
func NewLineTable(sec *Slice, off uint64, cuAddrSize int, compDir, cuName string, sections Sections) (*LineTable, error) {
	lt := &LineTable{sections: sections}

	// DWARF 2 and 3 give a weird specification for DW_AT_comp_dir;
	// normalize to a trailing slash.
	if compDir != "" && !strings.HasSuffix(compDir, "/") {
		compDir += "/"
	}
	lt.compDir = compDir

	// Read the line table header (DWARF2 section 6.2.4, DWARF3
	// section 6.2.4, DWARF4 section 6.2.3, DWARF5 section 6.2.4).
	sub, err := sec.Subsection(off)
	if err != nil {
		return nil, err
	}
	cur := NewCursor(sub, 0)
	cur.SkipInitialLength()

	lt.version = int(cur.Uint16())
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if lt.version < 2 || lt.version > 5 {
		return nil, &FormatError{Sect: sub.Sect, Off: sub.Start,
			Msg: "unknown line number table version " + strconv.Itoa(lt.version)}
	}
	addrSize := cuAddrSize
	if lt.version >= 5 {
		addrSize = int(cur.Uint8())
		cur.Uint8() // segment_selector_size
	}
	if sub, err = sub.WithAddrSize(addrSize); err != nil {
		return nil, err
	}
	cur = NewCursor(sub, cur.Pos())
	lt.sec = sub

	lt.fileIndexBase = 1
	if lt.version >= 5 {
		lt.fileIndexBase = 0
	}

	headerLength := cur.Offset()
	lt.programOffset = cur.Pos() + headerLength
	lt.minInstLength = int(cur.Uint8())
	lt.maxOpsPerInst = 1
	if lt.version >= 4 {
		lt.maxOpsPerInst = int(cur.Uint8())
	}
	lt.defaultIsStmt = cur.Uint8() != 0
	lt.lineBase = int(cur.Int8())
	lt.lineRange = int(cur.Uint8())
	lt.opcodeBase = int(cur.Uint8())
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if lt.minInstLength == 0 {
		return nil, lt.headerError(cur, "minimum_instruction_length cannot be 0 in line number table")
	}
	if lt.maxOpsPerInst == 0 {
		return nil, lt.headerError(cur, "maximum_operations_per_instruction cannot be 0 in line number table")
	}
	if lt.lineRange == 0 {
		return nil, lt.headerError(cur, "line_range cannot be 0 in line number table")
	}

	// Opcode length table. The DWARF standard never says what to do if the
	// opcode length of a standard opcode doesn't match the header; do
	// the safe thing and reject.
	lt.stdOpcodeLengths = make([]int, lt.opcodeBase)
	for i := 1; i < lt.opcodeBase; i++ {
		length := int(cur.Uint8())
		if err := cur.Err(); err != nil {
			return nil, err
		}
		if i >= len(canonicalOpcodeLengths) {
			return nil, lt.headerError(cur,
				fmt.Sprintf("opcode length table declares unknown standard opcode %d", i))
		}
		if length != canonicalOpcodeLengths[i] {
			return nil, lt.headerError(cur,
				fmt.Sprintf("expected %d arguments for line number opcode %d, got %d",
					canonicalOpcodeLengths[i], i, length))
		}
		lt.stdOpcodeLengths[i] = length
	}

	// Include directories list.
	if lt.version >= 5 {
		if err := lt.readV5DirectoryTable(cur); err != nil {
			return nil, err
		}
	} else {
		// The implicit directory 0 is the compilation directory.
		lt.includeDirs = append(lt.includeDirs, lt.compDir)
		for {
			incdir := string(cur.CString())
			if err := cur.Err(); err != nil {
				return nil, err
			}
			if incdir == "" {
				break
			}
			if !strings.HasSuffix(incdir, "/") {
				incdir += "/"
			}
			if incdir[0] == '/' {
				lt.includeDirs = append(lt.includeDirs, incdir)
			} else {
				lt.includeDirs = append(lt.includeDirs, lt.compDir+incdir)
			}
		}
	}

	// File name list.
	if lt.version >= 5 {
		if err := lt.readV5FileTable(cur); err != nil {
			return nil, err
		}
		if len(lt.fileNames) == 0 {
			lt.fileNames = append(lt.fileNames, FileEntry{Path: resolveCUName(lt.compDir, cuName)})
		}
	} else {
		// File name 0 is implicitly the compilation unit file name.
		// cuName can be relative to compDir or absolute.
		lt.fileNames = append(lt.fileNames, FileEntry{Path: resolveCUName(lt.compDir, cuName)})
		for {
			more, err := lt.readFileEntry(cur, true)
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}
	}

	return lt, nil
}

func (lt *LineTable) headerError(cur *Cursor, msg string) error {
	return &FormatError{Sect: lt.sec.Sect, Off: cur.SectionOffset(), Msg: msg}
}

func resolveCUName(compDir, cuName string) string {
	if cuName != "" && cuName[0] == '/' {
		return cuName
	}
	return compDir + cuName
}

// Version returns the line table's DWARF version, 2 through 5.
func (lt *LineTable) Version() int {
	return lt.version
}

// FileIndexBase returns the index of the compilation unit's primary
// file entry: 0 for DWARF 5 tables, 1 before.
func (lt *LineTable) FileIndexBase() int {
	return lt.fileIndexBase
}

// File returns the i'th file entry. If i is beyond the entries read so
// far, the remainder of the opcode program is executed first so that
// entries defined mid-program become visible; an index that is still
// out of range is a format error.
func (lt *LineTable) File(i int) (*FileEntry, error) {
	if i >= len(lt.fileNames) {
		// It could be declared in the line table program. This is
		// unlikely, so we don't have to be super-efficient about it;
		// just force our way through the whole program.
		if !lt.fileNamesComplete {
			it := lt.Iter()
			var row Row
			for {
				err := it.Next(&row)
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, err
				}
			}
		}
		if i >= len(lt.fileNames) {
			return nil, &FormatError{Sect: lt.sec.Sect, Off: lt.sec.Start,
				Msg: fmt.Sprintf("file name index %d exceeds file table size of %d", i, len(lt.fileNames))}
		}
	}
	return &lt.fileNames[i], nil
}

// readFileEntry reads a file entry record at cur. In the header
// (inHeader), a v2–v4 entry with an empty name terminates the table
// and readFileEntry returns false.
func (lt *LineTable) readFileEntry(cur *Cursor, inHeader bool) (bool, error) {
	if lt.version >= 5 {
		if err := lt.readFileEntryV5(cur); err != nil {
			return false, err
		}
		return true, nil
	}

	name := string(cur.CString())
	if err := cur.Err(); err != nil {
		return false, err
	}
	if inHeader && name == "" {
		return false, nil
	}
	dirIndex := cur.ULEB128()
	mtime := cur.ULEB128()
	length := cur.ULEB128()
	if err := cur.Err(); err != nil {
		return false, err
	}

	// Have we already processed this file entry?
	if cur.Pos() <= lt.lastFileNameEnd {
		return true, nil
	}
	lt.lastFileNameEnd = cur.Pos()

	if name == "" {
		return false, nil
	}
	return true, lt.addFileEntry(name, dirIndex, mtime, length)
}

func (lt *LineTable) addIncludeDirectory(dir string) {
	resolved := dir
	if resolved != "" && !strings.HasSuffix(resolved, "/") {
		resolved += "/"
	}
	if resolved != "" && resolved[0] != '/' && lt.compDir != "" {
		resolved = lt.compDir + resolved
	}
	if resolved == "" {
		resolved = lt.compDir
	}
	lt.includeDirs = append(lt.includeDirs, resolved)
}

func (lt *LineTable) addFileEntry(name string, dirIndex, mtime, length uint64) error {
	if name == "" {
		return &FormatError{Sect: lt.sec.Sect, Off: lt.sec.Start, Msg: "file entry missing file name"}
	}
	if name[0] == '/' {
		lt.fileNames = append(lt.fileNames, FileEntry{Path: name, Mtime: mtime, Length: length})
		return nil
	}

	base := ""
	switch {
	case dirIndex < uint64(len(lt.includeDirs)):
		base = lt.includeDirs[dirIndex]
	case dirIndex == 0 && lt.version < 5 && lt.compDir != "":
		base = lt.compDir
	default:
		return &FormatError{Sect: lt.sec.Sect, Off: lt.sec.Start,
			Msg: "file name directory index out of range: " + strconv.FormatUint(dirIndex, 10)}
	}
	lt.fileNames = append(lt.fileNames, FileEntry{Path: base + name, Mtime: mtime, Length: length})
	return nil
}

func (lt *LineTable) readEntryFormats(cur *Cursor) ([]lineEntryFormat, error) {
	count := cur.ULEB128()
	if err := cur.Err(); err != nil {
		return nil, err
	}
	formats := make([]lineEntryFormat, 0, count)
	for i := uint64(0); i < count; i++ {
		content := LNCT(cur.ULEB128())
		form := Form(cur.ULEB128())
		if err := cur.Err(); err != nil {
			return nil, err
		}
		formats = append(formats, lineEntryFormat{content, form})
	}
	return formats, nil
}

func (lt *LineTable) readV5DirectoryTable(cur *Cursor) error {
	formats, err := lt.readEntryFormats(cur)
	if err != nil {
		return err
	}
	count := cur.ULEB128()
	if err := cur.Err(); err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		path := ""
		for _, f := range formats {
			switch f.content {
			case LNCTPath:
				if path, err = lt.readFormString(cur, f.form); err != nil {
					return err
				}
			default:
				cur.SkipForm(f.form)
				if err := cur.Err(); err != nil {
					return err
				}
			}
		}
		lt.addIncludeDirectory(path)
	}
	return nil
}

func (lt *LineTable) readV5FileTable(cur *Cursor) error {
	formats, err := lt.readEntryFormats(cur)
	if err != nil {
		return err
	}
	// Retain the format descriptor for DW_LNE_define_file records in
	// the program.
	lt.fileEntryFormats = formats
	count := cur.ULEB128()
	if err := cur.Err(); err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		name, dirIndex, mtime, length, err := lt.readV5FileFields(cur)
		if err != nil {
			return err
		}
		if name != "" {
			if err := lt.addFileEntry(name, dirIndex, mtime, length); err != nil {
				return err
			}
		}
	}
	return nil
}

func (lt *LineTable) readV5FileFields(cur *Cursor) (name string, dirIndex, mtime, length uint64, err error) {
	for _, f := range lt.fileEntryFormats {
		switch f.content {
		case LNCTPath:
			if name, err = lt.readFormString(cur, f.form); err != nil {
				return
			}
		case LNCTDirectoryIndex:
			if dirIndex, err = lt.readFormUnsigned(cur, f.form); err != nil {
				return
			}
		case LNCTTimestamp:
			if mtime, err = lt.readFormUnsigned(cur, f.form); err != nil {
				return
			}
		case LNCTSize:
			if length, err = lt.readFormUnsigned(cur, f.form); err != nil {
				return
			}
		default:
			cur.SkipForm(f.form)
			if err = cur.Err(); err != nil {
				return
			}
		}
	}
	return
}

func (lt *LineTable) readFileEntryV5(cur *Cursor) error {
	if len(lt.fileEntryFormats) == 0 {
		return &FormatError{Sect: lt.sec.Sect, Off: cur.SectionOffset(),
			Msg: "line table missing file name entry formats"}
	}
	name, dirIndex, mtime, length, err := lt.readV5FileFields(cur)
	if err != nil {
		return err
	}

	entryEnd := cur.Pos()
	if entryEnd <= lt.lastFileNameEnd {
		return nil
	}
	lt.lastFileNameEnd = entryEnd

	if name != "" {
		return lt.addFileEntry(name, dirIndex, mtime, length)
	}
	return nil
}

func (lt *LineTable) readFormString(cur *Cursor, f Form) (string, error) {
	switch f {
	case FormString:
		s := string(cur.CString())
		return s, cur.Err()
	case FormLineStrp:
		off := cur.Offset()
		if err := cur.Err(); err != nil {
			return "", err
		}
		return lt.readStringFromSection(SectionLineStr, off)
	case FormStrp:
		off := cur.Offset()
		if err := cur.Err(); err != nil {
			return "", err
		}
		return lt.readStringFromSection(SectionStr, off)
	}
	return "", &FormatError{Sect: lt.sec.Sect, Off: cur.SectionOffset(),
		Msg: "unsupported string form in line table: " + f.String()}
}

func (lt *LineTable) readFormUnsigned(cur *Cursor, f Form) (uint64, error) {
	var x uint64
	switch f {
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
	case FormSdata:
		x = uint64(cur.SLEB128())
	default:
		return 0, &FormatError{Sect: lt.sec.Sect, Off: cur.SectionOffset(),
			Msg: "unsupported numeric form in line table: " + f.String()}
	}
	return x, cur.Err()
}

// readStringFromSection reads the string at off in the given string
// section, fetching and caching the section handle on first use.
func (lt *LineTable) readStringFromSection(t SectionType, off uint64) (string, error) {
	var cache **Slice
	switch t {
	case SectionLineStr:
		cache = &lt.lineStrSec
	case SectionStr:
		cache = &lt.strSec
	default:
		return "", &FormatError{Sect: lt.sec.Sect, Off: lt.sec.Start, Msg: "unsupported string section " + t.String()}
	}

	if *cache == nil {
		if lt.sections == nil {
			return "", &FormatError{Sect: lt.sec.Sect, Off: lt.sec.Start,
				Msg: "line table requires a section provider to read strings"}
		}
		sec, err := lt.sections.Section(t)
		if err != nil {
			return "", err
		}
		*cache = sec
	}

	c := NewCursor(*cache, off)
	s := string(c.CString())
	return s, c.Err()
}
