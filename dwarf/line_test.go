// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// lineProgram assembles a v2–v4 line-number program for tests.
type lineProgram struct {
	version       int
	minInst       int
	maxOps        int
	defaultIsStmt bool
	lineBase      int
	lineRange     int
	opcodeBase    int
	stdLengths    []int // override; nil means canonical
	dirs          []string
	files         []lpFile
	program       []byte
}

type lpFile struct {
	name             string
	dir, mtime, size uint64
}

func v4Program() lineProgram {
	return lineProgram{
		version:       4,
		minInst:       1,
		maxOps:        1,
		defaultIsStmt: true,
		lineBase:      -3,
		lineRange:     12,
		opcodeBase:    13,
		dirs:          []string{"/src"},
		files:         []lpFile{{name: "main.c", dir: 1}},
	}
}

func (p *lineProgram) build() *Slice {
	var rest builder
	rest.u8(uint8(p.minInst))
	if p.version >= 4 {
		rest.u8(uint8(p.maxOps))
	}
	if p.defaultIsStmt {
		rest.u8(1)
	} else {
		rest.u8(0)
	}
	rest.u8(uint8(int8(p.lineBase)))
	rest.u8(uint8(p.lineRange))
	rest.u8(uint8(p.opcodeBase))
	lengths := p.stdLengths
	if lengths == nil {
		lengths = canonicalOpcodeLengths[1:p.opcodeBase]
	}
	for _, l := range lengths {
		rest.u8(uint8(l))
	}
	for _, d := range p.dirs {
		rest.cstr(d)
	}
	rest.u8(0)
	for _, f := range p.files {
		rest.cstr(f.name)
		rest.uleb(f.dir)
		rest.uleb(f.mtime)
		rest.uleb(f.size)
	}
	rest.u8(0)

	var b builder
	b.u32(uint32(2 + 4 + len(rest.p) + len(p.program)))
	b.u16(uint16(p.version))
	b.u32(uint32(len(rest.p)))
	b.raw(rest.p)
	b.raw(p.program)
	return b.slice(SectionLine, 8)
}

func (p *lineProgram) table(t *testing.T, secs Sections) *LineTable {
	t.Helper()
	lt, err := NewLineTable(p.build(), 0, 8, "/comp", "main.c", secs)
	require.NoError(t, err)
	return lt
}

// Program byte helpers.

func extSetAddress(p []byte, addr uint64) []byte {
	p = append(p, 0)
	p = appendULEB(p, 9)
	p = append(p, byte(LNESetAddress))
	return binary.LittleEndian.AppendUint64(p, addr)
}

func extEndSequence(p []byte) []byte {
	p = append(p, 0)
	p = appendULEB(p, 1)
	return append(p, byte(LNEEndSequence))
}

func stdAdvancePC(p []byte, n uint64) []byte {
	return appendULEB(append(p, byte(LNSAdvancePC)), n)
}

func stdAdvanceLine(p []byte, n int64) []byte {
	return appendSLEB(append(p, byte(LNSAdvanceLine)), n)
}

func collectRows(t *testing.T, lt *LineTable) []Row {
	t.Helper()
	var rows []Row
	it := lt.Iter()
	var row Row
	for {
		err := it.Next(&row)
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestLineMinimalV4(t *testing.T) {
	p := v4Program()
	p.program = extSetAddress(nil, 0x1000)
	// Special opcode with adjusted 10: op advance 0, line += -3+10.
	p.program = append(p.program, byte(p.opcodeBase+10))
	p.program = extEndSequence(p.program)
	lt := p.table(t, nil)

	rows := collectRows(t, lt)
	require.Len(t, rows, 2)

	require.Equal(t, uint64(0x1000), rows[0].Address)
	require.Equal(t, 8, rows[0].Line)
	require.Equal(t, "/src/main.c", rows[0].File.Path)
	require.True(t, rows[0].IsStmt)
	require.False(t, rows[0].EndSequence)

	require.True(t, rows[1].EndSequence)
	require.Equal(t, uint64(0x1000), rows[1].Address)

	require.Equal(t, "/src/main.c:8", rows[0].Description())
}

func TestLineDeterminism(t *testing.T) {
	p := v4Program()
	p.program = extSetAddress(nil, 0x1000)
	p.program = append(p.program, byte(LNSCopy))
	p.program = stdAdvancePC(p.program, 4)
	p.program = stdAdvanceLine(p.program, 2)
	p.program = append(p.program, byte(LNSCopy))
	p.program = extEndSequence(p.program)
	lt := p.table(t, nil)

	first := collectRows(t, lt)
	second := collectRows(t, lt)
	require.Equal(t, first, second)
}

func TestLineRegisterReset(t *testing.T) {
	p := v4Program()
	p.program = extSetAddress(nil, 0x1000)
	p.program = append(p.program,
		byte(LNSNegateStmt),
		byte(LNSSetBasicBlock),
		byte(LNSSetISA), 3,
		byte(LNSSetColumn), 9,
		byte(LNSCopy))
	p.program = extEndSequence(p.program)
	// A second sequence. The first copy emits the freshly reset
	// registers.
	p.program = append(p.program, byte(LNSCopy))
	p.program = extEndSequence(p.program)
	lt := p.table(t, nil)

	rows := collectRows(t, lt)
	require.Len(t, rows, 4)

	reset := rows[2]
	require.Equal(t, uint64(0), reset.Address)
	require.Equal(t, 0, reset.OpIndex)
	require.Equal(t, lt.fileIndexBase, reset.FileIndex)
	require.Equal(t, 1, reset.Line)
	require.Equal(t, 0, reset.Column)
	require.True(t, reset.IsStmt)
	require.False(t, reset.BasicBlock)
	require.False(t, reset.EndSequence)
	require.False(t, reset.PrologueEnd)
	require.False(t, reset.EpilogueBegin)
	require.Equal(t, 0, reset.ISA)
	require.Equal(t, 0, reset.Discriminator)
}

func TestLineSpecialOpcodeArithmetic(t *testing.T) {
	// With maximum_operations_per_instruction > 1, the op advance
	// splits between address and op_index.
	p := v4Program()
	p.minInst = 4
	p.maxOps = 3
	p.lineBase = -5
	p.lineRange = 14
	p.program = extSetAddress(nil, 0x1000)
	const adj1, adj2 = 100, 33
	p.program = append(p.program, byte(p.opcodeBase+adj1), byte(p.opcodeBase+adj2))
	p.program = extEndSequence(p.program)
	lt := p.table(t, nil)

	rows := collectRows(t, lt)
	require.Len(t, rows, 3)

	addr, opIndex, line := uint64(0x1000), 0, 1
	for i, adj := range []int{adj1, adj2} {
		opAdvance := adj / p.lineRange
		line += p.lineBase + adj%p.lineRange
		addr += uint64(p.minInst * ((opIndex + opAdvance) / p.maxOps))
		opIndex = (opIndex + opAdvance) % p.maxOps

		require.Equal(t, addr, rows[i].Address, "row %d", i)
		require.Equal(t, opIndex, rows[i].OpIndex, "row %d", i)
		require.Equal(t, line, rows[i].Line, "row %d", i)
	}
}

func TestLineConstAddPC(t *testing.T) {
	p := v4Program()
	p.program = []byte{byte(LNSConstAddPC), byte(LNSCopy)}
	p.program = extEndSequence(p.program)
	lt := p.table(t, nil)

	rows := collectRows(t, lt)
	want := uint64((255 - p.opcodeBase) / p.lineRange * p.minInst)
	require.Equal(t, want, rows[0].Address)
}

func TestLineFixedAdvancePC(t *testing.T) {
	p := v4Program()
	var prog []byte
	prog = append(prog, byte(LNSFixedAdvancePC))
	prog = binary.LittleEndian.AppendUint16(prog, 0x123)
	prog = append(prog, byte(LNSCopy))
	p.program = extEndSequence(prog)
	lt := p.table(t, nil)

	rows := collectRows(t, lt)
	require.Equal(t, uint64(0x123), rows[0].Address)
	require.Equal(t, 0, rows[0].OpIndex)
}

func TestLineDefineFile(t *testing.T) {
	p := v4Program()
	var rec []byte
	rec = append(rec, []byte("extra.c")...)
	rec = append(rec, 0)
	rec = appendULEB(rec, 1) // dir index
	rec = appendULEB(rec, 0) // mtime
	rec = appendULEB(rec, 0) // length
	var prog []byte
	prog = append(prog, 0)
	prog = appendULEB(prog, uint64(1+len(rec)))
	prog = append(prog, byte(LNEDefineFile))
	prog = append(prog, rec...)
	prog = append(prog, byte(LNSCopy))
	p.program = extEndSequence(prog)
	lt := p.table(t, nil)

	// File 2 is defined mid-program; asking for it forces a full
	// pass over the program.
	f, err := lt.File(2)
	require.NoError(t, err)
	require.Equal(t, "/src/extra.c", f.Path)
	require.True(t, lt.fileNamesComplete)
	require.Len(t, lt.fileNames, 3)

	// Re-iteration must not duplicate the entry, and the discovery
	// high-water mark never regresses.
	mark := lt.lastFileNameEnd
	collectRows(t, lt)
	collectRows(t, lt)
	require.Len(t, lt.fileNames, 3)
	require.GreaterOrEqual(t, lt.lastFileNameEnd, mark)

	// An index beyond everything the program defines is a format
	// error.
	_, err = lt.File(3)
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
}

func TestLineFindAddress(t *testing.T) {
	p := v4Program()
	var prog []byte
	prog = extSetAddress(prog, 0x1000)
	prog = append(prog, byte(LNSCopy))
	prog = stdAdvancePC(prog, 0x10)
	prog = stdAdvanceLine(prog, 1)
	prog = append(prog, byte(LNSCopy))
	prog = stdAdvancePC(prog, 0x10)
	prog = stdAdvanceLine(prog, 1)
	prog = append(prog, byte(LNSCopy))
	prog = stdAdvancePC(prog, 0x10)
	p.program = extEndSequence(prog)
	lt := p.table(t, nil)

	for _, tc := range []struct {
		addr     uint64
		wantLine int
		found    bool
	}{
		{0xfff, 0, false},
		{0x1000, 1, true},
		{0x100f, 1, true},
		{0x1010, 2, true},
		{0x101f, 2, true},
		{0x1020, 3, true},
		{0x102f, 3, true},
		{0x1030, 0, false},
	} {
		row, ok, err := lt.FindAddress(tc.addr)
		require.NoError(t, err)
		require.Equal(t, tc.found, ok, "addr %#x", tc.addr)
		if ok {
			require.Equal(t, tc.wantLine, row.Line, "addr %#x", tc.addr)
		}
	}
}

func TestLineV2Header(t *testing.T) {
	p := v4Program()
	p.version = 2
	p.program = []byte{byte(LNSCopy)}
	p.program = extEndSequence(p.program)
	lt := p.table(t, nil)
	require.Equal(t, 2, lt.Version())
	require.Equal(t, 1, lt.FileIndexBase())

	rows := collectRows(t, lt)
	require.Equal(t, 1, rows[0].Line)
	require.Equal(t, "/src/main.c", rows[0].File.Path)

	// File 0 is the compilation unit's own file, resolved against
	// comp_dir.
	f, err := lt.File(0)
	require.NoError(t, err)
	require.Equal(t, "/comp/main.c", f.Path)
}

func TestLineV5Header(t *testing.T) {
	var lineStr builder
	lineStr.cstr("util.c")
	secs := fakeSections{SectionLineStr: lineStr.slice(SectionLineStr, 8)}

	var rest builder
	rest.u8(1) // minimum_instruction_length
	rest.u8(1) // maximum_operations_per_instruction
	rest.u8(1) // default_is_stmt
	rest.u8(0xfd) // line_base: -3
	rest.u8(12) // line_range
	rest.u8(13) // opcode_base
	for _, l := range canonicalOpcodeLengths[1:] {
		rest.u8(uint8(l))
	}
	// Directory table: one entry, inline string.
	rest.uleb(1)
	rest.uleb(uint64(LNCTPath))
	rest.uleb(uint64(FormString))
	rest.uleb(1)
	rest.cstr("/d5")
	// File table: path as line_strp, directory index as udata.
	rest.uleb(2)
	rest.uleb(uint64(LNCTPath))
	rest.uleb(uint64(FormLineStrp))
	rest.uleb(uint64(LNCTDirectoryIndex))
	rest.uleb(uint64(FormUdata))
	rest.uleb(1)
	rest.u32(0) // offset of "util.c" in .debug_line_str
	rest.uleb(0)

	var b builder
	b.u32(uint32(2 + 2 + 4 + len(rest.p)))
	b.u16(5)
	b.u8(8) // address_size
	b.u8(0) // segment_selector_size
	b.u32(uint32(len(rest.p)))
	b.raw(rest.p)

	lt, err := NewLineTable(b.slice(SectionLine, 8), 0, 8, "/comp", "main.c", secs)
	require.NoError(t, err)
	require.Equal(t, 5, lt.Version())
	require.Equal(t, 0, lt.FileIndexBase())

	f, err := lt.File(0)
	require.NoError(t, err)
	require.Equal(t, "/d5/util.c", f.Path)
}

func TestLineHeaderErrors(t *testing.T) {
	var ferr *FormatError

	// Unknown version.
	p := v4Program()
	p.version = 6
	_, err := NewLineTable(p.build(), 0, 8, "/comp", "main.c", nil)
	require.ErrorAs(t, err, &ferr)

	// line_range of 0.
	p = v4Program()
	p.lineRange = 0
	_, err = NewLineTable(p.build(), 0, 8, "/comp", "main.c", nil)
	require.ErrorAs(t, err, &ferr)

	// maximum_operations_per_instruction of 0.
	p = v4Program()
	p.maxOps = 0
	_, err = NewLineTable(p.build(), 0, 8, "/comp", "main.c", nil)
	require.ErrorAs(t, err, &ferr)

	// An opcode length table that disagrees with the canonical
	// argument counts.
	p = v4Program()
	p.stdLengths = append([]int(nil), canonicalOpcodeLengths[1:]...)
	p.stdLengths[0] = 1 // DW_LNS_copy takes no arguments
	_, err = NewLineTable(p.build(), 0, 8, "/comp", "main.c", nil)
	require.ErrorAs(t, err, &ferr)
}

func TestLineVendorExtendedOpcode(t *testing.T) {
	p := v4Program()
	p.program = []byte{0}
	p.program = appendULEB(p.program, 1)
	p.program = append(p.program, 0x80)
	lt := p.table(t, nil)

	it := lt.Iter()
	var row Row
	err := it.Next(&row)
	var nerr *NotImplementedError
	require.ErrorAs(t, err, &nerr)
}

func TestLineExtendedOpcodeLength(t *testing.T) {
	// An extended opcode that reads past its declared length is a
	// format error.
	p := v4Program()
	var prog []byte
	prog = append(prog, 0)
	prog = appendULEB(prog, 2) // too short for set_address
	prog = append(prog, byte(LNESetAddress))
	prog = binary.LittleEndian.AppendUint64(prog, 0x1000)
	p.program = extEndSequence(prog)
	lt := p.table(t, nil)

	it := lt.Iter()
	var row Row
	var ferr *FormatError
	require.ErrorAs(t, it.Next(&row), &ferr)

	// Padding after the payload is fine: the cursor is re-seated at
	// the declared end.
	p = v4Program()
	prog = nil
	prog = append(prog, 0)
	prog = appendULEB(prog, 3)
	prog = append(prog, byte(LNESetDiscriminator))
	prog = appendULEB(prog, 5)
	prog = append(prog, 0xee) // padding
	prog = append(prog, byte(LNSCopy))
	p.program = extEndSequence(prog)
	lt = p.table(t, nil)

	rows := collectRows(t, lt)
	require.Equal(t, 5, rows[0].Discriminator)
	require.Equal(t, 0, rows[1].Discriminator)
}

func TestLineRunsOffEnd(t *testing.T) {
	// A program that ends without emitting a pending row is corrupt.
	p := v4Program()
	p.program = stdAdvancePC(nil, 1)
	lt := p.table(t, nil)

	it := lt.Iter()
	var row Row
	var ferr *FormatError
	require.ErrorAs(t, it.Next(&row), &ferr)
}

func TestLineBadFileIndex(t *testing.T) {
	p := v4Program()
	p.program = []byte{byte(LNSSetFile), 7, byte(LNSCopy)}
	p.program = extEndSequence(p.program)
	lt := p.table(t, nil)

	it := lt.Iter()
	var row Row
	var ferr *FormatError
	require.ErrorAs(t, it.Next(&row), &ferr)
}
