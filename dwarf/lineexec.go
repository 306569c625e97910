// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"fmt"
	"io"
	"strconv"
)

// A Row is one row of the decoded line table: the state-machine
// registers at the point an opcode emitted a row.
type Row struct {
	// Address is the program counter of the first instruction the row
	// covers.
	Address uint64

	// OpIndex is the index of the operation within a VLIW instruction
	// bundle, or 0.
	OpIndex int

	// File is the resolved source file, looked up from FileIndex when
	// the row is emitted.
	File *FileEntry

	// FileIndex is the raw file register.
	FileIndex int

	Line   int
	Column int

	IsStmt        bool
	BasicBlock    bool
	EndSequence   bool
	PrologueEnd   bool
	EpilogueBegin bool

	ISA           int
	Discriminator int
}

// reset restores the registers to their program-start values.
func (r *Row) reset(defaultIsStmt bool, fileIndexBase int) {
	*r = Row{
		FileIndex: fileIndexBase,
		Line:      1,
		IsStmt:    defaultIsStmt,
	}
}

// Description renders the row's source position as path:line:column.
// A zero column is left out, and a zero line leaves out both line and
// column.
func (r Row) Description() string {
	path := "?"
	if r.File != nil {
		path = r.File.Path
	}
	res := path
	if r.Line != 0 {
		res += ":" + strconv.Itoa(r.Line)
		if r.Column != 0 {
			res += ":" + strconv.Itoa(r.Column)
		}
	}
	return res
}

// A LineIter executes the opcode program of a LineTable and yields one
// row per emitted step. It holds a non-owning reference to its table;
// iteration records discovered file entries on the table, so iterators
// of one table must not be used concurrently.
type LineIter struct {
	t    *LineTable
	pos  uint64
	regs Row
}

// Iter returns an iterator positioned at the start of the opcode
// program.
func (lt *LineTable) Iter() *LineIter {
	it := &LineIter{t: lt, pos: lt.programOffset}
	it.regs.reset(lt.defaultIsStmt, lt.fileIndexBase)
	return it
}

// Next executes opcodes until one emits a row, which is stored in
// *row. It returns io.EOF when the program has ended. A program that
// ends without emitting a pending row is a format error.
func (it *LineIter) Next(row *Row) error {
	t := it.t
	if it.pos >= t.sec.Len() {
		return io.EOF
	}
	cur := NewCursor(t.sec, it.pos)

	emitted := false
	for !cur.End() && !emitted {
		var err error
		emitted, err = it.step(cur, row)
		if err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if !emitted {
		return &FormatError{Sect: t.sec.Sect, Off: cur.SectionOffset(), Msg: "unexpected end of line table"}
	}
	if cur.End() {
		// The whole program has been traversed, so every define_file
		// record has been seen.
		t.fileNamesComplete = true
	}

	// Resolve the file name of the emitted row.
	if row.FileIndex < 0 || row.FileIndex >= len(t.fileNames) {
		return &FormatError{Sect: t.sec.Sect, Off: cur.SectionOffset(),
			Msg: "bad file index " + strconv.Itoa(row.FileIndex) + " in line table"}
	}
	row.File = &t.fileNames[row.FileIndex]

	it.pos = cur.Pos()
	return nil
}

// advance applies the address/op_index advance rule shared by special
// opcodes, advance_pc, and const_add_pc.
func (it *LineIter) advance(opAdvance uint64) {
	t := it.t
	total := uint64(it.regs.OpIndex) + opAdvance
	it.regs.Address += uint64(t.minInstLength) * (total / uint64(t.maxOpsPerInst))
	it.regs.OpIndex = int(total % uint64(t.maxOpsPerInst))
}

// emit copies the registers into *row and clears the transient flags.
func (it *LineIter) emit(row *Row) {
	*row = it.regs
	it.regs.BasicBlock = false
	it.regs.PrologueEnd = false
	it.regs.EpilogueBegin = false
	it.regs.Discriminator = 0
}

// step executes a single opcode at cur and reports whether it emitted
// a row into *row.
func (it *LineIter) step(cur *Cursor, row *Row) (bool, error) {
	t := it.t

	opcode := cur.Uint8()
	if err := cur.Err(); err != nil {
		return false, err
	}

	if int(opcode) >= t.opcodeBase {
		// Special opcode (DWARF4 section 6.2.5.1).
		adjusted := int(opcode) - t.opcodeBase
		opAdvance := adjusted / t.lineRange
		lineInc := t.lineBase + adjusted%t.lineRange

		it.regs.Line += lineInc
		it.advance(uint64(opAdvance))
		it.emit(row)
		return true, nil
	}

	if opcode != 0 {
		// Standard opcode (DWARF4 sections 6.2.3 and 6.2.5.2).
		//
		// Any opcode between the highest defined opcode and
		// opcode_base would be a vendor opcode with a declared length;
		// those are rejected rather than skipped.
		switch LNS(opcode) {
		case LNSCopy:
			it.emit(row)
		case LNSAdvancePC:
			it.advance(cur.ULEB128())
		case LNSAdvanceLine:
			it.regs.Line += int(cur.SLEB128())
		case LNSSetFile:
			it.regs.FileIndex = int(cur.ULEB128())
		case LNSSetColumn:
			it.regs.Column = int(cur.ULEB128())
		case LNSNegateStmt:
			it.regs.IsStmt = !it.regs.IsStmt
		case LNSSetBasicBlock:
			it.regs.BasicBlock = true
		case LNSConstAddPC:
			it.advance(uint64((255 - t.opcodeBase) / t.lineRange))
		case LNSFixedAdvancePC:
			it.regs.Address += uint64(cur.Uint16())
			it.regs.OpIndex = 0
		case LNSSetPrologueEnd:
			it.regs.PrologueEnd = true
		case LNSSetEpilogueBegin:
			it.regs.EpilogueBegin = true
		case LNSSetISA:
			it.regs.ISA = int(cur.ULEB128())
		default:
			return false, &FormatError{Sect: t.sec.Sect, Off: cur.SectionOffset() - 1,
				Msg: "unknown line number opcode " + LNS(opcode).String()}
		}
		return LNS(opcode) == LNSCopy, cur.Err()
	}

	// Extended opcode (DWARF4 sections 6.2.3 and 6.2.5.3).
	length := cur.ULEB128()
	if err := cur.Err(); err != nil {
		return false, err
	}
	end := cur.Pos() + length
	sub := LNE(cur.Uint8())
	switch sub {
	case LNEEndSequence:
		it.regs.EndSequence = true
		it.emit(row)
		it.regs.reset(t.defaultIsStmt, t.fileIndexBase)
	case LNESetAddress:
		it.regs.Address = cur.Address()
		it.regs.OpIndex = 0
	case LNEDefineFile:
		if _, err := t.readFileEntry(cur, false); err != nil {
			return false, err
		}
	case LNESetDiscriminator:
		it.regs.Discriminator = int(cur.ULEB128())
	default:
		if sub >= LNELoUser {
			return false, &NotImplementedError{What: fmt.Sprintf("vendor line number opcode %s", sub)}
		}
		// Prior to DWARF4, any opcode number could be a vendor
		// extension.
		return false, &FormatError{Sect: t.sec.Sect, Off: cur.SectionOffset() - 1,
			Msg: "unknown line number opcode " + sub.String()}
	}
	if err := cur.Err(); err != nil {
		return false, err
	}
	if cur.Pos() > end {
		return false, &FormatError{Sect: t.sec.Sect, Off: cur.SectionOffset(),
			Msg: "extended line number opcode exceeded its size"}
	}
	// Re-seat at the declared end regardless of how much the opcode
	// consumed: producers may pad the payload.
	cur.Seek(end)
	return sub == LNEEndSequence, cur.Err()
}

// FindAddress scans the program for the row covering addr: the last
// non-end_sequence row r with r.Address <= addr and addr below the
// following row's address. It returns false if no row covers addr.
func (lt *LineTable) FindAddress(addr uint64) (Row, bool, error) {
	it := lt.Iter()
	var prev, next Row
	if err := it.Next(&prev); err != nil {
		if err == io.EOF {
			return Row{}, false, nil
		}
		return Row{}, false, err
	}
	for {
		if err := it.Next(&next); err != nil {
			if err == io.EOF {
				return Row{}, false, nil
			}
			return Row{}, false, err
		}
		if prev.Address <= addr && addr < next.Address && !prev.EndSequence {
			return prev, true, nil
		}
		prev = next
	}
}
