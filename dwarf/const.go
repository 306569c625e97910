// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import "strconv"

// A Form is a DW_FORM code: the encoding of an attribute value in the
// byte stream.
type Form uint64

const (
	FormAddr        Form = 0x01
	FormBlock2      Form = 0x03
	FormBlock4      Form = 0x04
	FormData2       Form = 0x05
	FormData4       Form = 0x06
	FormData8       Form = 0x07
	FormString      Form = 0x08
	FormBlock       Form = 0x09
	FormBlock1      Form = 0x0a
	FormData1       Form = 0x0b
	FormFlag        Form = 0x0c
	FormSdata       Form = 0x0d
	FormStrp        Form = 0x0e
	FormUdata       Form = 0x0f
	FormRefAddr     Form = 0x10
	FormRef1        Form = 0x11
	FormRef2        Form = 0x12
	FormRef4        Form = 0x13
	FormRef8        Form = 0x14
	FormRefUdata    Form = 0x15
	FormIndirect    Form = 0x16
	FormSecOffset   Form = 0x17
	FormExprloc     Form = 0x18
	FormFlagPresent Form = 0x19

	// DWARF 5
	FormStrx          Form = 0x1a
	FormAddrx         Form = 0x1b
	FormRefSup4       Form = 0x1c
	FormStrpSup       Form = 0x1d
	FormData16        Form = 0x1e
	FormLineStrp      Form = 0x1f
	FormRefSig8       Form = 0x20
	FormImplicitConst Form = 0x21
	FormLoclistx      Form = 0x22
	FormRnglistx      Form = 0x23
	FormRefSup8       Form = 0x24
	FormStrx1         Form = 0x25
	FormStrx2         Form = 0x26
	FormStrx3         Form = 0x27
	FormStrx4         Form = 0x28
	FormAddrx1        Form = 0x29
	FormAddrx2        Form = 0x2a
	FormAddrx3        Form = 0x2b
	FormAddrx4        Form = 0x2c
)

var formNames = map[Form]string{
	FormAddr: "addr", FormBlock2: "block2", FormBlock4: "block4",
	FormData2: "data2", FormData4: "data4", FormData8: "data8",
	FormString: "string", FormBlock: "block", FormBlock1: "block1",
	FormData1: "data1", FormFlag: "flag", FormSdata: "sdata",
	FormStrp: "strp", FormUdata: "udata", FormRefAddr: "ref_addr",
	FormRef1: "ref1", FormRef2: "ref2", FormRef4: "ref4",
	FormRef8: "ref8", FormRefUdata: "ref_udata", FormIndirect: "indirect",
	FormSecOffset: "sec_offset", FormExprloc: "exprloc",
	FormFlagPresent: "flag_present", FormStrx: "strx", FormAddrx: "addrx",
	FormRefSup4: "ref_sup4", FormStrpSup: "strp_sup", FormData16: "data16",
	FormLineStrp: "line_strp", FormRefSig8: "ref_sig8",
	FormImplicitConst: "implicit_const", FormLoclistx: "loclistx",
	FormRnglistx: "rnglistx", FormRefSup8: "ref_sup8",
	FormStrx1: "strx1", FormStrx2: "strx2", FormStrx3: "strx3",
	FormStrx4: "strx4", FormAddrx1: "addrx1", FormAddrx2: "addrx2",
	FormAddrx3: "addrx3", FormAddrx4: "addrx4",
}

func (f Form) String() string {
	if s, ok := formNames[f]; ok {
		return "DW_FORM_" + s
	}
	return "DW_FORM_" + strconv.FormatUint(uint64(f), 16)
}

// A Class is the semantic type of a decoded value.
type Class int

const (
	ClassInvalid Class = iota
	ClassAddress
	ClassBlock
	ClassConstant
	ClassUConstant
	ClassSConstant
	ClassExprloc
	ClassFlag
	ClassLine
	ClassLocList
	ClassMac
	ClassRangeList
	ClassReference
	ClassString
	ClassSecOffset
)

var classNames = [...]string{
	"invalid", "address", "block", "constant", "uconstant", "sconstant",
	"exprloc", "flag", "line", "loclist", "mac", "rangelist",
	"reference", "string", "sec_offset",
}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return "unknown"
	}
	return classNames[c]
}

// DefaultClass returns the semantic class implied by a form alone.
// Section-offset forms are ambiguous without the attribute name; they
// map to the generic ClassSecOffset.
func DefaultClass(f Form) Class {
	switch f {
	case FormAddr, FormAddrx, FormAddrx1, FormAddrx2, FormAddrx3, FormAddrx4:
		return ClassAddress
	case FormBlock, FormBlock1, FormBlock2, FormBlock4, FormData16:
		return ClassBlock
	case FormData1, FormData2, FormData4, FormData8:
		return ClassConstant
	case FormUdata:
		return ClassUConstant
	case FormSdata, FormImplicitConst:
		return ClassSConstant
	case FormExprloc:
		return ClassExprloc
	case FormFlag, FormFlagPresent:
		return ClassFlag
	case FormString, FormStrp, FormLineStrp, FormStrpSup,
		FormStrx, FormStrx1, FormStrx2, FormStrx3, FormStrx4:
		return ClassString
	case FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata,
		FormRefAddr, FormRefSig8, FormRefSup4, FormRefSup8:
		return ClassReference
	case FormSecOffset:
		return ClassSecOffset
	case FormRnglistx:
		return ClassRangeList
	case FormLoclistx:
		return ClassLocList
	}
	return ClassInvalid
}

// Standard line-number opcodes (DWARF 4 section 6.2.5.2).
type LNS uint8

const (
	LNSCopy             LNS = 1
	LNSAdvancePC        LNS = 2
	LNSAdvanceLine      LNS = 3
	LNSSetFile          LNS = 4
	LNSSetColumn        LNS = 5
	LNSNegateStmt       LNS = 6
	LNSSetBasicBlock    LNS = 7
	LNSConstAddPC       LNS = 8
	LNSFixedAdvancePC   LNS = 9
	LNSSetPrologueEnd   LNS = 10
	LNSSetEpilogueBegin LNS = 11
	LNSSetISA           LNS = 12
)

var lnsNames = [...]string{
	"", "copy", "advance_pc", "advance_line", "set_file", "set_column",
	"negate_stmt", "set_basic_block", "const_add_pc", "fixed_advance_pc",
	"set_prologue_end", "set_epilogue_begin", "set_isa",
}

func (op LNS) String() string {
	if int(op) < len(lnsNames) && op > 0 {
		return "DW_LNS_" + lnsNames[op]
	}
	return "DW_LNS_" + strconv.Itoa(int(op))
}

// Extended line-number opcodes (DWARF 4 section 6.2.5.3).
type LNE uint8

const (
	LNEEndSequence      LNE = 1
	LNESetAddress       LNE = 2
	LNEDefineFile       LNE = 3
	LNESetDiscriminator LNE = 4
	LNELoUser           LNE = 0x80
	LNEHiUser           LNE = 0xff
)

var lneNames = [...]string{
	"", "end_sequence", "set_address", "define_file", "set_discriminator",
}

func (op LNE) String() string {
	if int(op) < len(lneNames) && op > 0 {
		return "DW_LNE_" + lneNames[op]
	}
	return "DW_LNE_" + strconv.Itoa(int(op))
}

// Line-table entry content codes (DWARF 5 section 6.2.4.1).
type LNCT uint64

const (
	LNCTPath           LNCT = 1
	LNCTDirectoryIndex LNCT = 2
	LNCTTimestamp      LNCT = 3
	LNCTSize           LNCT = 4
	LNCTMD5            LNCT = 5
	LNCTLoUser         LNCT = 0x2000
	LNCTHiUser         LNCT = 0x3fff
)

// Range-list entry kinds (DWARF 5 section 2.17.3).
type RLE uint8

const (
	RLEEndOfList    RLE = 0
	RLEBaseAddressx RLE = 1
	RLEStartxEndx   RLE = 2
	RLEStartxLength RLE = 3
	RLEOffsetPair   RLE = 4
	RLEBaseAddress  RLE = 5
	RLEStartEnd     RLE = 6
	RLEStartLength  RLE = 7
)

var rleNames = [...]string{
	"end_of_list", "base_addressx", "startx_endx", "startx_length",
	"offset_pair", "base_address", "start_end", "start_length",
}

func (k RLE) String() string {
	if int(k) < len(rleNames) {
		return "DW_RLE_" + rleNames[k]
	}
	return "DW_RLE_" + strconv.Itoa(int(k))
}
