// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import "fmt"

// A FormatError reports that the byte stream violates the DWARF
// standard or a constraint the decoder depends on.
type FormatError struct {
	// Sect is the section in which the error was detected, or -1 if
	// not known.
	Sect SectionType

	// Off is the section offset at which the error was detected.
	Off uint64

	// Msg describes the violation, including the offending value.
	Msg string
}

func (e *FormatError) Error() string {
	if e.Sect < 0 {
		return "dwarf: " + e.Msg
	}
	return fmt.Sprintf("dwarf: %s+%#x: %s", e.Sect, e.Off, e.Msg)
}

func formatError(off uint64, format string, args ...interface{}) *FormatError {
	return &FormatError{Sect: -1, Off: off, Msg: fmt.Sprintf(format, args...)}
}

// A TypeMismatchError reports a typed projection that does not match
// the stored form, such as reading a data4 value as an address.
type TypeMismatchError struct {
	// Form is the value's form code.
	Form Form

	// Class is the value's semantic class.
	Class Class

	// As names the projection that was attempted.
	As string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("dwarf: cannot read %s value (form %s) as %s", e.Class, e.Form, e.As)
}

// A NotImplementedError reports a vendor-range opcode or extension the
// decoder does not handle. It is distinct from FormatError so callers
// that want to tolerate vendor extensions can tell the two apart.
type NotImplementedError struct {
	What string
}

func (e *NotImplementedError) Error() string {
	return "dwarf: " + e.What + " not implemented"
}
