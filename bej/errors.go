// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package bej

import (
	"fmt"
	"io"
)

// ErrUnexpectedEOF is returned whenever a read stops in the middle of a
// tuple or a dictionary record. It is the stdlib sentinel, not a bespoke
// type, so callers can keep using errors.Is(err, io.ErrUnexpectedEOF).
var ErrUnexpectedEOF = io.ErrUnexpectedEOF

// MalformedNnintError is returned when an NNINT length byte is not in
// [1,4].
type MalformedNnintError struct {
	Length byte
	Func   string
}

func (e *MalformedNnintError) Error() string {
	return fmt.Sprintf("bej.%s: invalid NNINT length byte %d (want 1..4)", e.Func, e.Length)
}

func malformedNnint(length byte, fn string) error {
	return &MalformedNnintError{Length: length, Func: fn}
}

// FormatError is returned when a format nibble is outside the known
// BEJ format range {0x0..0xB}.
type FormatError struct {
	Got  Format
	Func string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bej.%s: unknown format nibble 0x%X", e.Func, byte(e.Got))
}

func unknownFormat(got Format, fn string) error {
	return &FormatError{Got: got, Func: fn}
}

// DictionaryRangeError describes a dictionary entry whose name offset and
// length do not fit within the dictionary blob. Per spec this is non-fatal:
// the entry is kept, just without a name. The error type exists so
// diagnostics (-v) can report it; LoadDictionary never returns it.
type DictionaryRangeError struct {
	EntryIndex int
	NameOffset uint16
	NameLength uint8
	BlobSize   uint32
}

func (e *DictionaryRangeError) Error() string {
	return fmt.Sprintf("bej.LoadDictionary: entry %d name range [%d,%d) exceeds blob size %d",
		e.EntryIndex, e.NameOffset, int(e.NameOffset)+int(e.NameLength), e.BlobSize)
}
