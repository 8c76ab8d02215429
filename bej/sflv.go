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

import "fmt"

// Format is the 4-bit BEJ format code carried in the high nibble of an
// SFLV tuple's format byte (spec.md §3).
type Format byte

const (
	SetFormat                Format = 0x0
	ArrayFormat              Format = 0x1
	NullFormat               Format = 0x2
	IntegerFormat            Format = 0x3
	EnumFormat               Format = 0x4
	StringFormat             Format = 0x5
	RealFormat               Format = 0x6
	BooleanFormat            Format = 0x7
	ByteStringFormat         Format = 0x8
	ChoiceFormat             Format = 0x9
	PropertyAnnotationFormat Format = 0xA
	RegistryItemFormat       Format = 0xB
)

func (f Format) String() string {
	switch f {
	case SetFormat:
		return "set"
	case ArrayFormat:
		return "array"
	case NullFormat:
		return "null"
	case IntegerFormat:
		return "integer"
	case EnumFormat:
		return "enum"
	case StringFormat:
		return "string"
	case RealFormat:
		return "real"
	case BooleanFormat:
		return "boolean"
	case ByteStringFormat:
		return "byte_string"
	case ChoiceFormat:
		return "choice"
	case PropertyAnnotationFormat:
		return "property_annotation"
	case RegistryItemFormat:
		return "registry_item"
	default:
		return fmt.Sprintf("format(0x%X)", byte(f))
	}
}

// Valid reports whether f is one of the twelve defined BEJ format codes.
func (f Format) Valid() bool {
	return f <= RegistryItemFormat
}

// unimplemented reports whether f is recognized but not decoded
// (spec.md Non-goals): CHOICE, PROPERTY_ANNOTATION, REGISTRY_ITEM.
func (f Format) unimplemented() bool {
	switch f {
	case ChoiceFormat, PropertyAnnotationFormat, RegistryItemFormat:
		return true
	default:
		return false
	}
}

// SFLV is the in-memory form of one parsed BEJ value tuple (spec.md §3).
type SFLV struct {
	Sequence     uint32 // dictionary sequence number, selector bit removed
	DictSelector byte   // 0 = schema dictionary, 1 = annotation dictionary
	Format       Format // high nibble of the wire format byte
	rawFormat    byte   // full format byte, low nibble (sub-format flags) preserved but unused by this decoder (spec.md §9)
	Value        []byte // owned payload buffer, exactly Length bytes
}

// Length returns the number of payload bytes, i.e. len(Value).
func (s *SFLV) Length() int { return len(s.Value) }

// ReadSFLV reads one SFLV tuple from src (spec.md §4.2, scenario S2):
//
//  1. NNINT combined sequence field (selector bit 0, sequence bits 1..31)
//  2. one format byte (only the high nibble is kept)
//  3. NNINT length
//  4. exactly length payload bytes
//
// If any sub-read fails the tuple is left empty; there is nothing to
// release since Go's GC owns the partially-filled Value slice.
func ReadSFLV(src ByteSource) (SFLV, error) {
	var out SFLV

	combined, err := ReadNNINT(src)
	if err != nil {
		return SFLV{}, err
	}
	out.DictSelector = byte(combined & 0x1)
	out.Sequence = combined >> 1

	var fb [1]byte
	if err := readFull(src, fb[:]); err != nil {
		return SFLV{}, err
	}
	out.rawFormat = fb[0]
	out.Format = Format(fb[0] >> 4)

	length, err := ReadNNINT(src)
	if err != nil {
		return SFLV{}, err
	}

	if length > 0 {
		out.Value = make([]byte, length)
		if err := readFull(src, out.Value); err != nil {
			return SFLV{}, err
		}
	}
	return out, nil
}
