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
	"io"
	"math"
	"strconv"
)

const bejHeaderSize = 4 + 2 + 1 // version + flags + schema_class

// DecoderContext holds everything one decode call needs (spec.md §3): the
// two dictionaries, the output sink, and the current indent depth. It is
// not safe for concurrent use; the two Dictionary values it points at may
// be, and commonly are, shared by reference with other concurrent decode
// calls (spec.md §5).
type DecoderContext struct {
	Schema     *Dictionary
	Annotation *Dictionary
	Out        io.Writer

	// Warn, if non-nil, is called once per non-fatal condition worth
	// surfacing to an operator (an unimplemented or unknown format,
	// trailing bytes after an enum option). Unresolved names are not
	// reported. The core itself never writes to stderr; cmd/bejdump wires
	// this to a verbose logger.
	Warn func(format string, args ...any)

	depth int
	buf   []byte // reusable scratch for number/string formatting, ion.scratch-style
}

// NewDecoderContext builds a DecoderContext over the given dictionaries
// and output sink. Either dictionary may be nil, in which case any tuple
// selecting it resolves no names and falls back to "seq_<N>" placeholders.
func NewDecoderContext(schema, annotation *Dictionary, out io.Writer) *DecoderContext {
	return &DecoderContext{Schema: schema, Annotation: annotation, Out: out}
}

func (c *DecoderContext) warnf(format string, args ...any) {
	if c.Warn != nil {
		c.Warn(format, args...)
	}
}

func (c *DecoderContext) dictFor(selector byte) *Dictionary {
	if selector == 1 {
		return c.Annotation
	}
	return c.Schema
}

// Decode reads and discards the BEJ stream header (spec.md §4.4, §6: 4-byte
// version, 2-byte flags, 1-byte schema-class), then reads and transcodes
// the single top-level SFLV tuple, writing a well-formed JSON document
// (plus trailing newline) to c.Out.
func (c *DecoderContext) Decode(src ByteSource) error {
	var header [bejHeaderSize]byte
	if err := readFull(src, header[:]); err != nil {
		return err
	}

	top, err := ReadSFLV(src)
	if err != nil {
		return err
	}
	if err := c.decodeValue(nil, top); err != nil {
		return err
	}
	_, err = io.WriteString(c.Out, "\n")
	return err
}

// decodeValue dispatches s by format (spec.md §4.4 dispatch table). entry
// is the dictionary entry that resolved s itself (nil at the top level, or
// for array elements the array's own entry, per spec.md §4.4 decode_array):
// it is the lookup root for s's own children or enum options.
func (c *DecoderContext) decodeValue(entry *DictionaryEntry, s SFLV) error {
	if !s.Format.Valid() {
		err := unknownFormat(s.Format, "decodeValue")
		c.warnf("%v", err)
		if werr := c.writeString("null"); werr != nil {
			return werr
		}
		return err
	}
	switch s.Format {
	case SetFormat:
		return c.decodeSet(entry, s)
	case ArrayFormat:
		return c.decodeArray(entry, s)
	case NullFormat:
		return c.writeString("null")
	case IntegerFormat:
		return c.decodeInteger(s)
	case EnumFormat:
		return c.decodeEnum(entry, s)
	case StringFormat:
		return c.decodeString(s)
	case RealFormat:
		return c.decodeReal(s)
	case BooleanFormat:
		return c.decodeBoolean(s)
	case ByteStringFormat:
		return c.writeString(`"<byte_string>"`)
	case ChoiceFormat, PropertyAnnotationFormat, RegistryItemFormat:
		c.warnf("bej: format %s is not decoded, emitting null", s.Format)
		return c.writeString("null")
	}
	return nil
}

func (c *DecoderContext) writeString(s string) error {
	_, err := io.WriteString(c.Out, s)
	return err
}

func (c *DecoderContext) writeIndent() error {
	c.buf = c.buf[:0]
	c.buf = append(c.buf, '\n')
	for i := 0; i < c.depth; i++ {
		c.buf = append(c.buf, '\t')
	}
	_, err := c.Out.Write(c.buf)
	return err
}

// decodeSet emits a JSON object (spec.md §4.4 decode_set). entry is the
// dictionary entry that resolved this SET tuple itself; it roots the
// lookup for each child's name.
func (c *DecoderContext) decodeSet(entry *DictionaryEntry, s SFLV) error {
	if len(s.Value) == 0 {
		return c.writeString("{}")
	}
	if err := c.writeString("{"); err != nil {
		return err
	}

	body := NewMemSource(s.Value)
	if _, err := ReadNNINT(body); err != nil { // declared child count, validation only
		return err
	}

	c.depth++
	first := true
	for !body.EOF() {
		child, err := ReadSFLV(body)
		if err != nil {
			c.depth--
			return err
		}
		childDict := c.dictFor(child.DictSelector)
		childEntry, _ := childDict.Find(entry, child.Sequence, child.Format)

		if !first {
			if err := c.writeString(","); err != nil {
				c.depth--
				return err
			}
		}
		first = false

		if err := c.writeIndent(); err != nil {
			c.depth--
			return err
		}

		c.buf = c.buf[:0]
		c.buf = append(c.buf, '"')
		if childEntry != nil && childEntry.HasName {
			c.buf = append(c.buf, childEntry.Name...)
		} else {
			c.buf = appendSeqName(c.buf, child.Sequence)
		}
		c.buf = append(c.buf, '"', ':', ' ')
		if _, err := c.Out.Write(c.buf); err != nil {
			c.depth--
			return err
		}

		if err := c.decodeValue(childEntry, child); err != nil {
			c.depth--
			return err
		}
	}
	c.depth--

	if err := c.writeIndent(); err != nil {
		return err
	}
	return c.writeString("}")
}

// decodeArray emits a JSON array (spec.md §4.4 decode_array). Unlike
// decodeSet, elements carry no name and recurse with entry unchanged: array
// elements share the array's own schema entry rather than each appearing
// as a distinct dictionary entry.
func (c *DecoderContext) decodeArray(entry *DictionaryEntry, s SFLV) error {
	if len(s.Value) == 0 {
		return c.writeString("[]")
	}
	if err := c.writeString("["); err != nil {
		return err
	}

	body := NewMemSource(s.Value)
	if _, err := ReadNNINT(body); err != nil { // declared element count, discarded per spec.md §9
		return err
	}

	first := true
	for !body.EOF() {
		elem, err := ReadSFLV(body)
		if err != nil {
			return err
		}
		if !first {
			if err := c.writeString(", "); err != nil {
				return err
			}
		}
		first = false
		if err := c.decodeValue(entry, elem); err != nil {
			return err
		}
	}
	return c.writeString("]")
}

// decodeInteger emits a JSON number (spec.md §4.4 decode_integer): 1..8
// little-endian payload bytes assembled into a 64-bit slot and
// sign-extended from the high bit of the final byte.
func (c *DecoderContext) decodeInteger(s SFLV) error {
	n := len(s.Value)
	if n == 0 {
		return c.writeString("0")
	}
	if n > 8 {
		n = 8
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(s.Value[i]) << (8 * i)
	}
	if n < 8 && s.Value[n-1]&0x80 != 0 {
		v |= ^uint64(0) << (8 * uint(n))
	}
	c.buf = strconv.AppendInt(c.buf[:0], int64(v), 10)
	_, err := c.Out.Write(c.buf)
	return err
}

// decodeReal emits a JSON number (spec.md §4.4 decode_real): length-driven
// and lenient, see spec.md §9 on the 1/2-byte fallback.
func (c *DecoderContext) decodeReal(s SFLV) error {
	switch len(s.Value) {
	case 4:
		bits := leUint32(s.Value)
		f := math.Float32frombits(bits)
		c.buf = strconv.AppendFloat(c.buf[:0], float64(f), 'g', 7, 32)
	case 8:
		bits := uint64(leUint32(s.Value[:4])) | uint64(leUint32(s.Value[4:8]))<<32
		f := math.Float64frombits(bits)
		c.buf = strconv.AppendFloat(c.buf[:0], f, 'g', 15, 64)
	case 1:
		c.buf = strconv.AppendUint(c.buf[:0], uint64(s.Value[0]), 10)
	case 2:
		c.buf = strconv.AppendUint(c.buf[:0], uint64(leUint16(s.Value)), 10)
	default:
		return c.writeString("null")
	}
	_, err := c.Out.Write(c.buf)
	return err
}

// decodeString emits a JSON string from raw payload bytes (spec.md §4.4
// decode_string), escaping via appendJSONString.
func (c *DecoderContext) decodeString(s SFLV) error {
	c.buf = appendJSONString(c.buf[:0], s.Value)
	_, err := c.Out.Write(c.buf)
	return err
}

// decodeBoolean emits true iff any payload byte is non-zero; empty payload
// is false (spec.md §4.4, boundary cases).
func (c *DecoderContext) decodeBoolean(s SFLV) error {
	for _, b := range s.Value {
		if b != 0 {
			return c.writeString("true")
		}
	}
	return c.writeString("false")
}

// decodeEnum resolves the payload's NNINT option sequence against entry's
// children (spec.md §4.4 decode_enum, scenario S6), in the dictionary the
// tuple itself selects. entry is the dictionary entry that resolved this
// very ENUM tuple (see decodeValue's doc comment).
func (c *DecoderContext) decodeEnum(entry *DictionaryEntry, s SFLV) error {
	body := NewMemSource(s.Value)
	option, err := ReadNNINT(body)
	if err != nil {
		return err
	}
	if n := body.Len(); n != 0 {
		c.warnf("bej: enum payload has %d trailing byte(s) after its option NNINT", n)
	}

	dict := c.dictFor(s.DictSelector)
	opt, ok := dict.Find(entry, option, AnyFormat)

	c.buf = c.buf[:0]
	c.buf = append(c.buf, '"')
	if ok && opt.HasName {
		c.buf = append(c.buf, opt.Name...)
	} else {
		c.buf = strconv.AppendUint(c.buf, uint64(option), 10)
	}
	c.buf = append(c.buf, '"')
	_, werr := c.Out.Write(c.buf)
	return werr
}
