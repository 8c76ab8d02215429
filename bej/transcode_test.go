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
	"bytes"
	"strings"
	"testing"
)

// buildSFLV assembles one wire SFLV tuple from its logical fields, the way
// a real encoder would, so tests describe intent (sequence, selector,
// format, payload) instead of hand-counted NNINT bytes.
func buildSFLV(selector byte, sequence uint32, format Format, value []byte) []byte {
	var out []byte
	combined := sequence<<1 | uint32(selector)
	out = appendNNINT(out, combined)
	out = append(out, byte(format)<<4)
	out = appendNNINT(out, uint32(len(value)))
	out = append(out, value...)
	return out
}

// buildContainerPayload assembles a SET/ARRAY payload: a declared count
// NNINT followed by the concatenation of each child's own SFLV bytes.
func buildContainerPayload(count uint32, children ...[]byte) []byte {
	out := appendNNINT(nil, count)
	for _, c := range children {
		out = append(out, c...)
	}
	return out
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// decodeValueJSON decodes a lone SFLV (no stream header) against the given
// dictionaries, rooted at parent, and returns the JSON text written for it.
func decodeValueJSON(t *testing.T, schema, anno *Dictionary, parent *DictionaryEntry, sflv []byte) string {
	t.Helper()
	s, err := ReadSFLV(NewMemSource(sflv))
	if err != nil {
		t.Fatalf("ReadSFLV: %v", err)
	}
	var out bytes.Buffer
	ctx := NewDecoderContext(schema, anno, &out)
	if err := ctx.decodeValue(parent, s); err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	return out.String()
}

// S3: INTEGER length=4, value 39 30 00 00 -> 12345.
func TestDecodeIntegerPositive(t *testing.T) {
	sflv := buildSFLV(0, 0, IntegerFormat, []byte{0x39, 0x30, 0x00, 0x00})
	got := decodeValueJSON(t, nil, nil, nil, sflv)
	if got != "12345" {
		t.Fatalf("got %q, want 12345", got)
	}
}

func TestDecodeIntegerNegativeHighBit(t *testing.T) {
	sflv := buildSFLV(0, 0, IntegerFormat, bytes.Repeat([]byte{0xFF}, 8))
	got := decodeValueJSON(t, nil, nil, nil, sflv)
	if got != "-1" {
		t.Fatalf("got %q, want -1", got)
	}
}

func TestDecodeIntegerSignExtendsShortPayload(t *testing.T) {
	sflv := buildSFLV(0, 0, IntegerFormat, []byte{0xFF})
	got := decodeValueJSON(t, nil, nil, nil, sflv)
	if got != "-1" {
		t.Fatalf("got %q, want -1", got)
	}
}

func TestDecodeIntegerZeroLength(t *testing.T) {
	sflv := buildSFLV(0, 0, IntegerFormat, nil)
	got := decodeValueJSON(t, nil, nil, nil, sflv)
	if got != "0" {
		t.Fatalf("got %q, want 0", got)
	}
}

// S4: BOOLEAN.
func TestDecodeBoolean(t *testing.T) {
	cases := []struct {
		value []byte
		want  string
	}{
		{[]byte{0x01}, "true"},
		{[]byte{0x00}, "false"},
		{nil, "false"},
	}
	for _, c := range cases {
		sflv := buildSFLV(0, 0, BooleanFormat, c.value)
		got := decodeValueJSON(t, nil, nil, nil, sflv)
		if got != c.want {
			t.Fatalf("value=%x: got %q, want %q", c.value, got, c.want)
		}
	}
}

// S5: STRING.
func TestDecodeString(t *testing.T) {
	sflv := buildSFLV(0, 0, StringFormat, []byte("Hi"))
	got := decodeValueJSON(t, nil, nil, nil, sflv)
	if got != `"Hi"` {
		t.Fatalf("got %q, want \"Hi\"", got)
	}
}

func TestDecodeStringEscaping(t *testing.T) {
	raw := []byte("a\"b\\c\nd\x01e")
	sflv := buildSFLV(0, 0, StringFormat, raw)
	got := decodeValueJSON(t, nil, nil, nil, sflv)
	want := `"a\"b\\c\nd\u0001e"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if strings.Contains(got, `e"`) {
		t.Fatalf("control byte 0x01 passed through unescaped: %q", got)
	}
}

func TestDecodeStringEmpty(t *testing.T) {
	sflv := buildSFLV(0, 0, StringFormat, nil)
	got := decodeValueJSON(t, nil, nil, nil, sflv)
	if got != `""` {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestDecodeReal(t *testing.T) {
	var buf4 bytes.Buffer
	ctx := NewDecoderContext(nil, nil, &buf4)
	s := SFLV{Format: RealFormat, Value: []byte{0x00, 0x00, 0x20, 0x41}} // float32(10.0)
	if err := ctx.decodeValue(nil, s); err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	if buf4.String() != "10" {
		t.Fatalf("float32 got %q, want 10", buf4.String())
	}

	var buf1 bytes.Buffer
	ctx1 := NewDecoderContext(nil, nil, &buf1)
	s1 := SFLV{Format: RealFormat, Value: []byte{0x07}}
	if err := ctx1.decodeValue(nil, s1); err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	if buf1.String() != "7" {
		t.Fatalf("1-byte fallback got %q, want 7", buf1.String())
	}

	var bufOther bytes.Buffer
	ctxOther := NewDecoderContext(nil, nil, &bufOther)
	sOther := SFLV{Format: RealFormat, Value: []byte{0x01, 0x02, 0x03}}
	if err := ctxOther.decodeValue(nil, sOther); err != nil {
		t.Fatalf("decodeValue: %v", err)
	}
	if bufOther.String() != "null" {
		t.Fatalf("3-byte real got %q, want null", bufOther.String())
	}
}

func TestDecodeEmptySetAndArray(t *testing.T) {
	set := decodeValueJSON(t, nil, nil, nil, buildSFLV(0, 0, SetFormat, nil))
	if set != "{}" {
		t.Fatalf("empty SET got %q, want {}", set)
	}
	arr := decodeValueJSON(t, nil, nil, nil, buildSFLV(0, 0, ArrayFormat, nil))
	if arr != "[]" {
		t.Fatalf("empty ARRAY got %q, want []", arr)
	}
}

func TestDecodeUnimplementedFormatsEmitNullWithWarning(t *testing.T) {
	for _, f := range []Format{ChoiceFormat, PropertyAnnotationFormat, RegistryItemFormat} {
		var out bytes.Buffer
		ctx := NewDecoderContext(nil, nil, &out)
		var warned bool
		ctx.Warn = func(string, ...any) { warned = true }
		s := SFLV{Format: f}
		if err := ctx.decodeValue(nil, s); err != nil {
			t.Fatalf("format %v: unexpected error %v", f, err)
		}
		if out.String() != "null" {
			t.Fatalf("format %v: got %q, want null", f, out.String())
		}
		if !warned {
			t.Fatalf("format %v: expected a warning", f)
		}
	}
}

func TestDecodeUnknownFormatIsFatal(t *testing.T) {
	var out bytes.Buffer
	ctx := NewDecoderContext(nil, nil, &out)
	s := SFLV{Format: Format(0xE)}
	err := ctx.decodeValue(nil, s)
	if err == nil {
		t.Fatalf("expected an error for an unknown format nibble")
	}
	if out.String() != "null" {
		t.Fatalf("got %q, want null still emitted on the error path", out.String())
	}
}

// S6: ENUM.
func TestDecodeEnumResolved(t *testing.T) {
	entries := []fixtureEntry{
		{format: 0x40, sequence: 0, children: []int{1}, name: "State"},
		{format: 0x00, sequence: 5, name: "Active"},
	}
	schema, err := LoadDictionary(NewMemSource(buildDictionary(t, entries)))
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}
	parent := &schema.entries[0]

	option := appendNNINT(nil, 5)
	sflv := buildSFLV(0, 0, EnumFormat, option)
	got := decodeValueJSON(t, schema, nil, parent, sflv)
	if got != `"Active"` {
		t.Fatalf("got %q, want \"Active\"", got)
	}
}

func TestDecodeEnumUnresolvedFallsBackToNumber(t *testing.T) {
	option := appendNNINT(nil, 7)
	sflv := buildSFLV(0, 0, EnumFormat, option)
	got := decodeValueJSON(t, nil, nil, nil, sflv)
	if got != `"7"` {
		t.Fatalf("got %q, want \"7\"", got)
	}
}

// S7: SET with two children resolving to "Id" and "Name".
func TestDecodeSetWithChildren(t *testing.T) {
	entries := []fixtureEntry{
		{format: 0x00, sequence: 0, children: []int{1, 2}, name: "Root"},
		{format: 0x30, sequence: 0, name: "Id"},
		{format: 0x50, sequence: 1, name: "Name"},
	}
	schema, err := LoadDictionary(NewMemSource(buildDictionary(t, entries)))
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}
	root := &schema.entries[0]

	idTuple := buildSFLV(0, 0, IntegerFormat, le32(42))
	nameTuple := buildSFLV(0, 1, StringFormat, []byte("a"))
	payload := buildContainerPayload(2, idTuple, nameTuple)
	setTuple := buildSFLV(0, 0, SetFormat, payload)

	got := decodeValueJSON(t, schema, nil, root, setTuple)
	want := "{\n\t\"Id\": 42,\n\t\"Name\": \"a\"\n}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodeSetUnresolvedChildUsesSeqName(t *testing.T) {
	child := buildSFLV(0, 0, IntegerFormat, le32(1))
	payload := buildContainerPayload(1, child)
	setTuple := buildSFLV(0, 0, SetFormat, payload)

	got := decodeValueJSON(t, nil, nil, nil, setTuple)
	if !strings.Contains(got, `"seq_0": 1`) {
		t.Fatalf("got %q, want a seq_0 placeholder key", got)
	}
}

func TestDecodeArrayOfIntegers(t *testing.T) {
	e1 := buildSFLV(0, 0, IntegerFormat, le32(1))
	e2 := buildSFLV(0, 0, IntegerFormat, le32(2))
	payload := buildContainerPayload(2, e1, e2)
	arrTuple := buildSFLV(0, 0, ArrayFormat, payload)

	got := decodeValueJSON(t, nil, nil, nil, arrTuple)
	if got != "[1, 2]" {
		t.Fatalf("got %q, want [1, 2]", got)
	}
}

func TestDecodeTopLevelHeader(t *testing.T) {
	var stream []byte
	stream = append(stream, 0xF0, 0xF0, 0xF1, 0xF1) // bej_version
	stream = append(stream, 0x00, 0x00)              // bej_flags
	stream = append(stream, 0x00)                    // schema_class
	stream = append(stream, buildSFLV(0, 0, BooleanFormat, []byte{0x01})...)

	var out bytes.Buffer
	ctx := NewDecoderContext(nil, nil, &out)
	if err := ctx.Decode(NewMemSource(stream)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.String() != "true\n" {
		t.Fatalf("got %q, want \"true\\n\"", out.String())
	}
}
