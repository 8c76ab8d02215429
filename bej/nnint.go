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

// ReadNNINT reads a BEJ non-negative integer from src: one length byte L
// in [1,4], followed by L little-endian payload bytes, zero-extended to
// 32 bits (spec.md §4.2, scenario S1).
//
// A length byte outside [1,4] is a MalformedNnintError; a short payload
// read is ErrUnexpectedEOF.
func ReadNNINT(src ByteSource) (uint32, error) {
	var lenByte [1]byte
	if err := readFull(src, lenByte[:]); err != nil {
		return 0, err
	}
	length := lenByte[0]
	if length < 1 || length > 4 {
		return 0, malformedNnint(length, "ReadNNINT")
	}
	var buf [4]byte
	if err := readFull(src, buf[:length]); err != nil {
		return 0, err
	}
	var result uint32
	for i := byte(0); i < length; i++ {
		result |= uint32(buf[i]) << (8 * i)
	}
	return result, nil
}

// appendNNINT encodes x in canonical (minimum-length) NNINT form. It is
// used only by tests to build wire fixtures; the decoder itself never
// needs to re-encode (spec.md Non-goals: encoding is out of scope for the
// production path).
func appendNNINT(dst []byte, x uint32) []byte {
	length := 1
	switch {
	case x > 0xFFFFFF:
		length = 4
	case x > 0xFFFF:
		length = 3
	case x > 0xFF:
		length = 2
	}
	dst = append(dst, byte(length))
	for i := 0; i < length; i++ {
		dst = append(dst, byte(x>>(8*i)))
	}
	return dst
}
