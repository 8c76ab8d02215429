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

import "strconv"

const hexdigits = "0123456789abcdef"

// appendJSONString quotes and escapes raw and appends it to dst, following
// the same byte-for-byte escaping table as write_json_string in the
// original decoder: the seven named JSON escapes, \u00XX for any other
// control byte, and every byte >= 0x20 passed straight through with no
// UTF-8 validation. A BEJ STRING is declared schema-valid UTF-8 by the
// producer (spec.md §4.4 Non-goals: no re-validation here).
func appendJSONString(dst []byte, raw []byte) []byte {
	dst = append(dst, '"')
	for _, c := range raw {
		switch c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			if c < 0x20 {
				dst = append(dst, '\\', 'u', '0', '0', hexdigits[c>>4], hexdigits[c&0xF])
			} else {
				dst = append(dst, c)
			}
		}
	}
	return append(dst, '"')
}

// appendSeqName appends the synthetic "seq_<N>" placeholder used whenever
// Dictionary.Find cannot resolve a property name (spec.md §4.4, scenario S7).
func appendSeqName(dst []byte, sequence uint32) []byte {
	dst = append(dst, "seq_"...)
	return strconv.AppendUint(dst, uint64(sequence), 10)
}
