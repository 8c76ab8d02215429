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
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a short hex digest identifying the set of names and
// structure this dictionary resolved, so a -v decode run can log which
// dictionary revision produced a given JSON output without dumping the
// whole entry table. It has no bearing on decoding itself.
func (d *Dictionary) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	var hdr [dictHeaderSize]byte
	hdr[0] = d.VersionTag
	hdr[1] = d.Flags
	putLE16(hdr[2:4], d.EntryCount)
	putLE32(hdr[4:8], d.SchemaVersion)
	putLE32(hdr[8:12], d.DictionarySize)
	h.Write(hdr[:])
	for i := range d.entries {
		e := &d.entries[i]
		h.Write([]byte{e.Format})
		var seq [2]byte
		putLE16(seq[:], e.SequenceNumber)
		h.Write(seq[:])
		if e.HasName {
			h.Write([]byte(e.Name))
		}
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

func putLE16(dst []byte, v uint16) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
}

func putLE32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
