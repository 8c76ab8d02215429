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

	"golang.org/x/exp/slices"
)

const (
	dictHeaderSize = 12
	dictEntrySize  = 10
)

// DictionaryEntry is one packed 10-byte dictionary record, plus its
// resolved name (spec.md §3).
type DictionaryEntry struct {
	Format             byte   // only the high nibble is meaningful
	SequenceNumber     uint16
	ChildPointerOffset uint16 // absolute byte offset, 0 = no children
	ChildCount         uint16
	NameLength         uint8
	NameOffset         uint16 // absolute offset into the name region
	Name               string // "" if absent
	HasName            bool

	childStart int // (ChildPointerOffset-12)/10, valid only if ChildPointerOffset != 0
}

// ExpectedFormat returns the high nibble of Format: the BEJ format value
// this sequence number is declared to carry.
func (e *DictionaryEntry) ExpectedFormat() Format {
	return Format(e.Format >> 4)
}

// Dictionary is an immutable, once-loaded table of DictionaryEntry values
// plus the header fields from spec.md §3/§6.
type Dictionary struct {
	VersionTag     byte
	Flags          byte
	EntryCount     uint16
	SchemaVersion  uint32
	DictionarySize uint32

	entries []DictionaryEntry
	cache   *dictCache

	// RangeErrors accumulates non-fatal DictionaryRangeError values
	// encountered while loading, for -v diagnostics (spec.md §7: "Not
	// finding a name is not an error").
	RangeErrors []*DictionaryRangeError
}

// EntryCountLoaded returns the number of entries actually materialized
// (equals EntryCount for any dictionary that loaded successfully).
func (d *Dictionary) EntryCountLoaded() int { return len(d.entries) }

// LoadDictionary reads a packed dictionary blob from src in full (spec.md
// §4.3): a 12-byte header, entry_count 10-byte records, and a trailing
// name region addressed by absolute offsets. The whole blob is re-read
// into a working buffer up front so every entry's name can be resolved
// without a second pass of I/O.
func LoadDictionary(src ByteSource) (*Dictionary, error) {
	var header [dictHeaderSize]byte
	if err := readFull(src, header[:]); err != nil {
		return nil, fmt.Errorf("bej.LoadDictionary: reading header: %w", err)
	}

	d := &Dictionary{
		VersionTag:     header[0],
		Flags:          header[1],
		EntryCount:     leUint16(header[2:4]),
		SchemaVersion:  leUint32(header[4:8]),
		DictionarySize: leUint32(header[8:12]),
		cache:          newDictCache(),
	}

	bodySize := int(d.DictionarySize) - dictHeaderSize
	if bodySize < 0 {
		return nil, fmt.Errorf("bej.LoadDictionary: dictionary_size %d smaller than header", d.DictionarySize)
	}
	body := make([]byte, bodySize)
	if bodySize > 0 {
		if err := readFull(src, body); err != nil {
			return nil, fmt.Errorf("bej.LoadDictionary: reading body: %w", err)
		}
	}

	need := int(d.EntryCount) * dictEntrySize
	if need > len(body) {
		return nil, fmt.Errorf("bej.LoadDictionary: entry table needs %d bytes, blob only has %d", need, len(body))
	}

	d.entries = make([]DictionaryEntry, d.EntryCount)
	for i := range d.entries {
		rec := body[i*dictEntrySize : (i+1)*dictEntrySize]
		e := &d.entries[i]
		e.Format = rec[0]
		e.SequenceNumber = leUint16(rec[1:3])
		e.ChildPointerOffset = leUint16(rec[3:5])
		e.ChildCount = leUint16(rec[5:7])
		e.NameLength = rec[7]
		e.NameOffset = leUint16(rec[8:10])

		if e.ChildPointerOffset != 0 {
			e.childStart = (int(e.ChildPointerOffset) - dictHeaderSize) / dictEntrySize
		}

		if e.NameLength > 0 && e.NameLength < 255 {
			start := int(e.NameOffset)
			end := start + int(e.NameLength)
			if end <= int(d.DictionarySize) && start >= dictHeaderSize && end-dictHeaderSize <= len(body) {
				e.Name = string(body[start-dictHeaderSize : end-dictHeaderSize])
				e.HasName = true
			} else {
				d.RangeErrors = append(d.RangeErrors, &DictionaryRangeError{
					EntryIndex: i,
					NameOffset: e.NameOffset,
					NameLength: e.NameLength,
					BlobSize:   d.DictionarySize,
				})
			}
		}
	}

	return d, nil
}

// AnyFormat is the sentinel passed to Find to accept any declared format,
// used by enum option lookup where the caller does not know the option's
// declared format (spec.md §4.3).
const AnyFormat Format = 0xFF

// Find resolves (parent, sequence, format) to a dictionary entry (spec.md
// §4.3, scenario S8, invariants 4-5). parent == nil searches the whole
// entries table (the dictionary root is a virtual synthetic parent).
// Returns nil, false if nothing matches; that is not an error, it forces
// the caller to synthesize a "seq_<N>" placeholder name.
func (d *Dictionary) Find(parent *DictionaryEntry, sequence uint32, format Format) (*DictionaryEntry, bool) {
	if d == nil || len(d.entries) == 0 {
		return nil, false
	}

	start, count := 0, len(d.entries)
	if parent != nil {
		if parent.ChildPointerOffset == 0 || parent.ChildCount == 0 {
			return nil, false
		}
		start, count = parent.childStart, int(parent.ChildCount)
	}
	if start < 0 || start+count > len(d.entries) {
		return nil, false
	}

	if d.cache != nil {
		if idx, ok := d.cache.lookup(start, sequence, format); ok && idx >= start && idx < start+count {
			// A cache hit only names an index; siphash isn't
			// collision-free, so confirm the entry it points at is
			// actually the one asked for before trusting it, the way
			// a hash-indexed lookup should always re-check the key
			// (cf. ion.Symtab.toindex, which is keyed by the value
			// itself and needs no such recheck).
			e := &d.entries[idx]
			if uint32(e.SequenceNumber) == sequence && (format == AnyFormat || e.ExpectedFormat() == format) {
				return e, true
			}
		}
	}

	siblings := d.entries[start : start+count]
	idx := slices.IndexFunc(siblings, func(e DictionaryEntry) bool {
		if uint32(e.SequenceNumber) != sequence {
			return false
		}
		return format == AnyFormat || e.ExpectedFormat() == format
	})
	if idx < 0 {
		return nil, false
	}
	absolute := start + idx
	d.noteHit(start, sequence, format, absolute)
	return &d.entries[absolute], true
}

func (d *Dictionary) noteHit(start int, sequence uint32, format Format, absolute int) {
	d.cache.store(start, sequence, format, absolute)
}

// Clone returns a deep copy of d that shares no mutable state with it: a
// fresh entries slice and a cloned lookup cache. Spec.md §5 allows a
// Dictionary to be shared by reference across concurrent decodes; Clone
// exists for the caller that instead wants an independent copy it can
// mutate or hand off, the way ion.Symtab.CloneInto lets a caller detach a
// symbol table from the reader it came from.
func (d *Dictionary) Clone() *Dictionary {
	if d == nil {
		return nil
	}
	out := *d
	out.entries = append([]DictionaryEntry(nil), d.entries...)
	out.cache = d.cache.clone()
	out.RangeErrors = append([]*DictionaryRangeError(nil), d.RangeErrors...)
	return &out
}

func leUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
