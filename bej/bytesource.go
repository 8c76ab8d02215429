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

import "io"

// ByteSource is a uniform sequential reader over either a file handle or a
// borrowed in-memory slice. Short reads are not an error at this layer;
// callers (the primitive codec) interpret a short read as ErrUnexpectedEOF
// themselves.
type ByteSource interface {
	// Read reads up to len(dest) bytes into dest and returns the number
	// actually read. It returns (0, nil) at end of input, never blocking
	// beyond what the underlying source blocks for.
	Read(dest []byte) (n int, err error)

	// EOF reports whether the source is exhausted, i.e. no further bytes
	// are available.
	EOF() bool
}

// MemSource is a ByteSource backed by a borrowed byte slice with an
// internal cursor. Nested container decoding always wraps a new MemSource
// around the parent tuple's value bytes (spec.md §4.1, §9).
type MemSource struct {
	data []byte
	pos  int
}

// NewMemSource returns a ByteSource over data. data is borrowed, not
// copied; the caller must keep it alive for the lifetime of the source.
func NewMemSource(data []byte) *MemSource {
	return &MemSource{data: data}
}

// Read clamps the requested count to size-position and advances the
// cursor by the number of bytes actually copied.
func (m *MemSource) Read(dest []byte) (int, error) {
	avail := len(m.data) - m.pos
	if avail <= 0 {
		return 0, nil
	}
	n := len(dest)
	if n > avail {
		n = avail
	}
	copy(dest, m.data[m.pos:m.pos+n])
	m.pos += n
	return n, nil
}

// EOF reports whether the cursor has reached the end of the slice.
func (m *MemSource) EOF() bool {
	return m.pos >= len(m.data)
}

// Len returns the number of unread bytes remaining.
func (m *MemSource) Len() int {
	return len(m.data) - m.pos
}

// readFull reads exactly len(dest) bytes from src, or fails with
// ErrUnexpectedEOF. The primitive codec and dictionary loader build every
// fixed-size read (NNINT payload bytes, SFLV format byte, dictionary
// header/records) on top of this helper.
func readFull(src ByteSource, dest []byte) error {
	got := 0
	for got < len(dest) {
		n, err := src.Read(dest[got:])
		if n == 0 {
			if err != nil && err != io.EOF {
				return err
			}
			return ErrUnexpectedEOF
		}
		got += n
	}
	return nil
}
