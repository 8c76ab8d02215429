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
	"os"
)

// newBufferedBacking is the portable FileSource implementation: the whole
// file is staged into memory once via io.ReadAll and served out of a
// MemSource, avoiding a second code path for EOF bookkeeping.
func newBufferedBacking(f *os.File) (fileBacking, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &memBacking{src: NewMemSource(data), f: f}, nil
}

// memBacking adapts a MemSource (plus the *os.File it owns, for Close) to
// the fileBacking interface. Used both as the portable fallback and as the
// unix zero-length-file fast path.
type memBacking struct {
	src *MemSource
	f   *os.File
}

func (b *memBacking) Read(dest []byte) (int, error) { return b.src.Read(dest) }
func (b *memBacking) EOF() bool                     { return b.src.EOF() }
func (b *memBacking) Close() error                  { return b.f.Close() }
