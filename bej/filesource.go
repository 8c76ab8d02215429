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

import "os"

// FileSource is the file-backed ByteSource (spec.md §4.1). On platforms
// with an mmap fast path (see mmap_unix.go) the whole file is mapped once
// and reads are served as slice copies out of the mapping; elsewhere
// (mmap_other.go) it falls back to buffered os.File reads.
type FileSource struct {
	impl fileBacking
}

// fileBacking is implemented once per platform family; see mmap_unix.go
// and mmap_other.go.
type fileBacking interface {
	Read(dest []byte) (int, error)
	EOF() bool
	Close() error
}

// OpenFileSource opens path and returns a FileSource over its contents.
// Call Close when done; decode always fully drains a FileSource before
// discarding it, but callers that abort early must still Close.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	impl, err := newFileBacking(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileSource{impl: impl}, nil
}

func (fs *FileSource) Read(dest []byte) (int, error) { return fs.impl.Read(dest) }
func (fs *FileSource) EOF() bool                     { return fs.impl.EOF() }
func (fs *FileSource) Close() error                  { return fs.impl.Close() }
