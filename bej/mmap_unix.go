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

//go:build unix

package bej

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapBacking serves FileSource reads out of a zero-copy mmap of the whole
// file, the same trade the teacher's syscall-level fast paths make for
// read-mostly buffers.
type mmapBacking struct {
	data []byte
	pos  int
	f    *os.File
}

func newFileBacking(f *os.File) (fileBacking, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size == 0 {
		// mmap of a zero-length file fails; an empty MemSource
		// behaves identically (immediate EOF) without a syscall.
		return &memBacking{src: NewMemSource(nil), f: f}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		// fall back to buffered reads rather than fail the open
		// outright (e.g. tmpfs/procfs files that can't be mapped).
		return newBufferedBacking(f)
	}
	return &mmapBacking{data: data, f: f}, nil
}

func (m *mmapBacking) Read(dest []byte) (int, error) {
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

func (m *mmapBacking) EOF() bool { return m.pos >= len(m.data) }

func (m *mmapBacking) Close() error {
	if m.data != nil {
		unix.Munmap(m.data)
		m.data = nil
	}
	return m.f.Close()
}
