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
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the 4-byte little-endian frame magic number every zstd
// frame starts with (RFC 8878 §3.1.1).
var zstdMagic = [4]byte{0x28, 0xB5, 0x2F, 0xFD}

// decompressIfNeeded sniffs the first four bytes of raw for the zstd frame
// magic and, if present, returns the fully inflated bytes; otherwise it
// returns raw unchanged. This lets -s/-a/-b accept either a bare packed
// dictionary or one a schema pipeline has stored zstd-compressed, without
// the caller having to know which.
func decompressIfNeeded(raw []byte) ([]byte, error) {
	if len(raw) < 4 || !bytes.Equal(raw[:4], zstdMagic[:]) {
		return raw, nil
	}
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("bej: opening zstd frame: %w", err)
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("bej: inflating zstd frame: %w", err)
	}
	return out, nil
}

// OpenDictionarySource opens path, transparently inflating it first if it
// is a zstd frame, and returns a ByteSource ready for LoadDictionary.
// Dictionaries are small enough (unlike arbitrary BEJ captures) that there
// is no value in mmap-ing a compressed one; it is read and inflated in
// full up front either way.
func OpenDictionarySource(path string) (ByteSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bej: opening dictionary %q: %w", path, err)
	}
	plain, err := decompressIfNeeded(raw)
	if err != nil {
		return nil, fmt.Errorf("bej: dictionary %q: %w", path, err)
	}
	return NewMemSource(plain), nil
}

// OpenBejSource opens path for decoding. If the file is not zstd-compressed
// it is handed to OpenFileSource so large captures still get the mmap fast
// path; only compressed inputs pay the full-read-then-inflate cost.
func OpenBejSource(path string) (ByteSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("bej: opening %q: %w", path, err)
	}
	var magic [4]byte
	n, _ := io.ReadFull(f, magic[:])
	if n == 4 && bytes.Equal(magic[:], zstdMagic[:]) {
		defer f.Close()
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("bej: opening %q: %w", path, err)
		}
		plain, err := decompressIfNeeded(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("bej: %q: %w", path, err)
		}
		src := NewMemSource(plain)
		return src, io.NopCloser(nil), nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("bej: opening %q: %w", path, err)
	}
	f.Close()
	fs, err := OpenFileSource(path)
	if err != nil {
		return nil, nil, err
	}
	return fs, fs, nil
}
