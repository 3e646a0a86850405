// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package windowreader gives byte-level random access to a file that is too
// large to hold in memory. A Reader keeps exactly one fixed-capacity window of
// the file cached; touching a byte outside it reloads the window anchored at
// that byte.
package windowreader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cardinalhq/bigtranspose/internal/fault"
)

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 512 * 1024

// Reader is not safe for concurrent use; the window is mutated on read.
type Reader struct {
	file     *os.File
	path     string
	length   int64
	capacity int

	window      []byte
	windowStart int64
	loaded      int

	reloads     int64
	bytesLoaded int64
	closed      bool
}

// Open opens path for reading with a window of capacity bytes. A capacity
// below 2 cannot hold any copy and is rejected.
func Open(path string, capacity int) (*Reader, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("window capacity must be at least 2 bytes, got %d", capacity)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &fault.IOOpenError{Path: path, Mode: fault.ModeRead, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &fault.IOOpenError{Path: path, Mode: fault.ModeRead, Err: err}
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, &fault.IOOpenError{Path: path, Mode: fault.ModeRead, Err: errors.New("not a regular file")}
	}

	return &Reader{
		file:     f,
		path:     path,
		length:   info.Size(),
		capacity: capacity,
		window:   make([]byte, capacity),
	}, nil
}

// Length returns the size of the file in bytes.
func (r *Reader) Length() int64 {
	return r.length
}

// Capacity returns the window size in bytes.
func (r *Reader) Capacity() int {
	return r.capacity
}

// ByteAt returns the byte at offset, reloading the window if offset is not
// cached. Valid offsets are [0, Length()].
//
// offset == Length() is a positioning probe: it moves the window to the end
// of the file and returns an unspecified byte that must never be written to
// output. CopyRange relies on it when a copy runs through the last byte.
func (r *Reader) ByteAt(offset int64) (byte, error) {
	if offset < 0 || offset > r.length {
		return 0, fmt.Errorf("offset %d out of range [0, %d] in %s", offset, r.length, r.path)
	}
	if offset < r.windowStart || offset >= r.windowStart+int64(r.loaded) {
		if err := r.reload(offset); err != nil {
			return 0, err
		}
	}
	if offset == r.length {
		return 0, nil
	}
	return r.window[offset-r.windowStart], nil
}

// CopyRange writes length bytes starting at start into sink. length must be
// strictly smaller than the window capacity.
func (r *Reader) CopyRange(start, length int64, sink io.Writer) error {
	if length >= int64(r.capacity) {
		return &fault.SizeLimitError{Length: length, Capacity: r.capacity}
	}
	if length < 0 || start < 0 || start+length > r.length {
		return fmt.Errorf("range [%d, %d) out of bounds for %s of length %d", start, start+length, r.path, r.length)
	}

	// End first, then start. If the start probe reloads, the new window is
	// anchored at start and, since length < capacity, also covers the end.
	if _, err := r.ByteAt(start + length); err != nil {
		return err
	}
	if _, err := r.ByteAt(start); err != nil {
		return err
	}

	idx := start - r.windowStart
	if _, err := sink.Write(r.window[idx : idx+length]); err != nil {
		return fmt.Errorf("failed to write %d bytes from offset %d: %w", length, start, err)
	}
	return nil
}

// reload anchors the window at offset and fills it with min(capacity, length-offset) bytes.
func (r *Reader) reload(offset int64) error {
	if r.closed {
		return fmt.Errorf("reader for %s is closed", r.path)
	}

	toRead := min(int64(r.capacity), r.length-offset)
	n, err := r.file.ReadAt(r.window[:toRead], offset)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == toRead) {
		r.loaded = 0
		return fmt.Errorf("failed to read %d bytes at offset %d of %s: %w", toRead, offset, r.path, err)
	}

	r.windowStart = offset
	r.loaded = n
	r.reloads++
	r.bytesLoaded += int64(n)
	return nil
}

// Reloads returns how many times the window has been reloaded.
func (r *Reader) Reloads() int64 {
	return r.reloads
}

// BytesLoaded returns the total bytes read from disk into the window.
func (r *Reader) BytesLoaded() int64 {
	return r.bytesLoaded
}

// Close releases the file handle. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.window = nil
	r.loaded = 0
	return r.file.Close()
}
