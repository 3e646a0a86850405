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

package transpose

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/cardinalhq/bigtranspose/internal/fault"
)

const outputBufferSize = 256 * 1024

// outputFile is a buffered, digesting writer over a truncated output file.
type outputFile struct {
	path    string
	file    *os.File
	buf     *bufio.Writer
	digest  *xxhash.Digest
	written int64
}

var _ io.Writer = (*outputFile)(nil)

// createOutput truncates or creates path for writing. It refuses a path that
// resolves to inputPath, since truncating it would destroy the input.
func createOutput(path, inputPath string) (*outputFile, error) {
	if outInfo, err := os.Stat(path); err == nil {
		if inInfo, err := os.Stat(inputPath); err == nil && os.SameFile(inInfo, outInfo) {
			return nil, &fault.IOOpenError{Path: path, Mode: fault.ModeWrite, Err: fault.ErrSameFile}
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &fault.IOOpenError{Path: path, Mode: fault.ModeWrite, Err: err}
	}
	return &outputFile{
		path:   path,
		file:   f,
		buf:    bufio.NewWriterSize(f, outputBufferSize),
		digest: xxhash.New(),
	}, nil
}

func (o *outputFile) Write(p []byte) (int, error) {
	n, err := o.buf.Write(p)
	_, _ = o.digest.Write(p[:n])
	o.written += int64(n)
	return n, err
}

func (o *outputFile) WriteByte(c byte) error {
	if err := o.buf.WriteByte(c); err != nil {
		return err
	}
	_, _ = o.digest.Write([]byte{c})
	o.written++
	return nil
}

// flush pushes buffered bytes to the file.
func (o *outputFile) flush() error {
	if err := o.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", o.path, err)
	}
	return nil
}

// discard drops buffered bytes and truncates the file to empty. A partially
// written output is never left behind after a failed run.
func (o *outputFile) discard() error {
	o.buf.Reset(o.file)
	o.digest.Reset()
	o.written = 0
	if err := o.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", o.path, err)
	}
	if _, err := o.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w", o.path, err)
	}
	return nil
}

func (o *outputFile) sum() uint64 {
	return o.digest.Sum64()
}

func (o *outputFile) Close() error {
	return o.file.Close()
}
