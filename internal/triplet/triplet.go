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

// Package triplet implements the intermediate line format exchanged between
// the split and reassemble phases:
//
//	<FieldIndex> <LineIndex> <value>\n
//
// Both indexes are non-negative decimal integers. The value is the rest of the
// line, unescaped; it may contain any byte except '\n'.
package triplet

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/cardinalhq/bigtranspose/internal/fault"
)

// Record is one decoded triplet line. Value aliases the Reader's buffer and is
// only valid until the next call to Next.
type Record struct {
	FieldIndex int64
	LineIndex  int64
	Value      []byte
}

// Compare orders records by FieldIndex, then LineIndex.
func Compare(a, b Record) int {
	switch {
	case a.FieldIndex < b.FieldIndex:
		return -1
	case a.FieldIndex > b.FieldIndex:
		return 1
	case a.LineIndex < b.LineIndex:
		return -1
	case a.LineIndex > b.LineIndex:
		return 1
	}
	return 0
}

// AppendHeader appends "<fieldIndex> <lineIndex> " to dst.
func AppendHeader(dst []byte, fieldIndex, lineIndex int64) []byte {
	dst = strconv.AppendInt(dst, fieldIndex, 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, lineIndex, 10)
	return append(dst, ' ')
}

// AppendRecord appends a complete triplet line to dst.
func AppendRecord(dst []byte, rec Record) []byte {
	dst = AppendHeader(dst, rec.FieldIndex, rec.LineIndex)
	dst = append(dst, rec.Value...)
	return append(dst, '\n')
}

// Parse decodes a single line without its trailing newline. lineNo is only
// used for error reporting.
func Parse(line []byte, lineNo int64) (Record, error) {
	fieldIndex, rest, ok := cutIndex(line)
	if !ok {
		return Record{}, malformed(lineNo, "missing field index")
	}
	lineIndex, value, ok := cutIndex(rest)
	if !ok {
		return Record{}, malformed(lineNo, "missing line index")
	}
	return Record{FieldIndex: fieldIndex, LineIndex: lineIndex, Value: value}, nil
}

// cutIndex parses a non-negative integer terminated by a single space.
func cutIndex(b []byte) (int64, []byte, bool) {
	num, rest, found := bytes.Cut(b, []byte{' '})
	if !found || len(num) == 0 {
		return 0, nil, false
	}
	for _, c := range num {
		if c < '0' || c > '9' {
			return 0, nil, false
		}
	}
	n, err := strconv.ParseInt(string(num), 10, 64)
	if err != nil {
		return 0, nil, false
	}
	return n, rest, true
}

func malformed(lineNo int64, detail string) error {
	return &fault.FormatViolation{Reason: fault.ReasonMalformedTriplet, Line: lineNo, Offset: -1, Detail: detail}
}

// Reader decodes triplet lines from a stream.
type Reader struct {
	br     *bufio.Reader
	line   []byte
	lineNo int64
}

// NewReader wraps r in a buffered triplet decoder.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next record, or io.EOF once the stream is exhausted. A last
// line without a trailing newline is still returned.
func (r *Reader) Next() (Record, error) {
	r.line = r.line[:0]
	for {
		chunk, err := r.br.ReadSlice('\n')
		r.line = append(r.line, chunk...)
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(r.line) == 0 {
				return Record{}, io.EOF
			}
			break
		}
		return Record{}, fmt.Errorf("failed to read triplet line %d: %w", r.lineNo, err)
	}

	lineNo := r.lineNo
	r.lineNo++
	return Parse(bytes.TrimSuffix(r.line, []byte{'\n'}), lineNo)
}

// Lines returns how many lines have been consumed.
func (r *Reader) Lines() int64 {
	return r.lineNo
}
