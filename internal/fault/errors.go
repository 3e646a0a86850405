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

// Package fault holds the error types shared by the split and reassemble
// phases. Every failure is fatal to the run; the types exist so callers and
// tests can tell the classes apart with errors.Is and errors.As.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrIOOpen matches any IOOpenError.
	ErrIOOpen = errors.New("cannot open file")
	// ErrFormat matches any FormatViolation.
	ErrFormat = errors.New("format violation")
	// ErrSizeLimit matches any SizeLimitError.
	ErrSizeLimit = errors.New("size limit exceeded")
	// ErrSameFile is wrapped by an IOOpenError when the output path names the
	// input file.
	ErrSameFile = errors.New("output is the same file as the input")
)

// Open modes reported by IOOpenError.
const (
	ModeRead  = "read"
	ModeWrite = "write"
)

// IOOpenError is returned when a file cannot be opened for reading or writing.
type IOOpenError struct {
	Path string
	Mode string
	Err  error
}

func (e *IOOpenError) Error() string {
	return fmt.Sprintf("cannot open %s for %s: %v", e.Path, e.Mode, e.Err)
}

func (e *IOOpenError) Unwrap() error { return e.Err }

func (e *IOOpenError) Is(target error) bool { return target == ErrIOOpen }

// Reasons carried by FormatViolation.
const (
	ReasonTrailingDelimiter = "line ends in delimiter"
	ReasonCRLineEnding      = "CR line endings unsupported"
	ReasonColumnCount       = "row has wrong column count"
	ReasonMalformedTriplet  = "malformed triplet line"
	ReasonUnsorted          = "triplet stream not sorted"
)

// FormatViolation reports input that breaks the delimited or triplet format.
// Line is the 0-based line of the offending input; Offset is the byte offset
// of the trigger when known, or -1.
type FormatViolation struct {
	Reason string
	Line   int64
	Offset int64
	Detail string
}

func (e *FormatViolation) Error() string {
	msg := fmt.Sprintf("%s (line %d", e.Reason, e.Line)
	if e.Offset >= 0 {
		msg += fmt.Sprintf(", offset %d", e.Offset)
	}
	msg += ")"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *FormatViolation) Is(target error) bool { return target == ErrFormat }

// SizeLimitError is returned when a bulk copy would not fit in one window.
type SizeLimitError struct {
	Length   int64
	Capacity int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("not designed to copy %d bytes at a time, window capacity is %d bytes", e.Length, e.Capacity)
}

func (e *SizeLimitError) Is(target error) bool { return target == ErrSizeLimit }
