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
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/bigtranspose/internal/fault"
	"github.com/cardinalhq/bigtranspose/internal/triplet"
	"github.com/cardinalhq/bigtranspose/internal/windowreader"
)

// scanState is the per-invocation state of a split scan.
type scanState struct {
	fieldIndex int64
	lineIndex  int64
	// refFields is the delimiter count of line 0, valid once haveRef is set.
	refFields  int64
	haveRef    bool
	valueStart int64
}

type splitter struct {
	in       *windowreader.Reader
	out      *outputFile
	delim    byte
	state    scanState
	header   []byte
	triplets int64
	lengths  *valueSketch
	progress *progressReporter
}

// Split reads the delimited file at inputPath and writes one triplet line per
// cell to outputPath, in input order. The input must be rectangular, use '\n'
// line endings and have no trailing delimiters. On a format or size error the
// output file is left empty.
//
// ctx is only used to attribute metrics; the scan is not cancellable.
func Split(ctx context.Context, inputPath, outputPath string, opts Options) (SplitStats, error) {
	var stats SplitStats
	if err := opts.validate(); err != nil {
		return stats, err
	}

	lengths, err := newValueSketch()
	if err != nil {
		return stats, fmt.Errorf("failed to create value length sketch: %w", err)
	}

	in, err := windowreader.Open(inputPath, opts.WindowSize)
	if err != nil {
		return stats, err
	}
	out, err := createOutput(outputPath, inputPath)
	if err != nil {
		_ = in.Close()
		return stats, err
	}

	s := &splitter{
		in:       in,
		out:      out,
		delim:    opts.Delimiter,
		header:   make([]byte, 0, 48),
		lengths:  lengths,
		progress: newProgressReporter(opts.Progress, in.Length()),
	}

	err = s.run()
	if err == nil {
		err = out.flush()
	}
	if err != nil && (errors.Is(err, fault.ErrFormat) || errors.Is(err, fault.ErrSizeLimit)) {
		recordViolation(ctx, "split", err)
		if derr := out.discard(); derr != nil {
			slog.Error("Failed to discard partial output", slog.String("path", outputPath), slog.Any("error", derr))
		}
	}

	stats = s.stats()
	s.recordMetrics(ctx)

	var closeErrs *multierror.Error
	if cerr := in.Close(); cerr != nil {
		closeErrs = multierror.Append(closeErrs, fmt.Errorf("failed to close %s: %w", inputPath, cerr))
	}
	if cerr := out.Close(); cerr != nil {
		closeErrs = multierror.Append(closeErrs, fmt.Errorf("failed to close %s: %w", outputPath, cerr))
	}
	if err != nil {
		if closeErrs != nil {
			slog.Warn("Failed to close files after split error", slog.Any("error", closeErrs))
		}
		return stats, err
	}
	return stats, closeErrs.ErrorOrNil()
}

func (s *splitter) run() error {
	length := s.in.Length()
	for pos := int64(0); pos < length; pos++ {
		c, err := s.in.ByteAt(pos)
		if err != nil {
			return err
		}

		isDelim := c == s.delim
		isNewline := c == '\n'
		isLast := pos == length-1
		if !isDelim && !isNewline && !isLast {
			continue
		}

		if isNewline {
			if err := s.checkLineEnd(pos); err != nil {
				return err
			}
		}

		end := pos
		if isLast && !isDelim && !isNewline {
			// The final value has no terminator; include its last byte.
			end = pos + 1
		}
		if err := s.emit(end); err != nil {
			return err
		}
		s.state.valueStart = pos + 1

		switch {
		case isDelim:
			s.state.fieldIndex++
		case isNewline:
			if err := s.endLine(pos); err != nil {
				return err
			}
		}
	}
	return s.finishUnterminated(length)
}

// checkLineEnd validates the byte in front of the newline at pos.
func (s *splitter) checkLineEnd(pos int64) error {
	if pos == 0 {
		return nil
	}
	prev, err := s.in.ByteAt(pos - 1)
	if err != nil {
		return err
	}
	switch prev {
	case s.delim:
		return &fault.FormatViolation{Reason: fault.ReasonTrailingDelimiter, Line: s.state.lineIndex, Offset: pos}
	case '\r':
		return &fault.FormatViolation{Reason: fault.ReasonCRLineEnding, Line: s.state.lineIndex, Offset: pos}
	}
	return nil
}

// emit writes the triplet for the value spanning [valueStart, end).
func (s *splitter) emit(end int64) error {
	start := s.state.valueStart
	s.header = triplet.AppendHeader(s.header[:0], s.state.fieldIndex, s.state.lineIndex)
	if _, err := s.out.Write(s.header); err != nil {
		return fmt.Errorf("failed to write triplet header: %w", err)
	}
	if err := s.in.CopyRange(start, end-start, s.out); err != nil {
		return fmt.Errorf("value at line %d field %d: %w", s.state.lineIndex, s.state.fieldIndex, err)
	}
	if err := s.out.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write triplet terminator: %w", err)
	}
	s.triplets++
	s.lengths.add(end - start)
	return nil
}

// endLine closes the line terminated by the newline at pos.
func (s *splitter) endLine(pos int64) error {
	if err := s.checkFieldCount(pos); err != nil {
		return err
	}
	s.state.lineIndex++
	s.state.fieldIndex = 0
	s.progress.update(pos)
	return nil
}

func (s *splitter) checkFieldCount(offset int64) error {
	if !s.state.haveRef {
		s.state.refFields = s.state.fieldIndex
		s.state.haveRef = true
		slog.Info("Detected field count", slog.Int64("fields", s.state.refFields+1))
		return nil
	}
	if s.state.fieldIndex != s.state.refFields {
		return &fault.FormatViolation{
			Reason: fault.ReasonColumnCount,
			Line:   s.state.lineIndex,
			Offset: offset,
			Detail: fmt.Sprintf("got %d fields, want %d", s.state.fieldIndex+1, s.state.refFields+1),
		}
	}
	return nil
}

// finishUnterminated validates a last line that has no trailing newline. Its
// values have already been emitted by the end-of-file sentinel.
func (s *splitter) finishUnterminated(length int64) error {
	if length == 0 {
		return nil
	}
	last, err := s.in.ByteAt(length - 1)
	if err != nil {
		return err
	}
	switch last {
	case '\n':
		return nil
	case s.delim:
		return &fault.FormatViolation{Reason: fault.ReasonTrailingDelimiter, Line: s.state.lineIndex, Offset: length - 1}
	}
	if err := s.checkFieldCount(length - 1); err != nil {
		return err
	}
	s.state.lineIndex++
	s.state.fieldIndex = 0
	return nil
}

func (s *splitter) stats() SplitStats {
	stats := SplitStats{
		InputBytes:    s.in.Length(),
		Lines:         s.state.lineIndex,
		Triplets:      s.triplets,
		OutputBytes:   s.out.written,
		OutputDigest:  s.out.sum(),
		WindowReloads: s.in.Reloads(),
		WindowBytes:   s.in.BytesLoaded(),
		ValueLengths:  s.lengths.summary(),
	}
	if s.state.haveRef {
		stats.FieldsPerLine = s.state.refFields + 1
	}
	return stats
}

func (s *splitter) recordMetrics(ctx context.Context) {
	attrs := otelmetric.WithAttributes(attribute.String("phase", "split"))
	tripletsWrittenCounter.Add(ctx, s.triplets, attrs)
	linesScannedCounter.Add(ctx, s.state.lineIndex, attrs)
	windowReloadsCounter.Add(ctx, s.in.Reloads(), attrs)
	windowBytesCounter.Add(ctx, s.in.BytesLoaded(), attrs)
}
