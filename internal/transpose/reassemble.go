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
	"io"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/bigtranspose/internal/fault"
	"github.com/cardinalhq/bigtranspose/internal/triplet"
)

// Reassemble reads a triplet stream sorted by (FieldIndex, LineIndex) from
// inputPath and writes one delimited row per FieldIndex to outputPath. Values
// in a row are ordered by LineIndex, so the output is the transpose of the
// table the triplets were split from. LineIndex values are assumed dense from
// 0 and are not checked; ordering is.
func Reassemble(ctx context.Context, inputPath, outputPath string, opts Options) (ReassembleStats, error) {
	var stats ReassembleStats
	if err := opts.validate(); err != nil {
		return stats, err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return stats, &fault.IOOpenError{Path: inputPath, Mode: fault.ModeRead, Err: err}
	}
	out, err := createOutput(outputPath, inputPath)
	if err != nil {
		_ = in.Close()
		return stats, err
	}

	stats, err = reassemble(triplet.NewReader(in), out, opts.Delimiter)
	if err == nil {
		err = out.flush()
	}
	if err != nil && errors.Is(err, fault.ErrFormat) {
		recordViolation(ctx, "reassemble", err)
		if derr := out.discard(); derr != nil {
			slog.Error("Failed to discard partial output", slog.String("path", outputPath), slog.Any("error", derr))
		}
	}
	stats.OutputBytes = out.written
	stats.OutputDigest = out.sum()
	rowsWrittenCounter.Add(ctx, stats.Rows, otelmetric.WithAttributes(attribute.String("phase", "reassemble")))

	var closeErrs *multierror.Error
	if cerr := in.Close(); cerr != nil {
		closeErrs = multierror.Append(closeErrs, fmt.Errorf("failed to close %s: %w", inputPath, cerr))
	}
	if cerr := out.Close(); cerr != nil {
		closeErrs = multierror.Append(closeErrs, fmt.Errorf("failed to close %s: %w", outputPath, cerr))
	}
	if err != nil {
		if closeErrs != nil {
			slog.Warn("Failed to close files after reassemble error", slog.Any("error", closeErrs))
		}
		return stats, err
	}
	return stats, closeErrs.ErrorOrNil()
}

// pendingValue is the previous record, held until the next record shows
// whether it ends its row.
type pendingValue struct {
	fieldIndex int64
	lineIndex  int64
	value      []byte
}

func reassemble(r *triplet.Reader, out *outputFile, delim byte) (ReassembleStats, error) {
	var (
		stats ReassembleStats
		prev  pendingValue
		have  bool
	)

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Records++

		if have {
			if triplet.Compare(rec, triplet.Record{FieldIndex: prev.fieldIndex, LineIndex: prev.lineIndex}) <= 0 {
				return stats, &fault.FormatViolation{
					Reason: fault.ReasonUnsorted,
					Line:   r.Lines() - 1,
					Offset: -1,
					Detail: fmt.Sprintf("(%d, %d) follows (%d, %d)", rec.FieldIndex, rec.LineIndex, prev.fieldIndex, prev.lineIndex),
				}
			}
			if err := writeValue(out, delim, prev); err != nil {
				return stats, err
			}
			if rec.FieldIndex != prev.fieldIndex {
				if err := out.WriteByte('\n'); err != nil {
					return stats, fmt.Errorf("failed to end row: %w", err)
				}
				stats.Rows++
			}
		}

		prev.fieldIndex = rec.FieldIndex
		prev.lineIndex = rec.LineIndex
		prev.value = append(prev.value[:0], rec.Value...)
		have = true
	}

	if !have {
		return stats, nil
	}
	if err := writeValue(out, delim, prev); err != nil {
		return stats, err
	}
	if err := out.WriteByte('\n'); err != nil {
		return stats, fmt.Errorf("failed to end row: %w", err)
	}
	stats.Rows++
	return stats, nil
}

func writeValue(out *outputFile, delim byte, v pendingValue) error {
	if v.lineIndex != 0 {
		if err := out.WriteByte(delim); err != nil {
			return fmt.Errorf("failed to write delimiter: %w", err)
		}
	}
	if _, err := out.Write(v.value); err != nil {
		return fmt.Errorf("failed to write value: %w", err)
	}
	return nil
}
