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
	"fmt"
	"log/slog"

	"github.com/DataDog/sketches-go/ddsketch"
)

// SplitStats summarizes a completed Split.
type SplitStats struct {
	InputBytes    int64
	Lines         int64
	FieldsPerLine int64
	Triplets      int64
	OutputBytes   int64
	OutputDigest  uint64
	WindowReloads int64
	WindowBytes   int64
	ValueLengths  ValueLengthSummary
}

// ValueLengthSummary describes the distribution of value sizes seen by the
// splitter. Values approaching the window size are the ones that fail.
type ValueLengthSummary struct {
	P50 float64
	P99 float64
	Max float64
}

func (s SplitStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("inputBytes", s.InputBytes),
		slog.Int64("lines", s.Lines),
		slog.Int64("fieldsPerLine", s.FieldsPerLine),
		slog.Int64("triplets", s.Triplets),
		slog.Int64("outputBytes", s.OutputBytes),
		slog.String("outputDigest", formatDigest(s.OutputDigest)),
		slog.Int64("windowReloads", s.WindowReloads),
		slog.Int64("windowBytes", s.WindowBytes),
		slog.Float64("valueLenP50", s.ValueLengths.P50),
		slog.Float64("valueLenP99", s.ValueLengths.P99),
		slog.Float64("valueLenMax", s.ValueLengths.Max),
	)
}

// ReassembleStats summarizes a completed Reassemble.
type ReassembleStats struct {
	Records      int64
	Rows         int64
	OutputBytes  int64
	OutputDigest uint64
}

func (s ReassembleStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("records", s.Records),
		slog.Int64("rows", s.Rows),
		slog.Int64("outputBytes", s.OutputBytes),
		slog.String("outputDigest", formatDigest(s.OutputDigest)),
	)
}

func formatDigest(d uint64) string {
	return fmt.Sprintf("%016x", d)
}

// valueSketch tracks value lengths with 1% relative accuracy.
// The maximum is tracked exactly since it is the value that decides whether a
// smaller window would have failed.
type valueSketch struct {
	sketch *ddsketch.DDSketch
	max    int64
}

func newValueSketch() (*valueSketch, error) {
	s, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return nil, err
	}
	return &valueSketch{sketch: s}, nil
}

func (v *valueSketch) add(length int64) {
	// Lengths are never negative, which is the only case Add rejects.
	_ = v.sketch.Add(float64(length))
	v.max = max(v.max, length)
}

func (v *valueSketch) summary() ValueLengthSummary {
	if v.sketch.IsEmpty() {
		return ValueLengthSummary{}
	}
	out := ValueLengthSummary{Max: float64(v.max)}
	if q, err := v.sketch.GetValuesAtQuantiles([]float64{0.5, 0.99}); err == nil {
		out.P50, out.P99 = q[0], q[1]
	}
	return out
}
