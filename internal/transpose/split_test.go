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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/bigtranspose/internal/fault"
	"github.com/cardinalhq/bigtranspose/internal/triplet"
)

func TestSplit_Example(t *testing.T) {
	in := writeInput(t, "in.tsv", "a\tb\nc\td\n")
	out := filepath.Join(t.TempDir(), "out.triplets")

	stats, err := Split(context.Background(), in, out, DefaultOptions())
	require.NoError(t, err)

	got := readFile(t, out)
	assert.Equal(t, "0 0 a\n1 0 b\n0 1 c\n1 1 d\n", got)
	assert.Equal(t, int64(2), stats.Lines)
	assert.Equal(t, int64(2), stats.FieldsPerLine)
	assert.Equal(t, int64(4), stats.Triplets)
	assert.Equal(t, int64(len(got)), stats.OutputBytes)
	assert.Equal(t, xxhash.Sum64String(got), stats.OutputDigest)
	assert.Equal(t, float64(1), stats.ValueLengths.Max)
}

func TestSplit_Outputs(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		windowSize int
		delimiter  byte
		want       string
	}{
		{
			name:       "no trailing newline",
			input:      "a\tb\nc\td",
			windowSize: 1024,
			want:       "0 0 a\n1 0 b\n0 1 c\n1 1 d\n",
		},
		{
			name:       "single column",
			input:      "x\ny\nz\n",
			windowSize: 1024,
			want:       "0 0 x\n0 1 y\n0 2 z\n",
		},
		{
			name:       "single line",
			input:      "p\tq\tr",
			windowSize: 1024,
			want:       "0 0 p\n1 0 q\n2 0 r\n",
		},
		{
			name:       "empty fields with trailing delimiter",
			input:      "\tb\n\t\n",
			windowSize: 1024,
			want:       "",
		},
		{
			name:       "empty leading field",
			input:      "\tb\n\td\n",
			windowSize: 1024,
			want:       "0 0 \n1 0 b\n0 1 \n1 1 d\n",
		},
		{
			name:       "values with spaces",
			input:      "hello world\tx y\nfoo\tbar baz\n",
			windowSize: 1024,
			want:       "0 0 hello world\n1 0 x y\n0 1 foo\n1 1 bar baz\n",
		},
		{
			name:       "comma delimiter keeps tabs in values",
			input:      "a\t1,b\nc,d\t2\n",
			windowSize: 1024,
			delimiter:  ',',
			want:       "0 0 a\t1\n1 0 b\n0 1 c\n1 1 d\t2\n",
		},
		{
			name:       "tiny window",
			input:      "abc\tde\nfgh\tij\n",
			windowSize: 4,
			want:       "0 0 abc\n1 0 de\n0 1 fgh\n1 1 ij\n",
		},
		{
			name:       "tiny window unterminated",
			input:      "abc\tde\nfgh\tijk",
			windowSize: 4,
			want:       "0 0 abc\n1 0 de\n0 1 fgh\n1 1 ijk\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := writeInput(t, "in.txt", tt.input)
			out := filepath.Join(t.TempDir(), "out.triplets")
			opts := testOptions(tt.windowSize)
			if tt.delimiter != 0 {
				opts.Delimiter = tt.delimiter
			}

			_, err := Split(context.Background(), in, out, opts)
			if tt.want == "" {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, readFile(t, out))
		})
	}
}

func TestSplit_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
		line   int64
	}{
		{name: "trailing delimiter", input: "a\tb\nc\td\t\n", reason: fault.ReasonTrailingDelimiter, line: 1},
		{name: "trailing delimiter first line", input: "a\t\nc\td\n", reason: fault.ReasonTrailingDelimiter, line: 0},
		{name: "trailing delimiter at eof", input: "a\tb\nc\t", reason: fault.ReasonTrailingDelimiter, line: 1},
		{name: "crlf", input: "a\tb\r\nc\td\r\n", reason: fault.ReasonCRLineEnding, line: 0},
		{name: "too few fields", input: "a\tb\tc\nd\te\n", reason: fault.ReasonColumnCount, line: 1},
		{name: "too many fields", input: "a\tb\nc\td\te\n", reason: fault.ReasonColumnCount, line: 1},
		{name: "ragged later line", input: "a\tb\nc\td\ne\tf\ng\n", reason: fault.ReasonColumnCount, line: 3},
		{name: "ragged unterminated last line", input: "a\tb\nc\td\ne", reason: fault.ReasonColumnCount, line: 2},
		{name: "ragged single column", input: "a\nb\nc\td\n", reason: fault.ReasonColumnCount, line: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := writeInput(t, "in.tsv", tt.input)
			out := filepath.Join(t.TempDir(), "out.triplets")

			_, err := Split(context.Background(), in, out, testOptions(4))
			require.Error(t, err)
			assert.ErrorIs(t, err, fault.ErrFormat)

			var fv *fault.FormatViolation
			require.True(t, errors.As(err, &fv))
			assert.Equal(t, tt.reason, fv.Reason)
			assert.Equal(t, tt.line, fv.Line)

			assert.Empty(t, readFile(t, out), "partial output must be discarded")
		})
	}
}

func TestSplit_DiscardsOutputAfterFlushes(t *testing.T) {
	// Enough lines to push several buffer flushes to disk before the bad row.
	var b strings.Builder
	for i := range 50000 {
		fmt.Fprintf(&b, "%d\tvalue-%d\n", i, i)
	}
	b.WriteString("bad\trow\textra\n")

	in := writeInput(t, "in.tsv", b.String())
	out := filepath.Join(t.TempDir(), "out.triplets")

	_, err := Split(context.Background(), in, out, DefaultOptions())
	require.ErrorIs(t, err, fault.ErrFormat)
	assert.Empty(t, readFile(t, out))
}

func TestSplit_ValueTooLarge(t *testing.T) {
	in := writeInput(t, "in.tsv", "a\t0123456789\nb\tc\n")
	out := filepath.Join(t.TempDir(), "out.triplets")

	_, err := Split(context.Background(), in, out, testOptions(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrSizeLimit)
	assert.Empty(t, readFile(t, out))

	// One byte more window makes the same input fit.
	stats, err := Split(context.Background(), in, out, testOptions(11))
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Triplets)
	assert.Equal(t, float64(10), stats.ValueLengths.Max)
}

func TestSplit_TripletCount(t *testing.T) {
	for _, shape := range []struct{ lines, fields int }{{1, 1}, {1, 7}, {9, 1}, {13, 5}, {40, 17}} {
		t.Run(fmt.Sprintf("%dx%d", shape.lines, shape.fields), func(t *testing.T) {
			table := make([][]string, shape.lines)
			for l := range table {
				table[l] = make([]string, shape.fields)
				for f := range table[l] {
					table[l][f] = fmt.Sprintf("v%d_%d", l, f)
				}
			}
			in := writeInput(t, "in.tsv", renderTable(table, "\t", true))
			out := filepath.Join(t.TempDir(), "out.triplets")

			stats, err := Split(context.Background(), in, out, testOptions(16))
			require.NoError(t, err)
			assert.Equal(t, int64(shape.lines*shape.fields), stats.Triplets)
			assert.Equal(t, int64(shape.lines), stats.Lines)
			assert.Equal(t, int64(shape.fields), stats.FieldsPerLine)

			r := triplet.NewReader(strings.NewReader(readFile(t, out)))
			var n int
			for {
				rec, err := r.Next()
				if err != nil {
					break
				}
				n++
				assert.GreaterOrEqual(t, rec.FieldIndex, int64(0))
				assert.Less(t, rec.FieldIndex, int64(shape.fields))
				assert.GreaterOrEqual(t, rec.LineIndex, int64(0))
				assert.Less(t, rec.LineIndex, int64(shape.lines))
				assert.Equal(t, table[rec.LineIndex][rec.FieldIndex], string(rec.Value))
			}
			assert.Equal(t, shape.lines*shape.fields, n)
		})
	}
}

func TestSplit_Progress(t *testing.T) {
	var b strings.Builder
	for i := range 500 {
		fmt.Fprintf(&b, "%04d\tx\n", i)
	}
	in := writeInput(t, "in.tsv", b.String())
	out := filepath.Join(t.TempDir(), "out.triplets")

	var progress bytes.Buffer
	opts := DefaultOptions()
	opts.Progress = &progress
	_, err := Split(context.Background(), in, out, opts)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(progress.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "  0%", lines[0])
	assert.LessOrEqual(t, len(lines), 101)
	for _, l := range lines {
		assert.True(t, strings.HasSuffix(l, "%"), "progress line %q", l)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	in := writeInput(t, "in.tsv", "")
	out := filepath.Join(t.TempDir(), "out.triplets")

	stats, err := Split(context.Background(), in, out, DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, stats.Triplets)
	assert.Empty(t, readFile(t, out))
}

func TestSplit_OpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Split(context.Background(), filepath.Join(dir, "missing.tsv"), filepath.Join(dir, "out"), DefaultOptions())
	require.ErrorIs(t, err, fault.ErrIOOpen)
	var openErr *fault.IOOpenError
	require.True(t, errors.As(err, &openErr))
	assert.Equal(t, fault.ModeRead, openErr.Mode)

	in := writeInput(t, "in.tsv", "a\tb\n")
	_, err = Split(context.Background(), in, filepath.Join(dir, "no", "such", "dir", "out"), DefaultOptions())
	require.ErrorIs(t, err, fault.ErrIOOpen)
	require.True(t, errors.As(err, &openErr))
	assert.Equal(t, fault.ModeWrite, openErr.Mode)
}

func TestSplit_InvalidOptions(t *testing.T) {
	in := writeInput(t, "in.tsv", "a\n")
	out := filepath.Join(t.TempDir(), "out")

	opts := DefaultOptions()
	opts.Delimiter = '\n'
	_, err := Split(context.Background(), in, out, opts)
	assert.Error(t, err)

	_, err = Split(context.Background(), in, out, testOptions(1))
	assert.Error(t, err)
}

func TestSplit_RefusesToOverwriteInput(t *testing.T) {
	const content = "a\tb\nc\td\n"
	in := writeInput(t, "in.tsv", content)
	link := filepath.Join(t.TempDir(), "link.tsv")
	require.NoError(t, os.Symlink(in, link))

	for _, out := range []string{in, link} {
		_, err := Split(context.Background(), in, out, DefaultOptions())
		require.ErrorIs(t, err, fault.ErrIOOpen)
		assert.ErrorIs(t, err, fault.ErrSameFile)
		var openErr *fault.IOOpenError
		require.True(t, errors.As(err, &openErr))
		assert.Equal(t, fault.ModeWrite, openErr.Mode)
		assert.Equal(t, content, readFile(t, in))
	}
}
