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
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/bigtranspose/internal/triplet"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func testOptions(windowSize int) Options {
	opts := DefaultOptions()
	opts.WindowSize = windowSize
	return opts
}

// sortTriplets stands in for `sort -n -k1,1 -k2,2`.
func sortTriplets(t *testing.T, content string) string {
	t.Helper()
	r := triplet.NewReader(strings.NewReader(content))
	var recs []triplet.Record
	for {
		rec, err := r.Next()
		if err != nil {
			break
		}
		rec.Value = bytes.Clone(rec.Value)
		recs = append(recs, rec)
	}
	slices.SortStableFunc(recs, triplet.Compare)

	var out []byte
	for _, rec := range recs {
		out = triplet.AppendRecord(out, rec)
	}
	return string(out)
}

// transposeTable is the in-memory reference: rows become columns.
func transposeTable(table [][]string, delim string) string {
	if len(table) == 0 {
		return ""
	}
	var b strings.Builder
	for f := range table[0] {
		for l := range table {
			if l > 0 {
				b.WriteString(delim)
			}
			b.WriteString(table[l][f])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderTable(table [][]string, delim string, trailingNewline bool) string {
	lines := make([]string, len(table))
	for i, row := range table {
		lines[i] = strings.Join(row, delim)
	}
	s := strings.Join(lines, "\n")
	if trailingNewline {
		s += "\n"
	}
	return s
}
