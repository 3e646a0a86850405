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
	"io"

	"github.com/cardinalhq/bigtranspose/internal/windowreader"
)

// DefaultDelimiter separates fields in the delimited format.
const DefaultDelimiter byte = '\t'

// Options controls both phases. The zero value is not valid; start from
// DefaultOptions.
type Options struct {
	// Delimiter is the single field separator byte.
	Delimiter byte
	// WindowSize is the Splitter's read window capacity in bytes. No single
	// value may be WindowSize bytes or longer.
	WindowSize int
	// Progress receives percent-complete lines while splitting. Nil disables it.
	Progress io.Writer
}

func DefaultOptions() Options {
	return Options{
		Delimiter:  DefaultDelimiter,
		WindowSize: windowreader.DefaultCapacity,
	}
}

func (o Options) validate() error {
	if o.Delimiter == '\n' || o.Delimiter == '\r' {
		return fmt.Errorf("delimiter %q is not allowed", o.Delimiter)
	}
	if o.WindowSize < 2 {
		return fmt.Errorf("window size must be at least 2 bytes, got %d", o.WindowSize)
	}
	return nil
}
