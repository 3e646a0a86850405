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
)

// progressReporter prints one "NN%" line each time the scan crosses another
// percent of the input.
type progressReporter struct {
	w     io.Writer
	total int64
	step  int64
	next  int64
}

func newProgressReporter(w io.Writer, total int64) *progressReporter {
	return &progressReporter{
		w:     w,
		total: total,
		step:  max(total/100, 1),
	}
}

// update is called at line boundaries with the current scan offset.
func (p *progressReporter) update(offset int64) {
	if p == nil || p.w == nil || p.total == 0 || offset <= p.next {
		return
	}
	for p.next+p.step < offset {
		p.next += p.step
	}
	_, _ = fmt.Fprintf(p.w, "%3.0f%%\n", 100*float64(p.next)/float64(p.total))
	p.next += p.step
}
