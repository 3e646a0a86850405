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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/bigtranspose/internal/fault"
)

var (
	tripletsWrittenCounter  otelmetric.Int64Counter
	linesScannedCounter     otelmetric.Int64Counter
	rowsWrittenCounter      otelmetric.Int64Counter
	windowReloadsCounter    otelmetric.Int64Counter
	windowBytesCounter      otelmetric.Int64Counter
	formatViolationsCounter otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/bigtranspose/internal/transpose")

	var err error
	tripletsWrittenCounter, err = meter.Int64Counter(
		"bigtranspose.split.triplets",
		otelmetric.WithDescription("Number of triplet records written by the splitter"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create split.triplets counter: %w", err))
	}

	linesScannedCounter, err = meter.Int64Counter(
		"bigtranspose.split.lines",
		otelmetric.WithDescription("Number of delimited input lines scanned by the splitter"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create split.lines counter: %w", err))
	}

	rowsWrittenCounter, err = meter.Int64Counter(
		"bigtranspose.reassemble.rows",
		otelmetric.WithDescription("Number of delimited rows written by the reassembler"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create reassemble.rows counter: %w", err))
	}

	windowReloadsCounter, err = meter.Int64Counter(
		"bigtranspose.window.reloads",
		otelmetric.WithDescription("Number of times the read window was reloaded from disk"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create window.reloads counter: %w", err))
	}

	windowBytesCounter, err = meter.Int64Counter(
		"bigtranspose.window.bytes",
		otelmetric.WithUnit("By"),
		otelmetric.WithDescription("Bytes read from disk into the read window"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create window.bytes counter: %w", err))
	}

	formatViolationsCounter, err = meter.Int64Counter(
		"bigtranspose.format.violations",
		otelmetric.WithDescription("Number of runs aborted because of malformed input"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create format.violations counter: %w", err))
	}
}

func recordViolation(ctx context.Context, phase string, err error) {
	var fv *fault.FormatViolation
	if !errors.As(err, &fv) {
		return
	}
	formatViolationsCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("reason", fv.Reason),
	))
}
