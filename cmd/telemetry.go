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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cardinalhq/oteltools/pkg/telemetry"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/host"
	iruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/bigtranspose/config"
	"github.com/cardinalhq/bigtranspose/internal/helpers"
	"github.com/cardinalhq/bigtranspose/internal/idgen"
)

const runIDEnv = "BIGTRANSPOSE_RUN_ID"

var (
	meter = otel.Meter("github.com/cardinalhq/bigtranspose")

	runDuration metric.Float64Histogram
	runFailures metric.Int64Counter
)

func init() {
	m, err := meter.Float64Histogram(
		"bigtranspose.run.duration",
		metric.WithUnit("s"),
		metric.WithDescription("The duration in seconds of a split or reassemble run"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create run.duration histogram: %w", err))
	}
	runDuration = m

	c, err := meter.Int64Counter(
		"bigtranspose.run.failures",
		metric.WithDescription("Number of split or reassemble runs that ended in an error"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create run.failures counter: %w", err))
	}
	runFailures = c
}

// setupTelemetry installs the default slog logger for a run and, when OTLP
// export is enabled, the OpenTelemetry SDK. The returned function flushes
// telemetry and must be called before the process exits.
func setupTelemetry(serviceType string) (context.Context, func() error, error) {
	ctx := context.Background()
	instanceID := idgen.InstanceID()
	runID, err := resolveRunID()
	if err != nil {
		return ctx, nil, err
	}

	f := func() error {
		return nil
	}

	var opts *slog.HandlerOptions
	if helpers.AnyBoolEnv("DEBUG", "BIGTRANSPOSE_DEBUG") {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	logAttrs := []any{
		slog.String("service", serviceType),
		slog.Int64("instanceID", instanceID),
		slog.String("runID", runID),
	}

	if os.Getenv("OTEL_SERVICE_NAME") != "" && helpers.GetBoolEnv("ENABLE_OTLP_TELEMETRY", false) {
		slog.SetDefault(slog.New(slogmulti.Fanout(
			slog.NewTextHandler(os.Stdout, opts),
			otelslog.NewHandler(config.ServiceName),
		)).With(logAttrs...))
		slog.Info("OpenTelemetry exporting enabled")

		otelShutdown, err := telemetry.SetupOTelSDK(ctx)
		if err != nil {
			return ctx, nil, fmt.Errorf("failed to setup OpenTelemetry SDK: %w", err)
		}

		if err := iruntime.Start(iruntime.WithMinimumReadMemStatsInterval(time.Second * 10)); err != nil {
			slog.Warn("failed to start runtime metrics", "error", err.Error())
		}

		if err := host.Start(); err != nil {
			slog.Warn("failed to start host metrics", "error", err.Error())
		}

		f = func() error {
			slog.Debug("Shutting down OpenTelemetry SDK")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return otelShutdown(ctx)
		}
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)).With(logAttrs...))
	}

	return ctx, f, nil
}

// resolveRunID returns the run id from BIGTRANSPOSE_RUN_ID, so the split and
// reassemble halves of one transpose can share it, or a fresh one.
func resolveRunID() (string, error) {
	s := os.Getenv(runIDEnv)
	if s == "" {
		return idgen.NewRunID(), nil
	}
	id, err := idgen.ParseRunID(s)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", runIDEnv, err)
	}
	return idgen.UUIDToBase36(id), nil
}

// recordRun reports the outcome of a run to the run metrics.
func recordRun(ctx context.Context, serviceType string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("service", serviceType),
		attribute.Bool("success", err == nil),
	)
	runDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		runFailures.Add(ctx, 1, attrs)
	}
}
