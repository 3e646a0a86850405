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
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/bigtranspose/config"
	"github.com/cardinalhq/bigtranspose/internal/transpose"
)

// phaseFunc runs one phase of the transpose with fully resolved options.
type phaseFunc func(ctx context.Context, input, output string, opts transpose.Options) (slog.LogValuer, error)

// newPhaseCmd builds a command taking exactly <input> <output>. Any other
// argument count prints usage and succeeds.
func newPhaseCmd(use string, aliases []string, short, serviceType, verb string, run phaseFunc) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <input> <output>",
		Aliases: aliases,
		Short:   short,
		Args:    cobra.ArbitraryArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) != 2 {
				printUsage(c)
				return nil
			}
			return runPhase(c, serviceType, verb, args[0], args[1], run)
		},
	}
}

func runPhase(c *cobra.Command, serviceType, verb, input, output string, run phaseFunc) error {
	cfg, err := config.Load(c.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	if cfg.Progress {
		opts.Progress = c.OutOrStdout()
	}

	ctx, doneFx, err := setupTelemetry(serviceType)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		if err := doneFx(); err != nil {
			slog.Error("Error shutting down telemetry", slog.Any("error", err))
		}
	}()

	slog.Info(verb, slog.String("input", input), slog.String("output", output),
		slog.String("delimiter", fmt.Sprintf("%q", opts.Delimiter)), slog.Int("windowSize", opts.WindowSize))

	start := time.Now()
	stats, err := run(ctx, input, output, opts)
	recordRun(ctx, serviceType, start, err)
	if err != nil {
		return err
	}

	slog.Info("Finished", slog.Any("stats", stats), slog.Duration("elapsed", time.Since(start)))
	return nil
}
