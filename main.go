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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/KimMachineGun/automemlimit/memlimit"
	gomaxecs "github.com/rdforte/gomaxecs/maxprocs"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/cardinalhq/bigtranspose/cmd"
	"github.com/cardinalhq/bigtranspose/config"
)

// procLogger adapts the maxprocs printf-style loggers to slog.
func procLogger(msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...), slog.String("service", config.ServiceName))
}

// init sizes the runtime for the container before any command runs: CPU
// quota, a memory limit at 80% of the cgroup or system limit, and a GOGC of 50
// unless one is set.
func init() {
	if gomaxecs.IsECS() {
		if _, err := gomaxecs.Set(gomaxecs.WithLogger(procLogger)); err != nil {
			slog.Warn("Failed to set GOMAXPROCS from ECS task metadata", slog.Any("error", err))
		}
	} else {
		if _, err := maxprocs.Set(maxprocs.Logger(procLogger)); err != nil {
			slog.Warn("Failed to set GOMAXPROCS from cgroup quota", slog.Any("error", err))
		}
	}

	if _, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.8),
		memlimit.WithLogger(slog.Default()),
		memlimit.WithProvider(
			memlimit.ApplyFallback(
				memlimit.FromCgroup,
				memlimit.FromSystem,
			),
		),
	); err != nil {
		slog.Warn("Failed to set memory limit", slog.Any("error", err))
	}

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(50)
		_ = os.Setenv("GOGC", "50")
	}
}

func main() {
	cmd.Execute()
}
