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
	"log/slog"

	"github.com/cardinalhq/bigtranspose/config"
	"github.com/cardinalhq/bigtranspose/internal/transpose"
)

func init() {
	cmd := newPhaseCmd("m", []string{"merge", "makematrix"},
		"Reassemble a sorted triplet file into a delimited file",
		config.ServiceTypeReassemble, "MakeMatrix", runReassemble)
	rootCmd.AddCommand(cmd)
}

func runReassemble(ctx context.Context, input, output string, opts transpose.Options) (slog.LogValuer, error) {
	stats, err := transpose.Reassemble(ctx, input, output, opts)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
