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
	"github.com/cardinalhq/bigtranspose/internal/helpers"
	"github.com/cardinalhq/bigtranspose/internal/transpose"
)

func init() {
	cmd := newPhaseCmd("i", []string{"split", "rewrite"},
		"Split a delimited file into (field, line, value) triplets",
		config.ServiceTypeSplit, "Rewriting", runSplit)
	rootCmd.AddCommand(cmd)
}

func runSplit(ctx context.Context, input, output string, opts transpose.Options) (slog.LogValuer, error) {
	// Every value grows by its triplet header, so the input size is a lower bound.
	if size, err := helpers.FileSize(input); err == nil {
		if err := helpers.CheckOutputSpace(output, uint64(size)); err != nil {
			slog.Warn("Triplet output may not fit on disk", slog.Any("error", err))
		}
	}

	stats, err := transpose.Split(ctx, input, output, opts)
	if err != nil {
		return nil, err
	}
	slog.Info("Sort the triplets before reassembling",
		slog.String("command", config.SortCommand+" "+output+" -o "+output+".sorted"))
	return stats, nil
}
