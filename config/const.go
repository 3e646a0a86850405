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

package config

const (
	// ServiceName identifies this program in logs and telemetry.
	ServiceName = "bigtranspose"

	// Service types, one per phase
	ServiceTypeSplit      = "bigtranspose-split"
	ServiceTypeReassemble = "bigtranspose-reassemble"

	// SortCommand is the external sort expected between the two phases.
	SortCommand = "sort -n -k1,1 -k2,2"
)
