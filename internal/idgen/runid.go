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

package idgen

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// runIDLength is the width of a base36-encoded 128 bit value.
const runIDLength = 25

// NewRunID returns a random id for one split or reassemble run, as a fixed
// width lowercase base36 string so it sorts and greps cleanly in logs.
func NewRunID() string {
	return UUIDToBase36(uuid.New())
}

func UUIDToBase36(id uuid.UUID) string {
	s := new(big.Int).SetBytes(id[:]).Text(36)
	if len(s) < runIDLength {
		s = strings.Repeat("0", runIDLength-len(s)) + s
	}
	return s
}

// ParseRunID reverses NewRunID.
func ParseRunID(s string) (uuid.UUID, error) {
	if len(s) != runIDLength {
		return uuid.Nil, fmt.Errorf("run id must be %d characters, got %d", runIDLength, len(s))
	}
	bi, ok := new(big.Int).SetString(s, 36)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid run id: %s", s)
	}
	if bi.BitLen() > 128 {
		return uuid.Nil, fmt.Errorf("run id too large: %s", s)
	}
	var id uuid.UUID
	bi.FillBytes(id[:])
	return id, nil
}
