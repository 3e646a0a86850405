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
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sony/sonyflake"
)

// flakeEpoch is the sonyflake start time; ids count 10ms ticks from here.
var flakeEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

var defaultFlake = sync.OnceValue(func() *FlakeGenerator {
	g, err := NewFlakeGenerator()
	if err != nil {
		// No usable machine id (no private IPv4 address); fall back to random ids.
		return &FlakeGenerator{}
	}
	return g
})

// FlakeGenerator hands out roughly time-ordered int64 ids.
type FlakeGenerator struct {
	sf *sonyflake.Sonyflake
}

func NewFlakeGenerator() (*FlakeGenerator, error) {
	sf, err := sonyflake.New(sonyflake.Settings{StartTime: flakeEpoch})
	if err != nil {
		return nil, err
	}
	if sf == nil {
		return nil, errors.New("failed to create Sonyflake instance")
	}
	return &FlakeGenerator{sf: sf}, nil
}

// NextID returns a positive int64 that'll increase roughly in time order.
func (g *FlakeGenerator) NextID() int64 {
	if g.sf == nil {
		return rand.Int64()
	}
	v, err := g.sf.NextID()
	if err != nil {
		return rand.Int64()
	}
	return int64(v)
}

// InstanceID returns an id for this process from the shared generator.
func InstanceID() int64 {
	return defaultFlake().NextID()
}
