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
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/bigtranspose/internal/idgen"
)

func TestResolveRunID(t *testing.T) {
	t.Run("fresh when unset", func(t *testing.T) {
		t.Setenv(runIDEnv, "")
		a, err := resolveRunID()
		require.NoError(t, err)
		b, err := resolveRunID()
		require.NoError(t, err)
		assert.Len(t, a, 25)
		assert.NotEqual(t, a, b)
	})

	t.Run("shared from environment", func(t *testing.T) {
		want := idgen.UUIDToBase36(uuid.New())
		t.Setenv(runIDEnv, want)
		got, err := resolveRunID()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("rejects malformed", func(t *testing.T) {
		t.Setenv(runIDEnv, "not-a-run-id")
		_, err := resolveRunID()
		require.Error(t, err)
		assert.Contains(t, err.Error(), runIDEnv)
	})
}

func TestPhaseFailsOnInvalidRunID(t *testing.T) {
	t.Setenv(runIDEnv, "bogus")
	dir := t.TempDir()
	_, err := execute(t, "m", filepath.Join(dir, "in"), filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), runIDEnv)
}
