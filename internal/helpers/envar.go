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

package helpers

import (
	"os"
	"strings"
)

// ParseBool interprets a boolean setting. "true", "1", "yes", "on", "enable"
// and "enabled" are true; "false", "0", "no", "off", "disable" and "disabled"
// are false (case insensitive, surrounding whitespace ignored). An empty value
// reports ok=false. Any other non-empty value counts as true, since these
// settings have historically been checked with != "".
func ParseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return false, false
	case "false", "0", "no", "off", "disable", "disabled":
		return false, true
	default:
		return true, true
	}
}

// GetBoolEnv reads a boolean environment variable, returning defaultValue
// when it is unset or empty.
func GetBoolEnv(envVar string, defaultValue bool) bool {
	if v, ok := ParseBool(os.Getenv(envVar)); ok {
		return v
	}
	return defaultValue
}

// AnyBoolEnv reports whether any of the named environment variables is set
// to a true value. Variables that are unset or empty are skipped.
func AnyBoolEnv(envVars ...string) bool {
	for _, name := range envVars {
		if GetBoolEnv(name, false) {
			return true
		}
	}
	return false
}
