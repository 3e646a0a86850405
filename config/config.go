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

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cardinalhq/bigtranspose/internal/transpose"
	"github.com/cardinalhq/bigtranspose/internal/windowreader"
)

// Config aggregates configuration for the application.
type Config struct {
	Delimiter  string `mapstructure:"delimiter"`
	WindowSize int    `mapstructure:"window_size"`
	Progress   bool   `mapstructure:"progress"`
}

// Flag names bound by Load. Flags use dashes, config keys use underscores.
var flagKeys = map[string]string{
	"delimiter":   "delimiter",
	"window-size": "window_size",
	"progress":    "progress",
}

func DefaultConfig() *Config {
	return &Config{
		Delimiter:  "tab",
		WindowSize: windowreader.DefaultCapacity,
		Progress:   true,
	}
}

// Load reads configuration from files, environment variables and, when flags
// is non-nil, explicitly set command line flags, in increasing priority.
// Environment variables use the prefix "BIGTRANSPOSE" and the dot character
// in keys is replaced by an underscore. For example, "window_size" becomes
// "BIGTRANSPOSE_WINDOW_SIZE".
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("bigtranspose")
	v.AddConfigPath(".")
	v.SetEnvPrefix("BIGTRANSPOSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Options(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Options converts the configuration into transpose options.
func (c *Config) Options() (transpose.Options, error) {
	opts := transpose.DefaultOptions()

	delim, err := ParseDelimiter(c.Delimiter)
	if err != nil {
		return opts, err
	}
	if c.WindowSize < 2 {
		return opts, fmt.Errorf("window_size must be at least 2 bytes, got %d", c.WindowSize)
	}

	opts.Delimiter = delim
	opts.WindowSize = c.WindowSize
	return opts, nil
}

// ParseDelimiter accepts a single byte, the escape `\t`, or one of the names
// tab, comma, space, pipe and semicolon.
func ParseDelimiter(s string) (byte, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "space":
		return ' ', nil
	case "pipe":
		return '|', nil
	case "semicolon":
		return ';', nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single byte, got %q", s)
	}
	if s[0] == '\n' || s[0] == '\r' {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return s[0], nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
