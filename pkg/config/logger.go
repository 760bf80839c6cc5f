// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "fmt"

// LoggerConfig controls process logging. The serve command applies it only
// when Dir is set and no --log-dir flag was given: logs then go to
// date-rotating files under Dir at Level in Format. Otherwise the CLI's
// logging flags and their defaults (info level, simple format, stderr)
// decide, and Level and Format here are not used.
//
//	logger:
//	  level: info
//	  dir: ./logs
//	  format: simple
type LoggerConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level,omitempty"`

	// Dir, when set, routes logs to date-rotating {dir}/{YYYY-MM-DD}.log
	// files instead of stderr.
	Dir string `yaml:"dir,omitempty"`

	// Format is "simple" (level + message) or "verbose" (timestamped).
	// Default: simple.
	Format string `yaml:"format,omitempty"`
}

// SetDefaults fills zero-valued fields.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate rejects unknown log levels. Formats are open-ended; anything
// other than simple/verbose falls back to slog's standard text handler.
func (c *LoggerConfig) Validate() error {
	if c.Level != "" && !validLogLevels[c.Level] {
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Level)
	}
	return nil
}
