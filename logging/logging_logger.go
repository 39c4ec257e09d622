/*
Copyright (c) 2025 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the
License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the specific
language governing permissions and limitations under the License.
*/

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Names of the command line flags:
const (
	levelFlagName = "log-level"
	debugFlagName = "log-debug"
)

// redactedValue is what replaces the value of sensitive attributes.
const redactedValue = "***"

// LoggerBuilder contains the logic needed to create a logger. The rest of the library expects loggers created here:
// attributes whose keys start with '!' are considered sensitive, and their values are replaced with '***' unless
// debug logging is explicitly enabled. The '!' marker itself is always removed from the key.
type LoggerBuilder struct {
	writer io.Writer
	level  string
	debug  bool
}

// NewLogger creates a builder that can then be used to configure and create a logger.
func NewLogger() *LoggerBuilder {
	return &LoggerBuilder{
		level: slog.LevelInfo.String(),
	}
}

// SetWriter sets the writer that the logger will write to. This is optional and the default is the standard error
// stream of the process.
func (b *LoggerBuilder) SetWriter(value io.Writer) *LoggerBuilder {
	b.writer = value
	return b
}

// SetLevel sets the log level. Valid values are 'debug', 'info', 'warn' and 'error', ignoring case. This is optional
// and the default is 'info'.
func (b *LoggerBuilder) SetLevel(value string) *LoggerBuilder {
	b.level = value
	return b
}

// SetDebug enables debug logging. When debug logging is enabled sensitive attribute values are written as is instead
// of being redacted. This is optional and the default is false.
func (b *LoggerBuilder) SetDebug(value bool) *LoggerBuilder {
	b.debug = value
	return b
}

// SetFlags sets the command line flags that should be used to configure the logger. This is optional.
func (b *LoggerBuilder) SetFlags(flags *pflag.FlagSet) *LoggerBuilder {
	if flags == nil {
		return b
	}
	levelValue, err := flags.GetString(levelFlagName)
	if err == nil {
		b.SetLevel(levelValue)
	}
	debugValue, err := flags.GetBool(debugFlagName)
	if err == nil {
		b.SetDebug(debugValue)
	}
	return b
}

// AddFlags adds to the given flag set the flags needed to configure a logger with the SetFlags method.
func AddFlags(flags *pflag.FlagSet) {
	flags.String(levelFlagName, "info", "Log level.")
	flags.Bool(debugFlagName, false, "Enable debug logging, including sensitive attribute values.")
}

// Build uses the data stored in the builder to build a new logger.
func (b *LoggerBuilder) Build() (result *slog.Logger, err error) {
	// Check parameters:
	var level slog.Level
	switch strings.ToLower(b.level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		err = fmt.Errorf("unknown log level '%s', should be 'debug', 'info', 'warn' or 'error'", b.level)
		return
	}
	if b.debug {
		level = slog.LevelDebug
	}

	// Set the default writer:
	writer := b.writer
	if writer == nil {
		writer = os.Stderr
	}

	// Create the handler:
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: b.replaceAttr,
	})

	// Create and populate the object:
	result = slog.New(handler)
	return
}

// replaceAttr removes the '!' marker from sensitive attribute keys, and redacts their values unless debug logging is
// enabled.
func (b *LoggerBuilder) replaceAttr(groups []string, attr slog.Attr) slog.Attr {
	if !strings.HasPrefix(attr.Key, "!") {
		return attr
	}
	attr.Key = attr.Key[1:]
	if !b.debug {
		attr.Value = slog.StringValue(redactedValue)
	}
	return attr
}
