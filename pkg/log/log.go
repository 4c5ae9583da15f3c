// Package log provides process-wide structured logging for bitbucket-mcp.
// All output goes to stderr: stdout is reserved for the MCP stdio stream,
// so anything printed there would corrupt the protocol.
package log

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

var logger = hclog.New(&hclog.LoggerOptions{
	Name:   "bitbucket-mcp",
	Level:  hclog.Info,
	Output: os.Stderr,
})

// SetLevel adjusts the global log level. Accepts the usual hclog level
// names (trace, debug, info, warn, error); unknown values fall back to info.
func SetLevel(level string) {
	parsed := hclog.LevelFromString(level)
	if parsed == hclog.NoLevel {
		parsed = hclog.Info
	}
	logger.SetLevel(parsed)
}

// Debug logs a message at debug level with optional key/value pairs.
func Debug(msg string, args ...interface{}) {
	logger.Debug(msg, args...)
}

// Info logs a message at info level with optional key/value pairs.
func Info(msg string, args ...interface{}) {
	logger.Info(msg, args...)
}

// Warn logs a message at warn level with optional key/value pairs.
func Warn(msg string, args ...interface{}) {
	logger.Warn(msg, args...)
}

// Error logs a message at error level with optional key/value pairs.
func Error(msg string, args ...interface{}) {
	logger.Error(msg, args...)
}

// Named returns a sub-logger with the given name appended, for components
// that want their own scope without a new configuration.
func Named(name string) hclog.Logger {
	return logger.Named(name)
}
