package types

// Logger is the logging interface used throughout the connection manager.
//
// It accepts a message followed by alternating key/value pairs, matching the
// sugared-logger style of popular structured logging libraries, so callers
// can adapt zap's SugaredLogger, slog, or any similar logger without glue
// code beyond a thin wrapper.
type Logger interface {
	// Debug logs a message at debug level with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs a message at info level with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a message at warn level with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs a message at error level with optional key-value pairs.
	Error(msg string, args ...any)
	// Fatal logs a message at fatal level and terminates the program.
	Fatal(msg string, args ...any)
}
