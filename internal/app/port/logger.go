package port

// Logger is the narrow logging interface components accept when they do
// not need a concrete zap logger.
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
