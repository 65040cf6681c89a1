package matcache

// Fields is a minimal structured field map for log lines.
type Fields map[string]any

// Logger is the tiny leveled logging boundary of the cache. Wrap your
// logging stack with one of the adapters under log/ (zap, logrus, slog,
// zerolog) or implement it directly. A nil Logger in Options disables
// logging.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger drops everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
