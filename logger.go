package auth

import (
	"log/slog"
	"os"
)

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps a slog.Logger into a Logger
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		return defaultLogger()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// GetLogger returns a child logger tagged with the component name, so a
// slog-backed logger can act as its own provider.
func (s *slogLogger) GetLogger(name string) Logger {
	return &slogLogger{l: s.l.With("logger", name)}
}

func defaultLogger() *slogLogger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &slogLogger{l: slog.New(h).With("component", "auth")}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger discards everything
func NoopLogger() Logger { return noopLogger{} }

type staticProvider struct {
	logger Logger
}

func (p staticProvider) GetLogger(string) Logger { return p.logger }

// ProviderFromLogger returns a LoggerProvider that always hands out logger.
func ProviderFromLogger(logger Logger) LoggerProvider {
	if logger == nil {
		logger = defaultLogger()
	}
	if provider, ok := logger.(LoggerProvider); ok {
		return provider
	}
	return staticProvider{logger: logger}
}

// ResolveLogger picks a logger for the named component. A non nil logger
// from the provider wins, then the explicit fallback, then the package
// default. The returned provider is never nil.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if logger := provider.GetLogger(name); logger != nil {
			return provider, logger
		}
	}

	if fallback != nil {
		return staticProvider{logger: fallback}, fallback
	}

	base := defaultLogger()
	return base, base.GetLogger(name)
}
