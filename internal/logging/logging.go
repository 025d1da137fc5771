// Package logging wraps the structured logger used across vsh packages.
//
// Components accept a *Logger and must tolerate a nil one (Nop is used
// as the zero value's backing store), so callers that don't care about
// diagnostics never have to wire anything up.
package logging

import "go.uber.org/zap"

// Logger is the structured logger handle threaded through the
// interpreter and facade. It wraps zap.SugaredLogger so call sites read
// like ordinary formatted logging rather than zap's field-builder API.
type Logger struct {
	s *zap.SugaredLogger
}

// Nop returns a Logger that discards everything written to it.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// New wraps an existing zap logger.
func New(l *zap.Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{s: l.Sugar()}
}

func (l *Logger) sugar() *zap.SugaredLogger {
	if l == nil || l.s == nil {
		return zap.NewNop().Sugar()
	}
	return l.s
}

func (l *Logger) Debugf(format string, args ...any) { l.sugar().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.sugar().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.sugar().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.sugar().Errorf(format, args...) }

// With returns a child logger carrying the given structured fields,
// e.g. With("subshell", depth).
func (l *Logger) With(args ...any) *Logger {
	return &Logger{s: l.sugar().With(args...)}
}
