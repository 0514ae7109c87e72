package uirender

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards everything and reports itself disabled so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the package logger used by renderers created without
// WithLogger. By default nothing is logged. Pass nil to silence it again.
//
// Levels:
//   - Debug: buffer growth, texture creation
//   - Info: renderer created and closed
//   - Warn: state restore failures that were shadowed by an earlier error
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
