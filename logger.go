package gorgon

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so attributes of
// disabled log calls are never evaluated.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var silent = slog.New(nopHandler{})

// loggerPtr holds the logger of the resource layer. Backends keep their own,
// set through backend.SetLogger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(silent)
}

// SetLogger sets the logger for graphics contexts, buffers, views and
// bindings. Nil restores the silent default. It may be called while other
// goroutines log.
//
// Records by level:
//   - [slog.LevelInfo]: a GraphicsContext created or closed, with its label
//     and feature level.
//   - [slog.LevelDebug]: buffer, view and sampler lifecycle, the transfer
//     path SetData and GetData pick (update, map or staging copy), whole
//     versus region copies, and items SetRange skipped because they were
//     bound elsewhere on the stage.
//   - [slog.LevelWarn]: a buffer disposed while still bound to stage slots,
//     and a CopyTo whose length was clipped to fit either buffer.
//
// Every message starts with "gorgon: ".
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	loggerPtr.Store(l)
}

// Logger returns the logger set by SetLogger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
