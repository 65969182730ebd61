package ggdraw

import (
	"log/slog"

	"github.com/gogpu/ggdraw/internal/logging"
)

// SetLogger configures the logger for ggdraw and all its sub-packages.
// By default, ggdraw produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by ggdraw:
//   - [slog.LevelDebug]: slab creation and widening, uploads, bind statistics
//   - [slog.LevelInfo]: context creation, backend selection
//   - [slog.LevelWarn]: failed fills and draws, resource release errors
//
// Example:
//
//	ggdraw.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Logger returns the current logger used by ggdraw.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
