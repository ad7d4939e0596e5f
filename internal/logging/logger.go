package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the named level ("debug", "info",
// "warn" or "error"). Unknown levels fall back to info.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		Level:           lvl,
		Prefix:          "alccalc",
	})
}

// Discard returns a logger that drops everything. Used by tests and callers
// that do not care about progress output.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
