package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib *log.Logger that writes through the slog logger with
// a component attribute, for APIs such as http.Server.ErrorLog.
func New(base *slog.Logger, component string) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelError)
}
