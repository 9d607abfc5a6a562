package logger

import corelogger "github.com/kilianp07/chargeplan/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// New returns a Logger for the given component. The output format is picked
// from the APP_ENV variable: human-readable console output in dev, JSON
// otherwise.
func New(component string) Logger {
	return NewZerologLogger(component)
}
