/* This module keeps all struct used as singleton */

package utils

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	onceForLogger sync.Once
	logInstance   *zerolog.Logger
	logVerbosity  = zerolog.InfoLevel
)

// SetLogVerbosity sets the process-wide log level. Calls made after the
// first Logger() call only adjust the shared level, not the sinks.
func SetLogVerbosity(level zerolog.Level) {
	logVerbosity = level
	zerolog.SetGlobalLevel(logVerbosity)
}

// Logger returns the process logger, initialized once only.
func Logger() *zerolog.Logger {
	onceForLogger.Do(func() {
		zerolog.SetGlobalLevel(logVerbosity)
		zerolog.TimeFieldFormat = time.RFC3339Nano
		logger := zerolog.New(os.Stderr).With().
			Timestamp().
			Caller().
			Logger()
		logInstance = &logger
	})
	return logInstance
}
