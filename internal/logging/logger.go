// Package logging centralizes logger construction so every package shares
// one logrus configuration. Packages obtain their logger at init time via
// GetLogger and may be overridden individually through their SetLogger
// functions; SetAllLogLevels retunes every registered logger at once.
package logging

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	loggers []*logrus.Logger
)

// GetLogger returns a new registered logger with the default text formatter.
// The returned logger follows later SetAllLogLevels calls.
func GetLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.GetLevel())

	mu.Lock()
	loggers = append(loggers, logger)
	mu.Unlock()

	return logger
}

// SetAllLogLevels applies the given level to the global logrus instance and
// to every logger handed out by GetLogger.
func SetAllLogLevels(level logrus.Level) {
	logrus.SetLevel(level)

	mu.Lock()
	defer mu.Unlock()
	for _, logger := range loggers {
		logger.SetLevel(level)
	}
}

// SetAllFormatters applies the given formatter to every registered logger.
func SetAllFormatters(formatter logrus.Formatter) {
	mu.Lock()
	defer mu.Unlock()
	for _, logger := range loggers {
		logger.SetFormatter(formatter)
	}
}
