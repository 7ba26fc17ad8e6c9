package violation

import "github.com/tphakala/ppewatch/internal/logger"

// GetLogger returns the violation package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("violation")
}
