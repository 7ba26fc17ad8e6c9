package report

import "github.com/tphakala/ppewatch/internal/logger"

// GetLogger returns the report module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("report")
}
