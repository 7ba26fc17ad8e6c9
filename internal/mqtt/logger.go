package mqtt

import "github.com/tphakala/ppewatch/internal/logger"

// GetLogger returns the mqtt module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
