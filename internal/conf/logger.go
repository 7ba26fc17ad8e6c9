// Package conf provides configuration management for ppewatch.
package conf

import "github.com/tphakala/ppewatch/internal/logger"

// GetLogger returns the config package logger. It is fetched from the global
// logger on each call because the central logger is installed after config load.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
