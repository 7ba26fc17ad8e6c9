package compliance

import "github.com/tphakala/ppewatch/internal/logger"

// GetLogger returns the compliance package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("compliance")
}
