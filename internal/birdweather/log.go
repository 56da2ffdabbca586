package birdweather

import "github.com/tphakala/bwpull/internal/logger"

// GetLogger returns the birdweather package logger from the global logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("birdweather")
}
