// Package conf provides the station credentials store and runtime settings for bwpull.
package conf

import "github.com/tphakala/bwpull/internal/logger"

// GetLogger returns the config package logger. It is fetched from the global
// logger each time so that it follows the logger installed by cmd.
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}
