package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logrus instance shared by both pipelines.
var Logger *logrus.Logger

const logTimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// InitLogger configures the global logger from the logging config section
func InitLogger(level, format, output, file string) error {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return NewAppError(ErrCodeConfiguration, "Invalid log level", level)
	}
	logger.SetLevel(parsed)

	switch format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: logTimestampFormat,
		})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: logTimestampFormat,
		})
	}

	if output == "file" && file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return NewAppError(ErrCodeConfiguration, "Cannot open log file", err.Error())
		}
		logger.SetOutput(f)
	} else {
		logger.SetOutput(os.Stdout)
	}

	Logger = logger
	return nil
}

// GetLogger returns the global logger, applying info/JSON defaults on first
// use if InitLogger has not run yet
func GetLogger() *logrus.Logger {
	if Logger == nil {
		InitLogger("info", "json", "stdout", "")
	}
	return Logger
}
