// Package logger configures the application-wide logrus logger.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	// Level is a logrus level name ("debug", "info", ...). Empty means info.
	Level string
	// File enables JSON logging to a size-rotated file in addition to
	// stdout. Empty disables file output.
	File string
}

// New builds a configured *logrus.Logger.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.JSONFormatter{})

	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotated))
	} else {
		log.SetOutput(os.Stdout)
	}

	return log
}
