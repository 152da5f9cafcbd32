package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	loggerOutputPath     = "stderr"
	loggerEncoding       = "console"
	loggerMessageKey     = "message"
	loggerVerboseLevel   = "level"
	loggerVerboseTimeKey = "time"
)

// NewApplicationLogger builds the console logger shared by every command.
// Diagnostics always go to stderr so command output on stdout stays machine readable.
// The default logger prints bare messages at info level and above; a verbose
// logger adds timestamps, levels and debug messages.
func NewApplicationLogger(verbose bool) (*zap.Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     loggerMessageKey,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
		encoderConfig.LevelKey = loggerVerboseLevel
		encoderConfig.TimeKey = loggerVerboseTimeKey
	}
	loggerConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          loggerEncoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{loggerOutputPath},
		ErrorOutputPaths:  []string{loggerOutputPath},
		DisableCaller:     true,
		DisableStacktrace: true,
	}
	return loggerConfig.Build()
}
