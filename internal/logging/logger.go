package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger that writes JSON to the given log file path
// and also writes to stderr. Tab name and PID are included as initial fields.
func New(logPath, tabName string) (*zap.Logger, error) {
	return newLogger(logPath, tabName, zapcore.AddSync(os.Stderr))
}

func newLogger(logPath, tabName string, console zapcore.WriteSyncer) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	jsonEncoder := zapcore.NewJSONEncoder(encoderCfg)
	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	fileCore := zapcore.NewCore(jsonEncoder, zapcore.AddSync(file), zapcore.InfoLevel)
	consoleCore := zapcore.NewCore(consoleEncoder, console, zapcore.InfoLevel)

	core := zapcore.NewTee(fileCore, consoleCore)

	logger := zap.New(core,
		zap.Fields(
			zap.String("tab", tabName),
			zap.Int("pid", os.Getpid()),
		),
	)

	return logger, nil
}
