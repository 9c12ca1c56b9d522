package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger writing to path at level. path "-" (or
// empty) logs to stderr; the interactive view must use a file since it owns
// the terminal.
func New(path, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(lvl)
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if path == "" || path == "-" {
		loggerConfig.OutputPaths = []string{"stderr"}
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("log directory: %w", err)
		}
		loggerConfig.OutputPaths = []string{path}
	}
	loggerConfig.ErrorOutputPaths = []string{"stderr"}

	return loggerConfig.Build()
}
