package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level       string
	Development bool
	App         string
	Environment string
	Version     string
}

var global *zap.Logger = zap.NewNop()

// Init builds the process logger and installs it as the global instance.
// Structured JSON in production, human-readable console output in development.
func Init(c Config) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	level := new(zapcore.Level)
	if err := level.Set(c.Level); err != nil {
		*level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(*level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(
		zap.Fields(
			zap.String("service", c.App),
			zap.String("env", c.Environment),
			zap.String("version", c.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	global = l
	zap.ReplaceGlobals(l)
	return l, nil
}

// Get returns the global logger
func Get() *zap.Logger {
	return global
}

// Sync flushes any buffered log entries
func Sync() error {
	return global.Sync()
}
