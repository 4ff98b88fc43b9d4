// internal/logger/logger.go
package logger

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where logs go.
type Config struct {
	// LogFile receives rotated JSON logs. Empty disables the file sink.
	LogFile    string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
	Compress   bool
	Debug      bool
	// Buffer, when set, replaces the console sink.
	Buffer *LogBuffer
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogFile:    "logs/swap.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}

// New builds a logger that tees a console (or buffer) sink with a rotated
// JSON file.
func New(cfg Config) (*zap.Logger, error) {
	level := levelFor(cfg.Debug)

	var cores []zapcore.Core
	if cfg.Buffer != nil {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), cfg.Buffer, level))
	} else {
		cores = append(cores, prettyCore(zapcore.Lock(os.Stdout), level))
	}

	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// WithOperation returns a logger tagged with the operation name and a fresh
// correlation id, and the id itself.
func WithOperation(l *zap.Logger, operation string) (*zap.Logger, string) {
	id := uuid.NewString()
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", id),
	), id
}

// WithTransaction adds transaction context.
func WithTransaction(l *zap.Logger, signature string) *zap.Logger {
	return l.With(
		zap.String("signature", signature),
		zap.Time("tx_time", time.Now().UTC()),
	)
}

// TrackPerformance logs the duration of an operation when the returned
// function is called.
func TrackPerformance(l *zap.Logger, operation string) (end func()) {
	start := time.Now()
	l.Debug("Starting operation", zap.String("operation", operation))
	return func() {
		l.Debug("Operation completed",
			zap.String("operation", operation),
			zap.Duration("duration", time.Since(start)))
	}
}

// Sync flushes l, ignoring the errors terminals report for stdout.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
