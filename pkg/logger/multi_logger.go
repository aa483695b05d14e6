package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryStore LogCategory = "store" // History store lifecycle events (JSON)
	CategoryError LogCategory = "error" // Application errors (JSON)
)

// Categories lists every category written by MultiLogger
var Categories = []LogCategory{CategoryStore, CategoryError}

// Valid reports whether c is a known category
func (c LogCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MultiLogger provides categorized logging with separate output files
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	cores   map[LogCategory]zapcore.Core
	files   []*os.File
	config  MultiLoggerConfig
	mu      sync.RWMutex
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		cores:   make(map[LogCategory]zapcore.Core),
		config:  config,
	}

	if err := ml.addCategory(CategoryStore, parseLevel(config.Level, zapcore.InfoLevel)); err != nil {
		ml.Close()
		return nil, fmt.Errorf("failed to create store logger: %w", err)
	}
	if err := ml.addCategory(CategoryError, zapcore.ErrorLevel); err != nil {
		ml.Close()
		return nil, fmt.Errorf("failed to create error logger: %w", err)
	}

	return ml, nil
}

// addCategory opens today's JSON log file for a category
func (ml *MultiLogger) addCategory(category LogCategory, level zapcore.Level) error {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "" // Don't include caller for cleaner logs

	file, err := os.OpenFile(ml.categoryLogPath(category), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	ml.files = append(ml.files, file)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	ml.cores[category] = core
	ml.loggers[category] = zap.New(core).With(zap.String("category", string(category)))
	return nil
}

func (ml *MultiLogger) categoryLogPath(category LogCategory) string {
	return LogPath(ml.config.LogsDir, category, time.Now())
}

// LogPath returns the file a category is written to on a given day
func LogPath(logsDir string, category LogCategory, date time.Time) string {
	filename := fmt.Sprintf("%s-%s.log", category, date.Format("20060102"))
	return filepath.Join(logsDir, filename)
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}

	// Return error logger as fallback
	return ml.loggers[CategoryError]
}

// Store returns the store logger (JSON format)
func (ml *MultiLogger) Store() *zap.Logger {
	return ml.GetLogger(CategoryStore)
}

// Error returns the error logger (JSON format)
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// Attach returns a copy of base that also writes to the category files.
// Entries reach the error file only at error level and above.
func (ml *MultiLogger) Attach(base *zap.Logger) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	store := ml.cores[CategoryStore].With([]zap.Field{zap.String("category", string(CategoryStore))})
	errs := ml.cores[CategoryError].With([]zap.Field{zap.String("category", string(CategoryError))})
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, store, errs)
	}))
}

// LogStoreEvent logs a store lifecycle event with structured data
func (ml *MultiLogger) LogStoreEvent(event string, fields ...zap.Field) {
	ml.Store().Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var errs []error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes all loggers and closes the log files
func (ml *MultiLogger) Close() error {
	syncErr := ml.Sync()

	ml.mu.Lock()
	defer ml.mu.Unlock()

	errs := []error{syncErr}
	for _, file := range ml.files {
		if err := file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	ml.files = nil
	return errors.Join(errs...)
}
