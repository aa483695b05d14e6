package infrastructure

import (
	"fmt"
	"os"
	"sync"

	"github.com/ericstone57/dl-history/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ domain.HistoryRepository = (*HistoryStore)(nil)

// HistoryStore implements domain.HistoryRepository on a single SQLite file.
//
// The store owns one connection. Every statement, read or write, runs under
// mu, so callers may share a store between any number of goroutines.
type HistoryStore struct {
	db      *gorm.DB
	config  domain.StoreConfig
	logger  *zap.Logger
	mu      sync.Mutex
	version domain.SchemaVersion

	initialized bool
	closed      bool
}

// Open opens or creates the history database at config.DatabasePath.
// Initialize must be called before any other operation.
func Open(config domain.StoreConfig, log *zap.Logger) (*HistoryStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	path := config.DatabasePath
	if path == "" {
		return nil, fmt.Errorf("%w: database path not configured", domain.ErrStorageUnavailable)
	}

	// SQLite silently falls back to read-only, so check write access up front
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, path, err)
	}
	f.Close()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database %s: %w", domain.ErrStorageUnavailable, path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, path, err)
	}
	// SQLite only supports one writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if config.BusyTimeout > 0 {
		if err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", config.BusyTimeout.Milliseconds())).Error; err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%w: failed to set busy timeout on %s: %w", domain.ErrStorageUnavailable, path, err)
		}
	}

	// Reading the catalog fails right away on a file that is not a database
	var tables int64
	if err := db.Raw("SELECT count(*) FROM sqlite_master").Row().Scan(&tables); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %s is not a usable database: %w", domain.ErrStorageUnavailable, path, err)
	}

	store := &HistoryStore{
		db:      db,
		config:  config,
		version: domain.SchemaCurrent,
		logger: log.With(
			zap.String("component", "history_store"),
			zap.String("run_id", uuid.New().String())),
	}

	store.logger.Info("History store opened",
		zap.String("path", path),
		zap.Bool("ignore_history", config.IgnoreHistory),
		zap.Bool("ignore_cache", config.IgnoreCache))

	return store, nil
}

// Path returns the database file path
func (s *HistoryStore) Path() string {
	return s.config.DatabasePath
}

// IsInitialized reports whether Initialize completed successfully and the
// store has not been closed since
func (s *HistoryStore) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && !s.closed
}

// Close releases the database connection. It waits for the statement in
// flight, if any, so nothing committed is lost. Calling Close again is a no-op.
func (s *HistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database %s: %w", s.config.DatabasePath, err)
	}

	s.logger.Info("History store closed", zap.String("path", s.config.DatabasePath))
	return nil
}

// Shutdown closes the store and never fails: errors and panics raised while
// closing are logged. Meant to be deferred by the owning process.
func (s *HistoryStore) Shutdown() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while closing history store", zap.Any("panic", r))
		}
	}()

	if err := s.Close(); err != nil {
		s.logger.Error("Failed to close history store", zap.Error(err))
	}
}

// withDB runs fn against the connection once the store is ready
func (s *HistoryStore) withDB(fn func(db *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	if !s.initialized {
		return domain.ErrNotInitialized
	}
	return fn(s.db)
}

// writeError marks a failed write as a storage failure
func writeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", domain.ErrStorageUnavailable, op, err)
}
