package infrastructure

import (
	"fmt"

	"github.com/ericstone57/dl-history/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// FreePageLowWater is the free page count at or below which the file is grown
	FreePageLowWater = 1024

	// ReservationBytes is how much the file grows when free pages run low
	ReservationBytes = 50 * 1024 * 1024

	reserveTable = "space_reserve"
)

// EnsurePreallocated grows the database file by ReservationBytes when it has
// FreePageLowWater free pages or fewer. The space is written through a
// throwaway table that is dropped again, leaving its pages on the free list.
// It reports whether the file was grown.
func (s *HistoryStore) EnsurePreallocated() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, domain.ErrStoreClosed
	}

	grown, err := ensurePreallocated(s.db)
	if err == nil && grown {
		s.logger.Info("Reserved disk space for history", zap.Int("bytes", ReservationBytes))
	}
	return grown, err
}

// FreePages returns the number of unused pages in the database file
func (s *HistoryStore) FreePages() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, domain.ErrStoreClosed
	}
	return freePages(s.db)
}

func freePages(db *gorm.DB) (int64, error) {
	var free int64
	if err := db.Raw("PRAGMA freelist_count").Row().Scan(&free); err != nil {
		return 0, fmt.Errorf("failed to read free page count: %w", err)
	}
	return free, nil
}

func ensurePreallocated(db *gorm.DB) (bool, error) {
	free, err := freePages(db)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if free > FreePageLowWater {
		return false, nil
	}

	stmts := []struct {
		sql  string
		args []interface{}
	}{
		{"DROP TABLE IF EXISTS " + reserveTable, nil},
		{"CREATE TABLE " + reserveTable + " (x)", nil},
		{"INSERT INTO " + reserveTable + " VALUES (zeroblob(?))", []interface{}{ReservationBytes}},
		{"DROP TABLE " + reserveTable, nil},
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt.sql, stmt.args...).Error; err != nil {
			return false, writeError("reserve disk space", err)
		}
	}
	return true, nil
}
