package infrastructure

import (
	"errors"
	"fmt"

	"github.com/ericstone57/dl-history/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PutCache stores the payload fetched for urlPath. An existing entry is never
// replaced.
func (s *HistoryStore) PutCache(urlPath string, payload []byte) error {
	entry := domain.CacheEntry{URLPath: urlPath, PostData: payload}
	return s.withDB(func(db *gorm.DB) error {
		if err := db.Clauses(clause.Insert{Modifier: "OR IGNORE"}).Create(&entry).Error; err != nil {
			return writeError("cache payload", err)
		}
		return nil
	})
}

// GetCache returns the payload cached for urlPath. When the cache is ignored
// every read is a miss and the database is not queried.
func (s *HistoryStore) GetCache(urlPath string) ([]byte, bool, error) {
	if s.config.IgnoreCache {
		return nil, false, nil
	}

	var entry domain.CacheEntry
	err := s.withDB(func(db *gorm.DB) error {
		return db.Where("url_path = ?", urlPath).Take(&entry).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	return entry.PostData, true, nil
}
