package infrastructure

import (
	"errors"
	"fmt"
	"os"

	"github.com/ericstone57/dl-history/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertBatchSize keeps multi-row inserts well under SQLite's variable limit
const insertBatchSize = 100

// InsertRecord inserts a media record. A record whose (url_path,
// original_filename) key already exists is left untouched.
func (s *HistoryStore) InsertRecord(record domain.MediaRecord) error {
	return s.withDB(func(db *gorm.DB) error {
		if err := db.Clauses(clause.Insert{Modifier: "OR IGNORE"}).Create(&record).Error; err != nil {
			return writeError("insert media record", err)
		}
		return nil
	})
}

// InsertBatch inserts records in a single transaction with the same
// insert-or-ignore rule as InsertRecord, duplicates within the batch included
func (s *HistoryStore) InsertBatch(records []domain.MediaRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := make([]domain.MediaRecord, len(records))
	copy(batch, records)

	return s.withDB(func(db *gorm.DB) error {
		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Clauses(clause.Insert{Modifier: "OR IGNORE"}).CreateInBatches(&batch, insertBatchSize).Error
		})
		if err != nil {
			return writeError("insert media batch", err)
		}
		return nil
	})
}

// MarkDownloadTarget records where a file is about to be written.
// Nothing happens if the record does not exist.
func (s *HistoryStore) MarkDownloadTarget(urlPath, originalFilename, downloadPath, downloadFilename string) error {
	return s.withDB(func(db *gorm.DB) error {
		err := db.Model(&domain.MediaRecord{}).
			Where("url_path = ? AND original_filename = ?", urlPath, originalFilename).
			Updates(map[string]interface{}{
				"download_path":     downloadPath,
				"download_filename": downloadFilename,
			}).Error
		if err != nil {
			return writeError("update download target", err)
		}
		return nil
	})
}

// MarkComplete flags a record as downloaded. Nothing happens if the record does
// not exist; no operation ever clears the flag.
func (s *HistoryStore) MarkComplete(urlPath, originalFilename string) error {
	return s.withDB(func(db *gorm.DB) error {
		err := db.Model(&domain.MediaRecord{}).
			Where("url_path = ? AND original_filename = ?", urlPath, originalFilename).
			Update("completed", domain.Completed).Error
		if err != nil {
			return writeError("mark media complete", err)
		}
		return nil
	})
}

// LookupDownloadedFilename returns the local filename chosen for a record.
// The boolean is false when the record does not exist or no filename was set
// yet, and always false, without touching the database, when history is ignored.
func (s *HistoryStore) LookupDownloadedFilename(urlPath, originalFilename string) (string, bool, error) {
	if s.config.IgnoreHistory {
		return "", false, nil
	}

	var record domain.MediaRecord
	err := s.withDB(func(db *gorm.DB) error {
		return db.Select("download_filename").
			Where("url_path = ? AND original_filename = ?", urlPath, originalFilename).
			Take(&record).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up downloaded filename: %w", err)
	}
	if record.DownloadFilename == "" {
		return "", false, nil
	}
	return record.DownloadFilename, true, nil
}

// IsComplete checks whether a file has completed given its domain and url
// path. Always false, without touching the database, when history is ignored.
func (s *HistoryStore) IsComplete(domainName, urlPath string) (bool, error) {
	if s.config.IgnoreHistory {
		return false, nil
	}

	var count int64
	err := s.withDB(func(db *gorm.DB) error {
		return db.Model(&domain.MediaRecord{}).
			Where("domain = ? AND url_path = ? AND completed = ?", domainName, urlPath, domain.Completed).
			Count(&count).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to check completion: %w", err)
	}
	return count > 0, nil
}

// IsCompleteLegacy checks the legacy history table for a completed path.
// Always false when no legacy table was found or history is ignored.
func (s *HistoryStore) IsCompleteLegacy(urlPath string) (bool, error) {
	if s.config.IgnoreHistory {
		return false, nil
	}

	var record domain.LegacyRecord
	found := false
	err := s.withDB(func(db *gorm.DB) error {
		if s.version != domain.SchemaLegacy {
			return nil
		}
		err := db.Select("completed").Where("path = ?", urlPath).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to check legacy completion: %w", err)
	}
	return found && record.Completed == domain.Completed, nil
}

// FilenameAlreadyUsed checks whether any record was downloaded under filename.
// It answers from the database even when history is ignored: a file written on
// an earlier run still occupies its name on disk.
func (s *HistoryStore) FilenameAlreadyUsed(filename string) (bool, error) {
	var exists int
	err := s.withDB(func(db *gorm.DB) error {
		return db.Raw("SELECT EXISTS(SELECT 1 FROM media WHERE download_filename = ?)", filename).
			Row().Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check filename: %w", err)
	}
	return exists == 1, nil
}

// Stats returns download history statistics
func (s *HistoryStore) Stats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	err := s.withDB(func(db *gorm.DB) error {
		if err := db.Model(&domain.MediaRecord{}).Count(&stats.Records).Error; err != nil {
			return err
		}
		if err := db.Model(&domain.MediaRecord{}).Where("completed = ?", domain.Completed).Count(&stats.Completed).Error; err != nil {
			return err
		}
		if err := db.Model(&domain.TempName{}).Count(&stats.TempNames).Error; err != nil {
			return err
		}
		if err := db.Model(&domain.CacheEntry{}).Count(&stats.CacheEntries).Error; err != nil {
			return err
		}
		if err := db.Raw("PRAGMA page_size").Row().Scan(&stats.PageSize); err != nil {
			return err
		}
		free, err := freePages(db)
		if err != nil {
			return err
		}
		stats.FreePages = free
		stats.SchemaVersion = s.version
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect history stats: %w", err)
	}

	stats.Pending = stats.Records - stats.Completed
	if info, err := os.Stat(s.config.DatabasePath); err == nil {
		stats.FileSize = info.Size()
	}

	return stats, nil
}
