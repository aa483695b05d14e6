package infrastructure

import (
	"fmt"

	"github.com/ericstone57/dl-history/internal/domain"
	"gorm.io/gorm"
)

// ClaimTempName marks filename as in use for the current run. Claiming a name
// twice keeps a single entry; the table declares no key, so uniqueness is
// enforced by the statement itself.
func (s *HistoryStore) ClaimTempName(filename string) error {
	return s.withDB(func(db *gorm.DB) error {
		err := db.Exec(`INSERT INTO downloads_temp (downloaded_filename)
			SELECT ? WHERE NOT EXISTS (SELECT 1 FROM downloads_temp WHERE downloaded_filename = ?)`,
			filename, filename).Error
		if err != nil {
			return writeError("claim temp name", err)
		}
		return nil
	})
}

// ListClaimedTempNames returns every filename claimed since Initialize
func (s *HistoryStore) ListClaimedTempNames() ([]string, error) {
	names := make([]string, 0)
	err := s.withDB(func(db *gorm.DB) error {
		return db.Model(&domain.TempName{}).Pluck("downloaded_filename", &names).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list temp names: %w", err)
	}
	return names, nil
}
