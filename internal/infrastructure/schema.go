package infrastructure

import (
	"fmt"
	"strings"

	"github.com/ericstone57/dl-history/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Table layouts. Column order matches files written by earlier releases.
const (
	createMediaTable = `CREATE TABLE IF NOT EXISTS media (
		domain TEXT,
		url_path TEXT,
		album_path TEXT,
		referer TEXT,
		download_path TEXT,
		download_filename TEXT,
		original_filename TEXT,
		completed INTEGER NOT NULL,
		PRIMARY KEY (url_path, original_filename)
	)`

	createTempNameTable = `CREATE TABLE IF NOT EXISTS downloads_temp (
		downloaded_filename TEXT
	)`

	createCacheTable = `CREATE TABLE IF NOT EXISTS coomeno (
		url_path TEXT,
		post_data BLOB,
		PRIMARY KEY (url_path)
	)`
)

// knownTables maps each table this store writes to its exact column list
var knownTables = []struct {
	name    string
	columns []string
	create  string
}{
	{"media", []string{"domain", "url_path", "album_path", "referer", "download_path", "download_filename", "original_filename", "completed"}, createMediaTable},
	{"downloads_temp", []string{"downloaded_filename"}, createTempNameTable},
	{"coomeno", []string{"url_path", "post_data"}, createCacheTable},
}

// legacyColumns must be present in the legacy table; anything else in it is ignored
var legacyColumns = []string{"path", "completed"}

// Initialize prepares the database for a new run: it detects the legacy
// history table, validates existing tables, reserves disk space, creates the
// missing tables and clears the filenames claimed by the previous run.
// It must be called exactly once, before any other operation.
func (s *HistoryStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	if s.initialized {
		return domain.ErrAlreadyInitialized
	}

	legacy, err := detectLegacy(s.db)
	if err != nil {
		return err
	}
	s.version = versionFor(legacy)
	if legacy {
		s.logger.Info("Legacy history table found, consulting it read-only",
			zap.String("table", domain.LegacyTableName))
	}

	if err := validateSchema(s.db, legacy); err != nil {
		return err
	}

	grown, err := ensurePreallocated(s.db)
	if err != nil {
		return err
	}

	for _, table := range knownTables {
		if err := s.db.Exec(table.create).Error; err != nil {
			return writeError("create table "+table.name, err)
		}
	}

	if err := s.db.Exec("DELETE FROM downloads_temp").Error; err != nil {
		return writeError("clear temp names", err)
	}

	s.initialized = true
	s.logger.Info("History store initialized",
		zap.String("schema_version", string(s.version)),
		zap.Bool("preallocated", grown))

	return nil
}

// DetectLegacy reports whether the history table of older releases exists and
// records the answer on the handle, so LegacyMode reflects it from then on
func (s *HistoryStore) DetectLegacy() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, domain.ErrStoreClosed
	}
	legacy, err := detectLegacy(s.db)
	if err != nil {
		return false, err
	}
	s.version = versionFor(legacy)
	return legacy, nil
}

func versionFor(legacy bool) domain.SchemaVersion {
	if legacy {
		return domain.SchemaLegacy
	}
	return domain.SchemaCurrent
}

// ValidateSchema checks that the tables already in the file have the layout
// this store expects
func (s *HistoryStore) ValidateSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	legacy, err := detectLegacy(s.db)
	if err != nil {
		return err
	}
	return validateSchema(s.db, legacy)
}

// LegacyMode reports whether Initialize or DetectLegacy found the legacy
// history table
func (s *HistoryStore) LegacyMode() bool {
	return s.SchemaVersion() == domain.SchemaLegacy
}

// SchemaVersion returns the schema version resolved by Initialize or DetectLegacy
func (s *HistoryStore) SchemaVersion() domain.SchemaVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func detectLegacy(db *gorm.DB) (bool, error) {
	exists, err := tableExists(db, domain.LegacyTableName)
	if err != nil {
		return false, fmt.Errorf("failed to check for legacy history: %w", err)
	}
	return exists, nil
}

func validateSchema(db *gorm.DB, legacy bool) error {
	for _, table := range knownTables {
		columns, err := tableColumns(db, table.name)
		if err != nil {
			return fmt.Errorf("failed to read layout of %s: %w", table.name, err)
		}
		if len(columns) == 0 {
			continue
		}
		if strings.Join(columns, ",") != strings.Join(table.columns, ",") {
			return fmt.Errorf("%w: table %s has columns (%s), expected (%s)",
				domain.ErrSchemaMismatch, table.name,
				strings.Join(columns, ", "), strings.Join(table.columns, ", "))
		}
	}

	if !legacy {
		return nil
	}
	columns, err := tableColumns(db, domain.LegacyTableName)
	if err != nil {
		return fmt.Errorf("failed to read layout of %s: %w", domain.LegacyTableName, err)
	}
	for _, want := range legacyColumns {
		if !containsString(columns, want) {
			return fmt.Errorf("%w: legacy table %s has no %s column",
				domain.ErrSchemaMismatch, domain.LegacyTableName, want)
		}
	}
	return nil
}

func tableExists(db *gorm.DB, table string) (bool, error) {
	var count int64
	err := db.Raw(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Row().Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// tableColumns returns the column names of table in declaration order, or
// nothing when the table does not exist
func tableColumns(db *gorm.DB, table string) ([]string, error) {
	rows, err := db.Raw(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
