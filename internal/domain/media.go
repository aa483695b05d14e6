package domain

// Completion flags stored in the completed column
const (
	Pending   = 0
	Completed = 1
)

// MediaRecord is one row of the download history, keyed by (url_path, original_filename)
type MediaRecord struct {
	Domain           string `json:"domain" gorm:"column:domain"`
	URLPath          string `json:"url_path" gorm:"column:url_path;primaryKey"`
	AlbumPath        string `json:"album_path" gorm:"column:album_path"`
	Referer          string `json:"referer" gorm:"column:referer"`
	DownloadPath     string `json:"download_path" gorm:"column:download_path"`
	DownloadFilename string `json:"download_filename" gorm:"column:download_filename"`
	OriginalFilename string `json:"original_filename" gorm:"column:original_filename;primaryKey"`
	Completed        int    `json:"completed" gorm:"column:completed;not null"`
}

// TableName specifies the table name for GORM
func (MediaRecord) TableName() string {
	return "media"
}

// NewMediaRecord creates a pending record with empty download location fields
func NewMediaRecord(domain, urlPath, albumPath, referer, originalFilename string) MediaRecord {
	return MediaRecord{
		Domain:           domain,
		URLPath:          urlPath,
		AlbumPath:        albumPath,
		Referer:          referer,
		OriginalFilename: originalFilename,
		Completed:        Pending,
	}
}

// IsComplete reports whether the record has been marked as downloaded
func (m MediaRecord) IsComplete() bool {
	return m.Completed == Completed
}

// LegacyRecord is a row of the history table written by older releases.
// Only path and completed are known; the table is never written to.
type LegacyRecord struct {
	Path      string `gorm:"column:path"`
	Completed int    `gorm:"column:completed"`
}

// TableName specifies the table name for GORM
func (LegacyRecord) TableName() string {
	return LegacyTableName
}

// TempName is a local filename claimed during the current run
type TempName struct {
	DownloadedFilename string `gorm:"column:downloaded_filename"`
}

// TableName specifies the table name for GORM
func (TempName) TableName() string {
	return "downloads_temp"
}

// CacheEntry holds a previously fetched post/page payload
type CacheEntry struct {
	URLPath  string `gorm:"column:url_path;primaryKey"`
	PostData []byte `gorm:"column:post_data"`
}

// TableName specifies the table name for GORM
func (CacheEntry) TableName() string {
	return "coomeno"
}

// LegacyTableName is the name of the history table used by older releases
const LegacyTableName = "downloads"

// SchemaVersion tells which history layouts are present in the database file
type SchemaVersion string

const (
	SchemaCurrent SchemaVersion = "current" // Only the current tables
	SchemaLegacy  SchemaVersion = "legacy"  // Current tables plus the read-only legacy table
)

// HistoryStats summarizes the content of the store
type HistoryStats struct {
	Records       int64         `json:"records"`
	Completed     int64         `json:"completed"`
	Pending       int64         `json:"pending"`
	TempNames     int64         `json:"temp_names"`
	CacheEntries  int64         `json:"cache_entries"`
	FreePages     int64         `json:"free_pages"`
	PageSize      int64         `json:"page_size"`
	FileSize      int64         `json:"file_size"`
	SchemaVersion SchemaVersion `json:"schema_version"`
}
