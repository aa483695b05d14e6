package domain

// MediaRepository defines the interface for download history persistence
type MediaRepository interface {
	// InsertRecord inserts a record unless its key already exists
	InsertRecord(record MediaRecord) error

	// InsertBatch inserts every record in one transaction, skipping existing keys
	InsertBatch(records []MediaRecord) error

	// MarkDownloadTarget sets the local directory and filename before a download starts
	MarkDownloadTarget(urlPath, originalFilename, downloadPath, downloadFilename string) error

	// MarkComplete flags the record as downloaded
	MarkComplete(urlPath, originalFilename string) error

	// LookupDownloadedFilename returns the local filename chosen for the record
	LookupDownloadedFilename(urlPath, originalFilename string) (string, bool, error)

	// IsComplete checks whether a file has completed given its domain and url path
	IsComplete(domain, urlPath string) (bool, error)

	// IsCompleteLegacy checks the legacy history table for a completed path
	IsCompleteLegacy(urlPath string) (bool, error)

	// FilenameAlreadyUsed checks whether any record was downloaded under filename
	FilenameAlreadyUsed(filename string) (bool, error)
}

// TempNameRepository defines the interface for filenames claimed during a run
type TempNameRepository interface {
	// ClaimTempName records filename as in use for the current run
	ClaimTempName(filename string) error

	// ListClaimedTempNames returns every filename claimed during the current run
	ListClaimedTempNames() ([]string, error)
}

// ContentCacheRepository defines the interface for the post payload cache
type ContentCacheRepository interface {
	// PutCache stores payload unless urlPath is already cached
	PutCache(urlPath string, payload []byte) error

	// GetCache returns the cached payload for urlPath
	GetCache(urlPath string) ([]byte, bool, error)
}

// HistoryRepository is the full set of operations offered by the history store
type HistoryRepository interface {
	MediaRepository
	TempNameRepository
	ContentCacheRepository

	// Stats returns a summary of the stored data
	Stats() (*HistoryStats, error)

	// LegacyMode reports whether the legacy history table was found
	LegacyMode() bool
}
