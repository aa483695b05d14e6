package domain

import "errors"

// Store errors, matched with errors.Is. A lookup that finds nothing is not an
// error: lookups report it through their boolean result.
var (
	// ErrStorageUnavailable is returned when the database file cannot be
	// opened, created or written. Fatal at startup.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchemaMismatch is returned when the file holds tables whose layout is
	// neither the current schema nor the legacy one.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrNotInitialized is returned by operations issued before Initialize.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize on the same handle.
	ErrAlreadyInitialized = errors.New("store already initialized")

	// ErrStoreClosed is returned by operations issued after Close.
	ErrStoreClosed = errors.New("store closed")
)
