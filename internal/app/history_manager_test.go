package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ericstone57/dl-history/internal/domain"
	"github.com/ericstone57/dl-history/internal/infrastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestManager(t *testing.T) (*HistoryManager, *infrastructure.HistoryStore) {
	t.Helper()
	store, err := infrastructure.Open(domain.StoreConfig{
		DatabasePath: filepath.Join(t.TempDir(), "history.sqlite"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(store.Shutdown)
	require.NoError(t, store.Initialize())

	return NewHistoryManager(store, zap.NewNop()), store
}

func seedLegacy(path string) error {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.Exec("CREATE TABLE downloads (path TEXT, completed INTEGER)").Error; err != nil {
		return err
	}
	return db.Exec("INSERT INTO downloads VALUES ('/old.jpg', 1)").Error
}

func testAlbum() domain.Album {
	return domain.Album{
		Title: "alb",
		Media: []domain.MediaItem{
			{URL: "https://cdn.example.com/a/1.jpg?token=abc", Referer: "https://example.com/album/alb", Filename: "1.jpg"},
			{URL: "https://cdn.example.com/a/2.jpg", Referer: "https://example.com/album/alb", Filename: "2.jpg"},
		},
	}
}

func TestRecordAlbum(t *testing.T) {
	manager, store := setupTestManager(t)

	n, err := manager.RecordAlbum("example", "/album/alb", testAlbum())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Recording again submits the same records but changes nothing
	require.NoError(t, store.MarkComplete("/a/1.jpg", "1.jpg"))
	n, err = manager.RecordAlbum("example", "/album/alb", testAlbum())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(1), stats.Completed)

	skip, err := manager.ShouldSkip("example", "/a/1.jpg")
	require.NoError(t, err)
	assert.True(t, skip)

	skip, err = manager.ShouldSkip("example", "/a/2.jpg")
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestRecordDomain(t *testing.T) {
	manager, store := setupTestManager(t)

	other := domain.Album{Title: "other", Media: []domain.MediaItem{
		{URL: "https://cdn.example.com/b/3.jpg", Filename: "3.jpg"},
	}}
	n, err := manager.RecordDomain("example", "/albums", domain.DomainItems{
		Albums: map[string]domain.Album{"alb": testAlbum(), "other": other},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Records)
	assert.Equal(t, int64(3), stats.Pending)
}

func TestRecordCascade(t *testing.T) {
	manager, store := setupTestManager(t)

	cascade := domain.Cascade{Domains: map[string]domain.DomainItems{
		"example": {Albums: map[string]domain.Album{"alb": testAlbum()}},
		"empty":   {},
	}}
	n, err := manager.RecordCascade(cascade)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.MarkDownloadTarget("/a/1.jpg", "1.jpg", "/downloads", "1.jpg"))
	name, found, err := store.LookupDownloadedFilename("/a/1.jpg", "1.jpg")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1.jpg", name)

	n, err = manager.RecordCascade(domain.Cascade{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRecordAlbum_InvalidURL(t *testing.T) {
	manager, _ := setupTestManager(t)

	_, err := manager.RecordAlbum("example", "/alb", domain.Album{Media: []domain.MediaItem{{URL: "http://[::1", Filename: "x"}}})
	assert.Error(t, err)
}

func TestShouldSkip_Legacy(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.sqlite")
	seed, err := infrastructure.Open(domain.StoreConfig{DatabasePath: dbPath}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, seed.Initialize())
	require.NoError(t, seed.Close())

	// Simulate a file written by an older release
	require.NoError(t, seedLegacy(dbPath))

	store, err := infrastructure.Open(domain.StoreConfig{DatabasePath: dbPath}, zap.NewNop())
	require.NoError(t, err)
	defer store.Shutdown()
	require.NoError(t, store.Initialize())
	manager := NewHistoryManager(store, zap.NewNop())

	skip, err := manager.ShouldSkip("example", "/old.jpg")
	require.NoError(t, err)
	assert.True(t, skip)

	skip, err = manager.ShouldSkip("example", "/new.jpg")
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestAllocateFilename(t *testing.T) {
	manager, store := setupTestManager(t)
	dir := t.TempDir()

	name, err := manager.AllocateFilename(dir, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", name)

	// Claimed earlier in the run
	name, err = manager.AllocateFilename(dir, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "a (1).jpg", name)

	// Used by a history record
	require.NoError(t, store.InsertRecord(domain.NewMediaRecord("example", "/b", "", "", "b.jpg")))
	require.NoError(t, store.MarkDownloadTarget("/b", "b.jpg", dir, "b.jpg"))
	name, err = manager.AllocateFilename(dir, "b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "b (1).jpg", name)

	// Already on disk
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c"), nil, 0644))
	name, err = manager.AllocateFilename(dir, "c")
	require.NoError(t, err)
	assert.Equal(t, "c (1)", name)

	names, err := store.ListClaimedTempNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.jpg", "a (1).jpg", "b (1).jpg", "c (1)"}, names)

	_, err = manager.AllocateFilename(dir, "")
	assert.Error(t, err)
}

func TestAllocateFilename_Concurrent(t *testing.T) {
	manager, _ := setupTestManager(t)

	var (
		mu    sync.Mutex
		names = make(map[string]int)
		g     errgroup.Group
	)
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			name, err := manager.AllocateFilename("", "same.mp4")
			if err != nil {
				return err
			}
			mu.Lock()
			names[name]++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, names, 20)
	for name, count := range names {
		assert.Equal(t, 1, count, name)
	}
}

type failingRepo struct {
	domain.HistoryRepository
	err error
}

func (f *failingRepo) InsertBatch([]domain.MediaRecord) error { return f.err }
func (f *failingRepo) IsComplete(string, string) (bool, error) { return false, f.err }
func (f *failingRepo) ListClaimedTempNames() ([]string, error) { return nil, f.err }
func (f *failingRepo) FilenameAlreadyUsed(string) (bool, error) { return false, f.err }
func (f *failingRepo) ClaimTempName(string) error { return f.err }
func (f *failingRepo) IsCompleteLegacy(string) (bool, error) { return false, f.err }
func (f *failingRepo) LegacyMode() bool { return true }

func TestHistoryManager_PropagatesStoreErrors(t *testing.T) {
	manager := NewHistoryManager(&failingRepo{err: domain.ErrStorageUnavailable}, nil)

	_, err := manager.RecordAlbum("example", "/alb", testAlbum())
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))

	_, err = manager.ShouldSkip("example", "/a")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = manager.AllocateFilename("", "a.jpg")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
