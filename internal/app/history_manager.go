package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ericstone57/dl-history/internal/domain"
	"go.uber.org/zap"
)

// maxFilenameAttempts bounds the search for a free local filename
const maxFilenameAttempts = 10000

// HistoryManager records scrape results in the download history and decides
// which files still need downloading
type HistoryManager struct {
	repo   domain.HistoryRepository
	logger *zap.Logger

	// Serializes AllocateFilename between workers
	allocMu sync.Mutex
}

// NewHistoryManager creates a new history manager
func NewHistoryManager(repo domain.HistoryRepository, log *zap.Logger) *HistoryManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryManager{
		repo:   repo,
		logger: log,
	}
}

// RecordAlbum inserts a pending record for every file of album and returns how
// many records were submitted. Files already in the history are left untouched.
func (m *HistoryManager) RecordAlbum(domainName, albumPath string, album domain.Album) (int, error) {
	records, err := albumRecords(domainName, albumPath, album)
	if err != nil {
		return 0, err
	}
	if err := m.repo.InsertBatch(records); err != nil {
		return 0, fmt.Errorf("failed to record album %s: %w", album.Title, err)
	}

	m.logger.Debug("Album recorded",
		zap.String("domain", domainName),
		zap.String("album", album.Title),
		zap.Int("records", len(records)))

	return len(records), nil
}

// RecordDomain records every album scraped from one site
func (m *HistoryManager) RecordDomain(domainName, albumPath string, items domain.DomainItems) (int, error) {
	var records []domain.MediaRecord
	for _, album := range items.Albums {
		recs, err := albumRecords(domainName, albumPath, album)
		if err != nil {
			return 0, err
		}
		records = append(records, recs...)
	}
	if err := m.repo.InsertBatch(records); err != nil {
		return 0, fmt.Errorf("failed to record domain %s: %w", domainName, err)
	}

	m.logger.Debug("Domain recorded",
		zap.String("domain", domainName),
		zap.Int("records", len(records)))

	return len(records), nil
}

// RecordCascade records a whole run. Each file's album path is the path of the
// page it was found on.
func (m *HistoryManager) RecordCascade(cascade domain.Cascade) (int, error) {
	var records []domain.MediaRecord
	for domainName, items := range cascade.Domains {
		for _, album := range items.Albums {
			for _, item := range album.Media {
				urlPath, err := domain.DBPath(item.URL)
				if err != nil {
					return 0, err
				}
				refererPath, err := domain.DBPath(item.Referer)
				if err != nil {
					return 0, err
				}
				records = append(records, domain.NewMediaRecord(domainName, urlPath, refererPath, item.Referer, item.Filename))
			}
		}
	}
	if err := m.repo.InsertBatch(records); err != nil {
		return 0, fmt.Errorf("failed to record cascade: %w", err)
	}

	m.logger.Info("Cascade recorded",
		zap.Int("domains", len(cascade.Domains)),
		zap.Int("records", len(records)))

	return len(records), nil
}

func albumRecords(domainName, albumPath string, album domain.Album) ([]domain.MediaRecord, error) {
	records := make([]domain.MediaRecord, 0, len(album.Media))
	for _, item := range album.Media {
		urlPath, err := domain.DBPath(item.URL)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.NewMediaRecord(domainName, urlPath, albumPath, item.Referer, item.Filename))
	}
	return records, nil
}

// ShouldSkip reports whether a file was already downloaded by this or an
// older release
func (m *HistoryManager) ShouldSkip(domainName, urlPath string) (bool, error) {
	done, err := m.repo.IsComplete(domainName, urlPath)
	if err != nil {
		return false, err
	}
	if done {
		return true, nil
	}
	if !m.repo.LegacyMode() {
		return false, nil
	}
	return m.repo.IsCompleteLegacy(urlPath)
}

// AllocateFilename picks a local name for filename inside dir and claims it for
// the current run. Candidates are filename, then "stem (1).ext", "stem (2).ext"
// and so on; a candidate is taken when it exists in dir, was claimed earlier in
// the run, or belongs to a history record.
func (m *HistoryManager) AllocateFilename(dir, filename string) (string, error) {
	if filename == "" {
		return "", errors.New("filename is empty")
	}

	m.allocMu.Lock()
	defer m.allocMu.Unlock()

	claimed, err := m.repo.ListClaimedTempNames()
	if err != nil {
		return "", err
	}
	inRun := make(map[string]struct{}, len(claimed))
	for _, name := range claimed {
		inRun[name] = struct{}{}
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	for i := 0; i < maxFilenameAttempts; i++ {
		candidate := filename
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}

		if _, ok := inRun[candidate]; ok {
			continue
		}
		if dir != "" {
			if _, err := os.Stat(filepath.Join(dir, candidate)); err == nil {
				continue
			}
		}
		used, err := m.repo.FilenameAlreadyUsed(candidate)
		if err != nil {
			return "", err
		}
		if used {
			continue
		}

		if err := m.repo.ClaimTempName(candidate); err != nil {
			return "", err
		}
		if candidate != filename {
			m.logger.Debug("Filename taken, renamed",
				zap.String("filename", filename),
				zap.String("allocated", candidate))
		}
		return candidate, nil
	}

	return "", fmt.Errorf("no free filename for %s after %d attempts", filename, maxFilenameAttempts)
}
