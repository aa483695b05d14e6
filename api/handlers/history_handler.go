package handlers

import (
	"errors"
	"net/http"

	"github.com/ericstone57/dl-history/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HistoryHandler serves read-only views of the download history
type HistoryHandler struct {
	repo   domain.HistoryRepository
	logger *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(repo domain.HistoryRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		repo:   repo,
		logger: logger,
	}
}

// GetStats handles GET /api/v1/history/stats
func (h *HistoryHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.Stats()
	if err != nil {
		h.fail(c, "Failed to get history stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Lookup handles GET /api/v1/history/lookup?url_path=&filename=
func (h *HistoryHandler) Lookup(c *gin.Context) {
	urlPath := c.Query("url_path")
	filename := c.Query("filename")
	if urlPath == "" || filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url_path and filename are required"})
		return
	}

	name, found, err := h.repo.LookupDownloadedFilename(urlPath, filename)
	if err != nil {
		h.fail(c, "Failed to look up downloaded filename", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"found":             found,
		"download_filename": name,
	})
}

// Complete handles GET /api/v1/history/complete?domain=&url_path=
func (h *HistoryHandler) Complete(c *gin.Context) {
	domainName := c.Query("domain")
	urlPath := c.Query("url_path")
	if domainName == "" || urlPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain and url_path are required"})
		return
	}

	completed, err := h.repo.IsComplete(domainName, urlPath)
	if err != nil {
		h.fail(c, "Failed to check completion", err)
		return
	}
	legacy, err := h.repo.IsCompleteLegacy(urlPath)
	if err != nil {
		h.fail(c, "Failed to check legacy completion", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completed": completed,
		"legacy":    legacy,
	})
}

// FilenameUsed handles GET /api/v1/history/filename/:name
func (h *HistoryHandler) FilenameUsed(c *gin.Context) {
	used, err := h.repo.FilenameAlreadyUsed(c.Param("name"))
	if err != nil {
		h.fail(c, "Failed to check filename", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"used": used})
}

// TempNames handles GET /api/v1/history/temp
func (h *HistoryHandler) TempNames(c *gin.Context) {
	names, err := h.repo.ListClaimedTempNames()
	if err != nil {
		h.fail(c, "Failed to list temp names", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"names": names})
}

// GetCache handles GET /api/v1/cache?url_path=
func (h *HistoryHandler) GetCache(c *gin.Context) {
	urlPath := c.Query("url_path")
	if urlPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url_path is required"})
		return
	}

	payload, ok, err := h.repo.GetCache(urlPath)
	if err != nil {
		h.fail(c, "Failed to read cache", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not cached"})
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", payload)
}

// fail maps store errors to a response. A store that is not open yet or
// already closed is reported as unavailable.
func (h *HistoryHandler) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))

	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrStoreClosed) || errors.Is(err, domain.ErrNotInitialized) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
