package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
var Version = "dev"

// StoreStatus is the part of the history store the health endpoints inspect
type StoreStatus interface {
	IsInitialized() bool
	LegacyMode() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store StoreStatus
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store StoreStatus) *HealthHandler {
	return &HealthHandler{
		store: store,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   struct {
		Initialized bool `json:"initialized"`
		LegacyMode  bool `json:"legacy_mode"`
	} `json:"store"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Store.Initialized = h.store.IsInitialized()
	response.Store.LegacyMode = h.store.LegacyMode()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.store.IsInitialized() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "history store not initialized",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
