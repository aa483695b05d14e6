package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ericstone57/dl-history/api/handlers"
	"github.com/ericstone57/dl-history/api/middleware"
	"github.com/ericstone57/dl-history/internal/domain"
)

// Store is what the inspection API needs from the history store
type Store interface {
	domain.HistoryRepository
	handlers.StoreStatus
	Path() string
}

// SetupRouter sets up the read-only HTTP router. Log endpoints are only
// registered when logsDir is set.
func SetupRouter(store Store, log *zap.Logger, logsDir string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	log = log.With(zap.String("component", "api"), zap.String("database", store.Path()))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	healthHandler := handlers.NewHealthHandler(store)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		historyHandler := handlers.NewHistoryHandler(store, log)
		history := v1.Group("/history")
		{
			history.GET("/stats", historyHandler.GetStats)
			history.GET("/lookup", historyHandler.Lookup)
			history.GET("/complete", historyHandler.Complete)
			history.GET("/filename/:name", historyHandler.FilenameUsed)
			history.GET("/temp", historyHandler.TempNames)
		}
		v1.GET("/cache", historyHandler.GetCache)

		if logsDir != "" {
			logHandler := handlers.NewLogHandler(logsDir)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
