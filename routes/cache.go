package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkedin-insights/internal/logger"
	"linkedin-insights/middleware"
	"linkedin-insights/services"
	"linkedin-insights/utils"
)

func SetupCacheRoutes(router *gin.Engine, adminSecret string, pages *services.PageService) {
	admin := router.Group("/api/v1/cache")
	admin.Use(middleware.RequireAdmin(adminSecret))

	admin.POST("/clear", handleClearCache(pages))
}

func handleClearCache(pages *services.PageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		removed, err := pages.ClearCache(ctx)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		logger.Info("Cache cleared by admin", "subject", middleware.GetSubject(c), "removed", removed)
		c.JSON(http.StatusOK, gin.H{"message": "cache cleared", "keys_removed": removed})
	}
}
