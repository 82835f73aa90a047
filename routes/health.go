package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkedin-insights/services"
	"linkedin-insights/utils"
)

// ServiceInfo describes the running service on the banner and health routes.
type ServiceInfo struct {
	Name       string
	Version    string
	AIProvider string
}

func SetupHealthRoutes(router *gin.Engine, info ServiceInfo, pages *services.PageService, summaries *services.SummaryService) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":         info.Name,
			"version":         info.Version,
			"scraping_method": pages.ScraperName(),
			"ai_provider":     info.AIProvider,
			"api":             "/api/v1",
		})
	})

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		report := pages.Health(ctx)

		ai := gin.H{"provider": info.AIProvider, "model": summaries.Model()}
		if summaries.Model() == "" {
			ai["status"] = "unavailable"
		} else {
			ai["status"] = "configured"
		}

		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":          report.Status,
			"database":        report.Database,
			"cache":           report.Cache,
			"scraping_method": report.ScrapingMethod,
			"ai":              ai,
		})
	})
}
