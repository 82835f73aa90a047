package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkedin-insights/internal/queue"
	"linkedin-insights/services"
	"linkedin-insights/utils"
)

// RefreshQueue hands refreshes to the background worker. It is implemented by queue.Enqueuer.
type RefreshQueue interface {
	EnqueueRefresh(ctx context.Context, pageID, queueName string) (string, error)
}

// PageHandlers bundles what the page routes need.
type PageHandlers struct {
	Pages     *services.PageService
	Summaries *services.SummaryService
	Exports   *services.ExportService
	Refresh   RefreshQueue // nil refreshes inline

	// ScrapeTimeout is the configured vendor budget for scrape-backed requests.
	ScrapeTimeout time.Duration
}

func SetupPageRoutes(router *gin.Engine, h PageHandlers) {
	api := router.Group("/api/v1")

	api.GET("/pages", handleListPages(h.Pages))
	api.GET("/pages/export", handleExportPages(h.Exports))
	api.GET("/pages/:page_id", handleGetPage(h.Pages, h.ScrapeTimeout))
	api.GET("/pages/:page_id/posts", handleListPosts(h.Pages))
	api.GET("/pages/:page_id/employees", handleListEmployees(h.Pages))
	api.POST("/pages/:page_id/summary", handleSummary(h.Summaries))
	api.POST("/pages/:page_id/refresh", handleRefresh(h.Pages, h.Refresh, h.ScrapeTimeout))
	api.GET("/posts/:post_id/comments", handleListComments(h.Pages))
	api.GET("/stats/:page_id", handleStats(h.Pages))
}

func handleGetPage(pages *services.PageService, scrapeTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, err := getPageOptions(c)
		if err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}

		ctx, cancel := utils.WithScrapeTimeout(c.Request.Context(), scrapeTimeout)
		defer cancel()

		detail, err := pages.GetPage(ctx, c.Param("page_id"), opts)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, detail)
	}
}

func getPageOptions(c *gin.Context) (services.GetPageOptions, error) {
	var opts services.GetPageOptions
	var err error

	if opts.IncludePosts, err = utils.QueryBool(c, "include_posts", true); err != nil {
		return opts, err
	}
	if opts.IncludeEmployees, err = utils.QueryBool(c, "include_employees", true); err != nil {
		return opts, err
	}
	if opts.ForceRescrape, err = utils.QueryBool(c, "force_rescrape", false); err != nil {
		return opts, err
	}
	return opts, nil
}

func handleListPages(pages *services.PageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := utils.ParsePageFilter(c, utils.PagesBounds)
		if err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		list, err := pages.ListPages(ctx, filter)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

func handleExportPages(exports *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := utils.ParsePageFilter(c, utils.PageBounds{DefaultLimit: services.MaxExportRows, MaxLimit: services.MaxExportRows})
		if err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		file, err := exports.ExportPages(ctx, filter, c.DefaultQuery("format", services.ExportXLSX))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
		c.Header("X-Record-Count", fmt.Sprint(file.RecordCount))
		c.Data(http.StatusOK, file.ContentType, file.Data)
	}
}

func handleListPosts(pages *services.PageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		window, err := utils.ParsePagination(c, utils.PostsBounds)
		if err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		posts, err := pages.ListPosts(ctx, c.Param("page_id"), window)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, posts)
	}
}

func handleListEmployees(pages *services.PageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		window, err := utils.ParsePagination(c, utils.EmployeesBounds)
		if err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		employees, err := pages.ListEmployees(ctx, c.Param("page_id"), window)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, employees)
	}
}

func handleListComments(pages *services.PageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		window, err := utils.ParsePagination(c, utils.CommentsBounds)
		if err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		comments, err := pages.ListComments(ctx, c.Param("post_id"), window)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, comments)
	}
}

func handleSummary(summaries *services.SummaryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		summary, err := summaries.Summarize(ctx, c.Param("page_id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

func handleRefresh(pages *services.PageService, refreshQueue RefreshQueue, scrapeTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		pageID, err := services.NormalizePageID(c.Param("page_id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		if refreshQueue == nil {
			ctx, cancel := utils.WithScrapeTimeout(c.Request.Context(), scrapeTimeout)
			defer cancel()

			detail, err := pages.Refresh(ctx, pageID)
			if err != nil {
				utils.RespondWithServiceError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "refreshed", "page": detail})
			return
		}

		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		taskID, err := refreshQueue.EnqueueRefresh(ctx, pageID, queue.QueueDefault)
		if errors.Is(err, queue.ErrAlreadyQueued) {
			c.JSON(http.StatusAccepted, gin.H{"status": "already_queued", "page_id": pageID})
			return
		}
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "page_id": pageID, "task_id": taskID})
	}
}

func handleStats(pages *services.PageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		stats, err := pages.Stats(ctx, c.Param("page_id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}
