package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"linkedin-insights/internal/cache"
	"linkedin-insights/internal/database"
	"linkedin-insights/internal/events"
	"linkedin-insights/internal/logger"
	"linkedin-insights/internal/scraper"
	"linkedin-insights/internal/telemetry"
	"linkedin-insights/models"
)

// Read-back sizes for a page detail.
const (
	DetailPosts     = 15
	DetailEmployees = 50
)

var pageIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,149}$`)

// PageStore is the subset of database.Store the page service needs.
type PageStore interface {
	GetPageByPageID(ctx context.Context, pageID string) (*models.Page, error)
	SaveScrape(ctx context.Context, res *models.ScrapeResult) (*models.Page, error)
	ListPages(ctx context.Context, f models.PageFilter) ([]models.Page, error)
	ListStalePages(ctx context.Context, before time.Time, limit int) ([]models.Page, error)
	ListPosts(ctx context.Context, pageUUID uuid.UUID, p models.Pagination) ([]models.Post, error)
	ListEmployees(ctx context.Context, pageUUID uuid.UUID, p models.Pagination) ([]models.Employee, error)
	ListComments(ctx context.Context, postID string, p models.Pagination) ([]models.Comment, error)
	PageCounts(ctx context.Context, pageUUID uuid.UUID) (*models.PageCounts, error)
	Ping(ctx context.Context) error
}

// PageCache is implemented by cache.RedisCache and cache.MemoryCache.
type PageCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Clear(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Backend() string
}

type GetPageOptions struct {
	IncludePosts     bool
	IncludeEmployees bool
	ForceRescrape    bool
}

type PageService struct {
	store     PageStore
	cache     PageCache
	scraper   scraper.Scraper
	publisher events.Publisher
	metrics   *telemetry.Metrics
	opts      scraper.Options
	group     singleflight.Group
	now       func() time.Time
}

func NewPageService(store PageStore, pageCache PageCache, s scraper.Scraper, publisher events.Publisher, metrics *telemetry.Metrics, opts scraper.Options) *PageService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PageService{
		store:     store,
		cache:     pageCache,
		scraper:   s,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		now:       time.Now,
	}
}

// ScraperName reports the configured scraping method.
func (s *PageService) ScraperName() string {
	return s.scraper.Name()
}

// NormalizePageID lowercases and trims a company slug and rejects anything that
// cannot be a linkedin.com/company/<slug> path segment.
func NormalizePageID(raw string) (string, error) {
	id := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "/"))
	if !pageIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPageID, raw)
	}
	return id, nil
}

// GetPage serves a page detail from the cache, or scrapes, stores and caches it.
// When the scrape fails for a page that is already stored, the stored detail is served.
func (s *PageService) GetPage(ctx context.Context, rawID string, opts GetPageOptions) (*models.PageDetail, error) {
	out, err := s.fetchPage(ctx, rawID, opts)
	if err != nil {
		return nil, err
	}
	return out.detail, nil
}

// Refresh re-scrapes a page regardless of the cache and stores the result.
// If the scrape fails but the page is stored, the stored detail is returned
// together with an error wrapping ErrStaleServed.
func (s *PageService) Refresh(ctx context.Context, rawID string) (*models.PageDetail, error) {
	out, err := s.fetchPage(ctx, rawID, GetPageOptions{IncludePosts: true, IncludeEmployees: true, ForceRescrape: true})
	if err != nil {
		return nil, err
	}
	if out.scrapeErr != nil {
		return out.detail, fmt.Errorf("%w: %s: %v", ErrStaleServed, out.detail.PageID, out.scrapeErr)
	}
	return out.detail, nil
}

// fetchResult is a page detail plus, when the detail is the stored copy, the
// scrape error that made it so.
type fetchResult struct {
	detail    *models.PageDetail
	scrapeErr error
}

func (s *PageService) fetchPage(ctx context.Context, rawID string, opts GetPageOptions) (*fetchResult, error) {
	pageID, err := NormalizePageID(rawID)
	if err != nil {
		return nil, err
	}

	if !opts.ForceRescrape {
		var cached models.PageDetail
		hit, err := s.cache.Get(ctx, cache.PageKey(pageID), &cached)
		if err != nil {
			logger.Warn("Cache lookup failed", "page_id", pageID, "error", err)
		}
		s.metrics.RecordCacheLookup(ctx, hit)
		if hit {
			return &fetchResult{detail: shapeDetail(&cached, opts)}, nil
		}
	}

	// The shared scrape outlives any single caller, so it runs detached from the
	// caller's cancellation under its own timeout.
	ch := s.group.DoChan(pageID, func() (any, error) {
		scrapeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.scrapeTimeout())
		defer cancel()
		return s.scrapeAndStore(scrapeCtx, pageID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("Shared in-flight scrape", "page_id", pageID)
		}
		out := res.Val.(*fetchResult)
		return &fetchResult{detail: shapeDetail(out.detail, opts), scrapeErr: out.scrapeErr}, nil
	}
}

func (s *PageService) scrapeTimeout() time.Duration {
	if s.opts.Timeout > 0 {
		return s.opts.Timeout
	}
	return scraper.DefaultTimeout
}

// RefreshStale re-scrapes up to limit pages last updated before the cutoff.
// Failures are logged and counted; they do not stop the batch.
func (s *PageService) RefreshStale(ctx context.Context, before time.Time, limit int) (refreshed, failed int, err error) {
	pages, err := s.StalePageIDs(ctx, before, limit)
	if err != nil {
		return 0, 0, err
	}

	for _, pageID := range pages {
		if ctx.Err() != nil {
			return refreshed, failed, ctx.Err()
		}
		if _, err := s.Refresh(ctx, pageID); err != nil {
			failed++
			logger.Warn("Stale page refresh failed", "page_id", pageID, "error", err)
			continue
		}
		refreshed++
	}

	return refreshed, failed, nil
}

// StalePageIDs lists page ids whose stored data is older than the cutoff.
func (s *PageService) StalePageIDs(ctx context.Context, before time.Time, limit int) ([]string, error) {
	pages, err := s.store.ListStalePages(ctx, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pages: %w", err)
	}

	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.PageID)
	}
	return ids, nil
}

func (s *PageService) scrapeAndStore(ctx context.Context, pageID string) (*fetchResult, error) {
	start := s.now()
	res, err := s.scraper.Scrape(ctx, pageID, s.opts)
	s.metrics.RecordScrape(ctx, s.scraper.Name(), err == nil, s.now().Sub(start).Seconds())

	if err != nil {
		stored, loadErr := s.loadDetail(ctx, pageID)
		if loadErr == nil {
			logger.Warn("Scrape failed, serving stored page",
				"page_id", pageID,
				"method", s.scraper.Name(),
				"error", err,
			)
			return &fetchResult{detail: stored, scrapeErr: err}, nil
		}
		if errors.Is(err, scraper.ErrPageNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrScrapeFailed, s.scraper.Name(), err)
	}

	res.Page.PageID = pageID
	if res.Source == "" {
		res.Source = s.scraper.Name()
	}

	page, err := s.store.SaveScrape(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("save scrape of %s: %w", pageID, err)
	}

	logger.Info("Stored scraped page",
		"page_id", pageID,
		"source", res.Source,
		"posts", len(res.Posts),
		"comments", res.CommentCount(),
		"employees", len(res.Employees),
	)

	detail, err := s.detailFor(ctx, page)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.PageKey(pageID), detail); err != nil {
		logger.Warn("Cache store failed", "page_id", pageID, "error", err)
	}

	err = s.publisher.PublishPageScraped(ctx, events.PageScraped{
		Type:      events.TypePageScraped,
		PageID:    pageID,
		Name:      page.Name,
		Source:    res.Source,
		Posts:     len(res.Posts),
		Employees: len(res.Employees),
		Comments:  res.CommentCount(),
		ScrapedAt: s.now().UTC(),
	})
	if err != nil {
		logger.Warn("Publishing scrape event failed", "page_id", pageID, "error", err)
	}

	return &fetchResult{detail: detail}, nil
}

func (s *PageService) loadDetail(ctx context.Context, pageID string) (*models.PageDetail, error) {
	page, err := s.lookupPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return s.detailFor(ctx, page)
}

func (s *PageService) detailFor(ctx context.Context, page *models.Page) (*models.PageDetail, error) {
	posts, err := s.store.ListPosts(ctx, page.ID, models.Pagination{Limit: DetailPosts})
	if err != nil {
		return nil, fmt.Errorf("load posts of %s: %w", page.PageID, err)
	}
	employees, err := s.store.ListEmployees(ctx, page.ID, models.Pagination{Limit: DetailEmployees})
	if err != nil {
		return nil, fmt.Errorf("load employees of %s: %w", page.PageID, err)
	}

	if posts == nil {
		posts = []models.Post{}
	}
	if employees == nil {
		employees = []models.Employee{}
	}
	return &models.PageDetail{Page: *page, Posts: posts, Employees: employees}, nil
}

// lookupPage maps a missing row to ErrPageNotFound.
func (s *PageService) lookupPage(ctx context.Context, pageID string) (*models.Page, error) {
	page, err := s.store.GetPageByPageID(ctx, pageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	if err != nil {
		return nil, fmt.Errorf("load page %s: %w", pageID, err)
	}
	return page, nil
}

// shapeDetail copies d, emptying the sections the caller did not ask for.
// The copy keeps a shared singleflight result untouched.
func shapeDetail(d *models.PageDetail, opts GetPageOptions) *models.PageDetail {
	out := *d
	if !opts.IncludePosts || out.Posts == nil {
		out.Posts = []models.Post{}
	}
	if !opts.IncludeEmployees || out.Employees == nil {
		out.Employees = []models.Employee{}
	}
	return &out
}

// ListPages returns stored pages matching the filter.
func (s *PageService) ListPages(ctx context.Context, f models.PageFilter) ([]models.Page, error) {
	if err := ValidatePageFilter(f); err != nil {
		return nil, err
	}

	pages, err := s.store.ListPages(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if pages == nil {
		pages = []models.Page{}
	}
	return pages, nil
}

// ValidatePageFilter rejects negative bounds and inverted follower ranges.
func ValidatePageFilter(f models.PageFilter) error {
	if f.Skip < 0 || f.Limit < 1 {
		return fmt.Errorf("%w: skip must be >= 0 and limit >= 1", ErrInvalidFilter)
	}
	if f.MinFollowers != nil && *f.MinFollowers < 0 {
		return fmt.Errorf("%w: min_followers must be >= 0", ErrInvalidFilter)
	}
	if f.MaxFollowers != nil && *f.MaxFollowers < 0 {
		return fmt.Errorf("%w: max_followers must be >= 0", ErrInvalidFilter)
	}
	if f.MinFollowers != nil && f.MaxFollowers != nil && *f.MinFollowers > *f.MaxFollowers {
		return fmt.Errorf("%w: min_followers is greater than max_followers", ErrInvalidFilter)
	}
	return nil
}

func (s *PageService) ListPosts(ctx context.Context, rawID string, p models.Pagination) ([]models.Post, error) {
	page, err := s.storedPage(ctx, rawID)
	if err != nil {
		return nil, err
	}

	posts, err := s.store.ListPosts(ctx, page.ID, p)
	if err != nil {
		return nil, fmt.Errorf("list posts of %s: %w", page.PageID, err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (s *PageService) ListEmployees(ctx context.Context, rawID string, p models.Pagination) ([]models.Employee, error) {
	page, err := s.storedPage(ctx, rawID)
	if err != nil {
		return nil, err
	}

	employees, err := s.store.ListEmployees(ctx, page.ID, p)
	if err != nil {
		return nil, fmt.Errorf("list employees of %s: %w", page.PageID, err)
	}
	if employees == nil {
		employees = []models.Employee{}
	}
	return employees, nil
}

func (s *PageService) ListComments(ctx context.Context, postID string, p models.Pagination) ([]models.Comment, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, fmt.Errorf("%w: empty post id", ErrPostNotFound)
	}

	comments, err := s.store.ListComments(ctx, postID, p)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	if err != nil {
		return nil, fmt.Errorf("list comments of %s: %w", postID, err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// Stats reports stored child row counts and headline company figures.
func (s *PageService) Stats(ctx context.Context, rawID string) (*models.PageStats, error) {
	page, err := s.storedPage(ctx, rawID)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.PageCounts(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("count rows of %s: %w", page.PageID, err)
	}

	return &models.PageStats{
		PageID:     page.PageID,
		PageName:   page.Name,
		InDatabase: true,
		Counts:     *counts,
		CompanyInfo: models.CompanyInfo{
			Followers:      page.FollowersCount,
			EmployeesCount: page.EmployeesCount,
			Industry:       page.Industry,
		},
		UpdatedAt: page.UpdatedAt,
	}, nil
}

// StoredDetail loads a stored page with its recent posts and employees without scraping.
func (s *PageService) StoredDetail(ctx context.Context, rawID string, posts, employees int) (*models.PageDetail, error) {
	page, err := s.storedPage(ctx, rawID)
	if err != nil {
		return nil, err
	}

	postRows, err := s.store.ListPosts(ctx, page.ID, models.Pagination{Limit: posts})
	if err != nil {
		return nil, fmt.Errorf("load posts of %s: %w", page.PageID, err)
	}
	employeeRows, err := s.store.ListEmployees(ctx, page.ID, models.Pagination{Limit: employees})
	if err != nil {
		return nil, fmt.Errorf("load employees of %s: %w", page.PageID, err)
	}
	return &models.PageDetail{Page: *page, Posts: postRows, Employees: employeeRows}, nil
}

func (s *PageService) storedPage(ctx context.Context, rawID string) (*models.Page, error) {
	pageID, err := NormalizePageID(rawID)
	if err != nil {
		return nil, err
	}
	return s.lookupPage(ctx, pageID)
}

// ClearCache drops every cached entry and returns how many were removed.
func (s *PageService) ClearCache(ctx context.Context) (int, error) {
	removed, err := s.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear %s cache: %w", s.cache.Backend(), err)
	}
	logger.Info("Cache cleared", "backend", s.cache.Backend(), "removed", removed)
	return removed, nil
}

type ComponentHealth struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthReport struct {
	Status         string          `json:"status"`
	Database       ComponentHealth `json:"database"`
	Cache          ComponentHealth `json:"cache"`
	ScrapingMethod string          `json:"scraping_method"`
}

// Healthy reports whether the database is reachable. A cache outage only degrades.
func (h HealthReport) Healthy() bool {
	return h.Database.Status == "up"
}

func (s *PageService) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:         "healthy",
		Database:       ComponentHealth{Status: "up", Backend: "postgres"},
		Cache:          ComponentHealth{Status: "up", Backend: s.cache.Backend()},
		ScrapingMethod: s.scraper.Name(),
	}

	if err := s.store.Ping(ctx); err != nil {
		report.Status = "unhealthy"
		report.Database.Status = "down"
		report.Database.Error = err.Error()
	}

	if err := s.cache.Ping(ctx); err != nil {
		report.Cache.Status = "down"
		report.Cache.Error = err.Error()
		if report.Status == "healthy" {
			report.Status = "degraded"
		}
	}

	return report
}
