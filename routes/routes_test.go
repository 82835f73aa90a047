package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"linkedin-insights/internal/auth"
	"linkedin-insights/internal/cache"
	"linkedin-insights/internal/database"
	"linkedin-insights/internal/queue"
	"linkedin-insights/internal/scraper"
	"linkedin-insights/models"
	"linkedin-insights/services"
	"linkedin-insights/utils"
)

const adminSecret = "0123456789abcdef0123456789abcdef"

type memStore struct {
	mu        sync.Mutex
	pages     map[string]models.Page
	posts     map[uuid.UUID][]models.Post
	employees map[uuid.UUID][]models.Employee
}

func newMemStore() *memStore {
	return &memStore{
		pages:     map[string]models.Page{},
		posts:     map[uuid.UUID][]models.Post{},
		employees: map[uuid.UUID][]models.Employee{},
	}
}

func (s *memStore) GetPageByPageID(_ context.Context, pageID string) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) SaveScrape(_ context.Context, res *models.ScrapeResult) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := res.Page
	if existing, ok := s.pages[page.PageID]; ok {
		page.ID = existing.ID
	} else {
		page.ID = uuid.New()
	}
	page.UpdatedAt = time.Now()
	s.pages[page.PageID] = page

	var posts []models.Post
	for _, sp := range res.Posts {
		sp.Post.ID, sp.Post.PageID = uuid.New(), page.ID
		posts = append(posts, sp.Post)
	}
	s.posts[page.ID] = posts
	s.employees[page.ID] = res.Employees
	return &page, nil
}

func (s *memStore) ListPages(_ context.Context, f models.PageFilter) ([]models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Page
	for _, p := range s.pages {
		if f.MinFollowers != nil && (p.FollowersCount == nil || *p.FollowersCount < *f.MinFollowers) {
			continue
		}
		if f.MaxFollowers != nil && (p.FollowersCount == nil || *p.FollowersCount > *f.MaxFollowers) {
			continue
		}
		if f.NameSearch != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.NameSearch)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) ListStalePages(context.Context, time.Time, int) ([]models.Page, error) {
	return nil, nil
}

func (s *memStore) ListPosts(_ context.Context, pageUUID uuid.UUID, _ models.Pagination) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts[pageUUID], nil
}

func (s *memStore) ListEmployees(_ context.Context, pageUUID uuid.UUID, _ models.Pagination) ([]models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.employees[pageUUID], nil
}

func (s *memStore) ListComments(context.Context, string, models.Pagination) ([]models.Comment, error) {
	return nil, database.ErrNotFound
}

func (s *memStore) PageCounts(_ context.Context, pageUUID uuid.UUID) (*models.PageCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.PageCounts{Posts: int64(len(s.posts[pageUUID])), Employees: int64(len(s.employees[pageUUID]))}, nil
}

func (s *memStore) Ping(context.Context) error { return nil }

type countingScraper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingScraper) Name() string { return "stub" }

func (s *countingScraper) Scrape(_ context.Context, pageID string, _ scraper.Options) (*models.ScrapeResult, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if pageID == "missing" {
		return nil, scraper.ErrPageNotFound
	}
	followers := map[string]int64{"small": 10000, "mid": 30000, "big": 90000}[pageID]
	return &models.ScrapeResult{
		Page: models.Page{PageID: pageID, Name: pageID + " inc", FollowersCount: &followers},
		Posts: []models.ScrapedPost{
			{Post: models.Post{PostID: pageID + "-1", LikesCount: 10}},
		},
		Employees: []models.Employee{{EmployeeID: "e1", Name: "Employee"}},
	}, nil
}

func (s *countingScraper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubQueue struct {
	queued []string
	err    error
}

func (q *stubQueue) EnqueueRefresh(_ context.Context, pageID, queueName string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.queued = append(q.queued, pageID+"@"+queueName)
	return "task-1", nil
}

type testServer struct {
	router  *gin.Engine
	scraper *countingScraper
}

func newTestServer(t *testing.T, refreshQueue RefreshQueue) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sc := &countingScraper{}
	pages := services.NewPageService(newMemStore(), cache.NewMemoryCache(time.Minute), sc, nil, nil, scraper.Options{MaxPosts: 15})
	summaries := services.NewSummaryService(pages, nil, false)

	r := gin.New()
	SetupHealthRoutes(r, ServiceInfo{Name: "linkedin-insights", AIProvider: "none"}, pages, summaries)
	SetupPageRoutes(r, PageHandlers{
		Pages:         pages,
		Summaries:     summaries,
		Exports:       services.NewExportService(pages),
		Refresh:       refreshQueue,
		ScrapeTimeout: time.Second,
	})
	SetupCacheRoutes(r, adminSecret, pages)

	return &testServer{router: r, scraper: sc}
}

func (s *testServer) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGetPageCachedWithinTTL(t *testing.T) {
	s := newTestServer(t, nil)

	first := s.do(t, http.MethodGet, "/api/v1/pages/mid", "")
	require.Equal(t, http.StatusOK, first.Code)
	second := s.do(t, http.MethodGet, "/api/v1/pages/mid", "")
	require.Equal(t, http.StatusOK, second.Code)

	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, s.scraper.Calls())

	var detail models.PageDetail
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &detail))
	require.Equal(t, "mid inc", detail.Name)
	require.Len(t, detail.Posts, 1)

	w := s.do(t, http.MethodGet, "/api/v1/pages/mid?include_posts=false&include_employees=false", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Empty(t, detail.Posts)
	require.Empty(t, detail.Employees)
}

func TestGetPageErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/v1/pages/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "not_found", decodeError(t, w).ErrorCode)

	w = s.do(t, http.MethodGet, "/api/v1/pages/mid?force_rescrape=perhaps", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/pages/bad%20id", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPagesFollowerRange(t *testing.T) {
	s := newTestServer(t, nil)
	for _, id := range []string{"small", "mid", "big"} {
		require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/pages/"+id, "").Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/pages?min_followers=20000&max_followers=40000", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "mid", list[0].PageID)

	w = s.do(t, http.MethodGet, "/api/v1/pages?name_search=BIG%20Inc", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "big", list[0].PageID)

	w = s.do(t, http.MethodGet, "/api/v1/pages?limit=101", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChildRoutesForUnknownPage(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{
		"/api/v1/pages/ghost/posts",
		"/api/v1/pages/ghost/employees",
		"/api/v1/stats/ghost",
		"/api/v1/posts/ghost-1/comments",
	} {
		w := s.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := s.do(t, http.MethodGet, "/api/v1/pages/ghost/posts?limit=26", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsAfterScrape(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/pages/big", "").Code)

	w := s.do(t, http.MethodGet, "/api/v1/stats/big", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.PageStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, int64(1), stats.Counts.Posts)
	require.Equal(t, int64(90000), *stats.CompanyInfo.Followers)
}

func TestCacheClearRequiresAdminAndForcesRescrape(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/pages/mid", "").Code)

	w := s.do(t, http.MethodPost, "/api/v1/cache/clear", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := auth.IssueAdminToken(adminSecret, "ops", time.Hour)
	require.NoError(t, err)
	w = s.do(t, http.MethodPost, "/api/v1/cache/clear", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"cache cleared","keys_removed":1}`, w.Body.String())

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/pages/mid", "").Code)
	require.Equal(t, 2, s.scraper.Calls())
}

func TestSummaryWithoutProvider(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/v1/pages/mid/summary", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/pages/mid", "").Code)
	w = s.do(t, http.MethodPost, "/api/v1/pages/mid/summary", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "ai_not_configured", decodeError(t, w).ErrorCode)
}

func TestRefreshRoute(t *testing.T) {
	q := &stubQueue{}
	s := newTestServer(t, q)

	w := s.do(t, http.MethodPost, "/api/v1/pages/Mid/refresh", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, []string{"mid@" + queue.QueueDefault}, q.queued)

	q.err = queue.ErrAlreadyQueued
	w = s.do(t, http.MethodPost, "/api/v1/pages/mid/refresh", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), "already_queued")

	inline := newTestServer(t, nil)
	w = inline.do(t, http.MethodPost, "/api/v1/pages/mid/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, inline.scraper.Calls())

	inline.scraper.mu.Lock()
	inline.scraper.err = errors.New("vendor down")
	inline.scraper.mu.Unlock()

	w = inline.do(t, http.MethodPost, "/api/v1/pages/mid/refresh", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "scrape_failed", decodeError(t, w).ErrorCode)

	w = inline.do(t, http.MethodGet, "/api/v1/pages/mid", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestExportRoute(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/pages/mid", "").Code)

	w := s.do(t, http.MethodGet, "/api/v1/pages/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	require.Contains(t, w.Body.String(), "mid inc")

	w = s.do(t, http.MethodGet, "/api/v1/pages/export?format=doc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status   string                   `json:"status"`
		Cache    services.ComponentHealth `json:"cache"`
		Scraping string                   `json:"scraping_method"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
	require.Equal(t, "memory", body.Cache.Backend)
	require.Equal(t, "stub", body.Scraping)

	w = s.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "linkedin-insights")
}
