package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"linkedin-insights/internal/cache"
	"linkedin-insights/internal/database"
	"linkedin-insights/internal/events"
	"linkedin-insights/internal/scraper"
	"linkedin-insights/models"
)

type fakeStore struct {
	mu        sync.Mutex
	pages     map[string]*models.Page
	posts     map[uuid.UUID][]models.Post
	employees map[uuid.UUID][]models.Employee
	comments  map[string][]models.Comment
	saves     int
	pingErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pages:     map[string]*models.Page{},
		posts:     map[uuid.UUID][]models.Post{},
		employees: map[uuid.UUID][]models.Employee{},
		comments:  map[string][]models.Comment{},
	}
}

func (s *fakeStore) GetPageByPageID(_ context.Context, pageID string) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SaveScrape(_ context.Context, res *models.ScrapeResult) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++

	now := time.Now().UTC()
	page := res.Page
	if existing, ok := s.pages[page.PageID]; ok {
		page.ID = existing.ID
		page.CreatedAt = existing.CreatedAt
	} else {
		page.ID = uuid.New()
		page.CreatedAt = now
	}
	page.UpdatedAt = now
	s.pages[page.PageID] = &page

	posts := make([]models.Post, 0, len(res.Posts))
	for _, sp := range res.Posts {
		post := sp.Post
		post.ID = uuid.New()
		post.PageID = page.ID
		posts = append(posts, post)
		s.comments[post.PostID] = sp.Comments
	}
	s.posts[page.ID] = posts

	employees := make([]models.Employee, 0, len(res.Employees))
	for _, e := range res.Employees {
		e.ID = uuid.New()
		e.PageID = page.ID
		employees = append(employees, e)
	}
	s.employees[page.ID] = employees

	cp := page
	return &cp, nil
}

func (s *fakeStore) ListPages(_ context.Context, f models.PageFilter) ([]models.Page, error) {
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
		out = append(out, *p)
	}
	return window(out, f.Pagination), nil
}

func (s *fakeStore) ListStalePages(_ context.Context, before time.Time, limit int) ([]models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Page
	for _, p := range s.pages {
		if p.UpdatedAt.Before(before) {
			out = append(out, *p)
		}
	}
	return window(out, models.Pagination{Limit: limit}), nil
}

func (s *fakeStore) ListPosts(_ context.Context, pageUUID uuid.UUID, p models.Pagination) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return window(s.posts[pageUUID], p), nil
}

func (s *fakeStore) ListEmployees(_ context.Context, pageUUID uuid.UUID, p models.Pagination) ([]models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return window(s.employees[pageUUID], p), nil
}

func (s *fakeStore) ListComments(_ context.Context, postID string, p models.Pagination) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comments, ok := s.comments[postID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return window(comments, p), nil
}

func (s *fakeStore) PageCounts(_ context.Context, pageUUID uuid.UUID) (*models.PageCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := &models.PageCounts{
		Posts:     int64(len(s.posts[pageUUID])),
		Employees: int64(len(s.employees[pageUUID])),
	}
	for _, post := range s.posts[pageUUID] {
		counts.Comments += int64(len(s.comments[post.PostID]))
	}
	return counts, nil
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func window[T any](rows []T, p models.Pagination) []T {
	if p.Skip >= len(rows) {
		return nil
	}
	rows = rows[p.Skip:]
	if p.Limit > 0 && p.Limit < len(rows) {
		rows = rows[:p.Limit]
	}
	return rows
}

type fakeScraper struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
}

func (f *fakeScraper) Name() string { return "fake" }

func (f *fakeScraper) Scrape(ctx context.Context, pageID string, opts scraper.Options) (*models.ScrapeResult, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return sampleResult(pageID), nil
}

func (f *fakeScraper) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeScraper) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func sampleResult(pageID string) *models.ScrapeResult {
	followers := int64(25000)
	return &models.ScrapeResult{
		Source: "fake",
		Page: models.Page{
			PageID:         pageID,
			Name:           "Deep Solv",
			URL:            scraper.CompanyURL(pageID),
			Industry:       strPtr("Software Development"),
			FollowersCount: &followers,
			Description:    strPtr("AI tooling for sales teams"),
		},
		Posts: []models.ScrapedPost{
			{
				Post: models.Post{PostID: pageID + "-1", Content: strPtr("We are hiring engineers"), LikesCount: 120, CommentsCount: 8},
				Comments: []models.Comment{
					{CommentID: pageID + "-c1", AuthorName: strPtr("Ana"), Content: strPtr("Congrats!")},
				},
			},
			{Post: models.Post{PostID: pageID + "-2", Content: strPtr("Product launch"), LikesCount: 80, CommentsCount: 2}},
		},
		Employees: []models.Employee{
			{EmployeeID: "ana-lee", Name: "Ana Lee", Title: strPtr("CTO")},
		},
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PageScraped
}

func (p *recordingPublisher) PublishPageScraped(_ context.Context, ev events.PageScraped) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestPageService(store *fakeStore, s *fakeScraper) (*PageService, *cache.MemoryCache) {
	mc := cache.NewMemoryCache(time.Minute)
	return NewPageService(store, mc, s, nil, nil, scraper.Options{MaxPosts: 15, MaxEmployees: 20}), mc
}
