package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"linkedin-insights/internal/cache"
	"linkedin-insights/internal/scraper"
	"linkedin-insights/models"
)

var allSections = GetPageOptions{IncludePosts: true, IncludeEmployees: true}

func TestNormalizePageID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "deepsolv", want: "deepsolv"},
		{in: " DeepSolv/ ", want: "deepsolv"},
		{in: "google-deepmind", want: "google-deepmind"},
		{in: "acme_inc.io", want: "acme_inc.io"},
		{in: "", wantErr: true},
		{in: "-leading-dash", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "../etc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePageID(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPageID)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestGetPageServesCacheWithinTTL(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	sc := &fakeScraper{}
	svc, _ := newTestPageService(store, sc)

	first, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)
	second, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)

	require.Equal(t, 1, sc.Calls())
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Name, second.Name)
	require.Len(t, second.Posts, 2)
	require.Len(t, second.Employees, 1)
}

func TestCachedDetailMatchesScrapedDetail(t *testing.T) {
	ctx := context.Background()
	svc, pageCache := newTestPageService(newFakeStore(), &fakeScraper{})

	scraped, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)

	var cached models.PageDetail
	hit, err := pageCache.Get(ctx, cache.PageKey("deepsolv"), &cached)
	require.NoError(t, err)
	require.True(t, hit)

	if diff := cmp.Diff(scraped, &cached, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("cached detail differs (-scraped +cached):\n%s", diff)
	}
}

func TestGetPageAfterCacheClearScrapesAgain(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	sc := &fakeScraper{}
	svc, _ := newTestPageService(store, sc)

	_, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)

	removed, err := svc.ClearCache(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)
	require.Equal(t, 2, sc.Calls())
}

func TestGetPageForceRescrapeBypassesCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	sc := &fakeScraper{}
	svc, _ := newTestPageService(store, sc)

	_, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)
	_, err = svc.GetPage(ctx, "deepsolv", GetPageOptions{IncludePosts: true, IncludeEmployees: true, ForceRescrape: true})
	require.NoError(t, err)

	require.Equal(t, 2, sc.Calls())
	require.Equal(t, 2, store.saves)
}

func TestGetPageShapesIncludeFlags(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPageService(newFakeStore(), &fakeScraper{})

	detail, err := svc.GetPage(ctx, "deepsolv", GetPageOptions{})
	require.NoError(t, err)
	require.NotNil(t, detail.Posts)
	require.Empty(t, detail.Posts)
	require.Empty(t, detail.Employees)

	detail, err = svc.GetPage(ctx, "deepsolv", GetPageOptions{IncludePosts: true})
	require.NoError(t, err)
	require.Len(t, detail.Posts, 2)
	require.Empty(t, detail.Employees)
}

func TestGetPageScrapeErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown page", func(t *testing.T) {
		sc := &fakeScraper{err: scraper.ErrPageNotFound}
		svc, _ := newTestPageService(newFakeStore(), sc)

		_, err := svc.GetPage(ctx, "no-such-company", allSections)
		require.ErrorIs(t, err, ErrPageNotFound)
	})

	t.Run("vendor failure", func(t *testing.T) {
		sc := &fakeScraper{err: &scraper.StatusError{Source: "fake", Status: 500}}
		svc, _ := newTestPageService(newFakeStore(), sc)

		_, err := svc.GetPage(ctx, "deepsolv", allSections)
		require.ErrorIs(t, err, ErrScrapeFailed)
		require.False(t, errors.Is(err, ErrPageNotFound))
	})

	t.Run("invalid id never scrapes", func(t *testing.T) {
		sc := &fakeScraper{}
		svc, _ := newTestPageService(newFakeStore(), sc)

		_, err := svc.GetPage(ctx, "bad id", allSections)
		require.ErrorIs(t, err, ErrInvalidPageID)
		require.Zero(t, sc.Calls())
	})
}

func TestGetPageServesStoredPageWhenScrapeFails(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	sc := &fakeScraper{}
	svc, _ := newTestPageService(store, sc)

	_, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)

	sc.SetErr(errors.New("vendor timeout"))
	detail, err := svc.GetPage(ctx, "deepsolv", GetPageOptions{IncludePosts: true, IncludeEmployees: true, ForceRescrape: true})
	require.NoError(t, err)
	require.Equal(t, "Deep Solv", detail.Name)
	require.Len(t, detail.Posts, 2)
	require.Equal(t, 1, store.saves)
}

func TestRefreshReportsStaleServedPage(t *testing.T) {
	ctx := context.Background()
	sc := &fakeScraper{}
	svc, _ := newTestPageService(newFakeStore(), sc)

	_, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)

	sc.SetErr(errors.New("vendor timeout"))
	detail, err := svc.Refresh(ctx, "deepsolv")
	require.ErrorIs(t, err, ErrStaleServed)
	require.Contains(t, err.Error(), "vendor timeout")
	require.NotNil(t, detail)
	require.Equal(t, "Deep Solv", detail.Name)

	refreshed, failed, err := svc.RefreshStale(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Zero(t, refreshed)
	require.Equal(t, 1, failed)
}

func TestGetPageSharedScrapeSurvivesCancelledCaller(t *testing.T) {
	sc := &fakeScraper{release: make(chan struct{})}
	svc, _ := newTestPageService(newFakeStore(), sc)

	cancelled, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.GetPage(cancelled, "deepsolv", allSections)
		first <- err
	}()

	require.Eventually(t, func() bool { return sc.Calls() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	var detail *models.PageDetail
	go func() {
		d, err := svc.GetPage(context.Background(), "deepsolv", allSections)
		detail = d
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	close(sc.release)
	require.NoError(t, <-second)
	require.Equal(t, "Deep Solv", detail.Name)
	require.Equal(t, 1, sc.Calls())
}

func TestGetPageCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	sc := &fakeScraper{release: make(chan struct{})}
	svc, _ := newTestPageService(newFakeStore(), sc)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetPage(ctx, "deepsolv", allSections)
			errs <- err
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(sc.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, sc.Calls())
}

func TestGetPagePublishesScrapeEvent(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTestPageService(newFakeStore(), &fakeScraper{})
	svc.publisher = pub

	_, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	require.Equal(t, "deepsolv", ev.PageID)
	require.Equal(t, "fake", ev.Source)
	require.Equal(t, 2, ev.Posts)
	require.Equal(t, 1, ev.Comments)
	require.Equal(t, 1, ev.Employees)
}

func TestChildListsRequireStoredPage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPageService(newFakeStore(), &fakeScraper{})
	window := models.Pagination{Limit: 15}

	_, err := svc.ListPosts(ctx, "ghost", window)
	require.ErrorIs(t, err, ErrPageNotFound)
	_, err = svc.ListEmployees(ctx, "ghost", window)
	require.ErrorIs(t, err, ErrPageNotFound)
	_, err = svc.Stats(ctx, "ghost")
	require.ErrorIs(t, err, ErrPageNotFound)
	_, err = svc.ListComments(ctx, "ghost-post", window)
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestChildListsAfterScrape(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPageService(newFakeStore(), &fakeScraper{})

	_, err := svc.GetPage(ctx, "deepsolv", allSections)
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx, "deepsolv", models.Pagination{Skip: 1, Limit: 15})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "deepsolv-2", posts[0].PostID)

	employees, err := svc.ListEmployees(ctx, "DeepSolv", models.Pagination{Limit: 50})
	require.NoError(t, err)
	require.Len(t, employees, 1)

	comments, err := svc.ListComments(ctx, "deepsolv-1", models.Pagination{Limit: 50})
	require.NoError(t, err)
	require.Len(t, comments, 1)

	stats, err := svc.Stats(ctx, "deepsolv")
	require.NoError(t, err)
	require.True(t, stats.InDatabase)
	require.Equal(t, models.PageCounts{Posts: 2, Employees: 1, Comments: 1}, stats.Counts)
	require.Equal(t, int64(25000), *stats.CompanyInfo.Followers)
}

func TestValidatePageFilter(t *testing.T) {
	ok := models.PageFilter{Pagination: models.Pagination{Limit: 10}, MinFollowers: int64Ptr(20000), MaxFollowers: int64Ptr(20000)}
	require.NoError(t, ValidatePageFilter(ok))

	inverted := models.PageFilter{Pagination: models.Pagination{Limit: 10}, MinFollowers: int64Ptr(40000), MaxFollowers: int64Ptr(20000)}
	require.ErrorIs(t, ValidatePageFilter(inverted), ErrInvalidFilter)

	negative := models.PageFilter{Pagination: models.Pagination{Skip: -1, Limit: 10}}
	require.ErrorIs(t, ValidatePageFilter(negative), ErrInvalidFilter)
}

func TestRefreshStale(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	sc := &fakeScraper{}
	svc, _ := newTestPageService(store, sc)

	for _, id := range []string{"alpha", "beta"} {
		_, err := svc.GetPage(ctx, id, allSections)
		require.NoError(t, err)
	}

	refreshed, failed, err := svc.RefreshStale(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Equal(t, 2, refreshed)
	require.Zero(t, failed)
	require.Equal(t, 4, sc.Calls())

	refreshed, _, err = svc.RefreshStale(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Zero(t, refreshed)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestPageService(store, &fakeScraper{})

	report := svc.Health(ctx)
	require.True(t, report.Healthy())
	require.Equal(t, "healthy", report.Status)
	require.Equal(t, "memory", report.Cache.Backend)
	require.Equal(t, "fake", report.ScrapingMethod)

	store.pingErr = errors.New("connection refused")
	report = svc.Health(ctx)
	require.False(t, report.Healthy())
	require.Equal(t, "down", report.Database.Status)
}
