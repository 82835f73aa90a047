package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkedin-insights/internal/logger"
	"linkedin-insights/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

type BrowserConfig struct {
	Email    string
	Password string
	Headless bool
	Timeout  time.Duration
}

// Browser renders company pages in headless Chrome. With credentials it signs in
// first, which unlocks the posts feed and the people tab.
type Browser struct {
	cfg BrowserConfig
	now func() time.Time
}

func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Browser{cfg: cfg, now: time.Now}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Scrape(ctx context.Context, pageID string, opts Options) (*models.ScrapeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(browserUserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if b.cfg.Email != "" && b.cfg.Password != "" {
		if err := b.login(browserCtx); err != nil {
			return nil, err
		}
	}

	base := CompanyURL(pageID)

	doc, err := renderDocument(browserCtx, base+"about/", "h1", 1)
	if err != nil {
		return nil, fmt.Errorf("render company page: %w", err)
	}
	page, err := ParseCompany(doc, pageID)
	if err != nil {
		return nil, err
	}

	result := &models.ScrapeResult{Source: b.Name(), Page: page}

	if opts.MaxPosts > 0 {
		if doc, err := renderDocument(browserCtx, base+"posts/", postContainer, 3); err != nil {
			logger.Warn("Rendering posts failed", "page_id", pageID, "error", err)
		} else {
			result.Posts = ParsePosts(doc, pageID, opts.MaxPosts, b.now())
		}
	}

	if opts.MaxEmployees > 0 {
		if doc, err := renderDocument(browserCtx, base+"people/", employeeContainer, 2); err != nil {
			logger.Warn("Rendering people failed", "page_id", pageID, "error", err)
		} else {
			result.Employees = ParseEmployees(doc, opts.MaxEmployees)
		}
	}

	return result, nil
}

func (b *Browser) login(ctx context.Context) error {
	err := chromedp.Run(ctx,
		chromedp.Navigate("https://www.linkedin.com/login"),
		chromedp.WaitVisible("#username", chromedp.ByQuery),
		chromedp.SendKeys("#username", b.cfg.Email, chromedp.ByQuery),
		chromedp.SendKeys("#password", b.cfg.Password, chromedp.ByQuery),
		chromedp.Click("button[type='submit']", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("linkedin login: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		var location string
		if err := chromedp.Run(ctx, chromedp.Location(&location)); err != nil {
			return fmt.Errorf("linkedin login: %w", err)
		}
		switch {
		case strings.Contains(location, "/feed") || strings.Contains(location, "/mynetwork"):
			return nil
		case strings.Contains(location, "/checkpoint"):
			return errors.New("linkedin login: account requires a verification challenge")
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(time.Second)); err != nil {
			return fmt.Errorf("linkedin login: %w", err)
		}
	}
	return errors.New("linkedin login: timed out waiting for the feed")
}

// renderDocument navigates, waits for readiness, scrolls to trigger lazy loading and
// waits for network idle, then parses the page HTML. Only navigation and the final
// read are fatal.
func renderDocument(ctx context.Context, pageURL, waitSelector string, scrolls int) (*goquery.Document, error) {
	if err := chromedp.Run(ctx, chromedp.Navigate(pageURL)); err != nil {
		return nil, err
	}

	softRun(ctx, 10*time.Second, chromedp.WaitReady("body", chromedp.ByQuery))
	if waitSelector != "" {
		softRun(ctx, 15*time.Second, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	}

	for i := 0; i < scrolls; i++ {
		softRun(ctx, 5*time.Second,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(1500*time.Millisecond),
		)
	}

	softRun(ctx, 6*time.Second, waitForNetworkIdle(1200*time.Millisecond))

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func softRun(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = chromedp.Run(stepCtx, actions...)
}

// waitForNetworkIdle waits until no network requests are in flight for the given duration
func waitForNetworkIdle(d time.Duration) chromedp.ActionFunc {
	js := `(function(waitMs){
      return new Promise((resolve)=>{
        if (!('PerformanceObserver' in window)) {
          setTimeout(resolve, waitMs);
          return;
        }
        let last = Date.now();
        const obs = new PerformanceObserver(()=>{ last = Date.now(); });
        try { obs.observe({entryTypes:['resource','navigation']}); } catch(e) {}
        const tick = () => {
          if (Date.now()-last >= waitMs) { try { obs.disconnect(); } catch(e){} resolve(); return; }
          setTimeout(tick, 100);
        };
        tick();
      });
    })(%d);`
	return func(ctx context.Context) error {
		return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(js, int(d.Milliseconds())), nil))
	}
}
