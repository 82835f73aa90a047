// Package scraper fetches LinkedIn company pages from one configured source and
// normalizes them into models.ScrapeResult.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkedin-insights/internal/config"
	"linkedin-insights/models"
)

// ErrPageNotFound is returned when the source reports that the company page does not exist.
var ErrPageNotFound = errors.New("linkedin page not found")

// Options bounds how much of a page is collected and for how long.
type Options struct {
	MaxPosts     int
	MaxEmployees int

	// Timeout caps one scrape of a page, including storing the result.
	// Zero means DefaultTimeout.
	Timeout time.Duration
}

const DefaultTimeout = 2 * time.Minute

type Scraper interface {
	Name() string
	Scrape(ctx context.Context, pageID string, opts Options) (*models.ScrapeResult, error)
}

// New builds the scraper selected by SCRAPING_METHOD.
func New(cfg *config.Config) (Scraper, error) {
	switch cfg.ScrapingMethod {
	case config.ScrapeProxycurl:
		return NewProxycurl(cfg.ProxycurlBaseURL, cfg.ProxycurlAPIKey, cfg.ScrapeTimeout), nil
	case config.ScrapeRapidAPI:
		return NewRapidAPI(cfg.RapidAPIBaseURL, cfg.RapidAPIHost, cfg.RapidAPIKey, cfg.ScrapeTimeout), nil
	case config.ScrapeBrowser:
		return NewBrowser(BrowserConfig{
			Email:    cfg.LinkedInEmail,
			Password: cfg.LinkedInPassword,
			Headless: cfg.BrowserHeadless,
			Timeout:  cfg.ScrapeTimeout,
		}), nil
	case config.ScrapeGuest:
		return NewGuest(cfg.ScrapeTimeout), nil
	default:
		return nil, fmt.Errorf("unknown scraping method %q", cfg.ScrapingMethod)
	}
}

// CompanyURL is the canonical public URL of a company page.
func CompanyURL(pageID string) string {
	return "https://www.linkedin.com/company/" + pageID + "/"
}

// StatusError is a non-success HTTP response from a scraping source.
type StatusError struct {
	Source string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Source, e.Status, truncate(e.Body, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
