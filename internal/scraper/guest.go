package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkedin-insights/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

// Guest reads the public, logged-out company page. It needs no credentials but only
// sees what LinkedIn shows anonymous visitors: the profile, a handful of recent
// updates and a few employees.
type Guest struct {
	timeout   time.Duration
	transport http.RoundTripper
	now       func() time.Time
}

func NewGuest(timeout time.Duration) *Guest {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Guest{
		timeout:   timeout,
		transport: &http.Transport{DisableCompression: false},
		now:       time.Now,
	}
}

func (g *Guest) Name() string { return "guest" }

func (g *Guest) Scrape(ctx context.Context, pageID string, opts Options) (*models.ScrapeResult, error) {
	return g.scrapeURL(ctx, CompanyURL(pageID), pageID, opts)
}

func (g *Guest) scrapeURL(ctx context.Context, pageURL, pageID string, opts Options) (*models.ScrapeResult, error) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.MaxDepth(1),
	)
	c.WithTransport(g.transport)
	c.SetRequestTimeout(g.timeout)
	c.UserAgent = browserUserAgent

	var (
		result    *models.ScrapeResult
		scrapeErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, br")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
		r.Headers.Set("Sec-Fetch-Dest", "document")
		r.Headers.Set("Sec-Fetch-Mode", "navigate")
	})

	c.OnResponse(func(r *colly.Response) {
		if strings.Contains(r.Request.URL.Path, "authwall") {
			scrapeErr = fmt.Errorf("guest scrape of %s: redirected to the sign-in wall", pageID)
			return
		}

		body, err := decodeBody(r.Body, r.Headers.Get("Content-Encoding"), r.Headers.Get("Content-Type"))
		if err != nil {
			scrapeErr = fmt.Errorf("decode response: %w", err)
			return
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			scrapeErr = fmt.Errorf("parse response: %w", err)
			return
		}

		page, err := ParseCompany(doc, pageID)
		if err != nil {
			scrapeErr = err
			return
		}

		result = &models.ScrapeResult{
			Source:    g.Name(),
			Page:      page,
			Posts:     ParsePosts(doc, pageID, opts.MaxPosts, g.now()),
			Employees: ParseEmployees(doc, opts.MaxEmployees),
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		switch r.StatusCode {
		case http.StatusNotFound:
			scrapeErr = ErrPageNotFound
		case 0:
			scrapeErr = fmt.Errorf("guest scrape of %s: %w", pageID, err)
		default:
			// LinkedIn answers automated traffic with 999 or 429.
			scrapeErr = &StatusError{Source: g.Name(), Status: r.StatusCode, Body: string(r.Body)}
		}
	})

	if err := c.Visit(pageURL); err != nil && scrapeErr == nil {
		scrapeErr = fmt.Errorf("guest scrape of %s: %w", pageID, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	if result == nil {
		return nil, fmt.Errorf("guest scrape of %s: no response", pageID)
	}
	return result, nil
}

// decodeBody undoes brotli compression, which net/http does not handle, and converts
// the body to UTF-8 using the declared or sniffed charset.
func decodeBody(body []byte, contentEncoding, contentType string) ([]byte, error) {
	var reader io.Reader = bytes.NewReader(body)
	if strings.Contains(contentEncoding, "br") {
		decompressed, err := io.ReadAll(brotli.NewReader(reader))
		if err != nil {
			return nil, err
		}
		body = decompressed
		reader = bytes.NewReader(body)
	}

	utf8Reader, err := charset.NewReader(reader, contentType)
	if err != nil {
		return body, nil
	}
	decoded, err := io.ReadAll(utf8Reader)
	if err != nil || len(decoded) == 0 {
		return body, nil
	}
	return decoded, nil
}
