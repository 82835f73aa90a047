package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"linkedin-insights/internal/logger"
	"linkedin-insights/internal/telemetry"
	"linkedin-insights/models"

	"github.com/go-resty/resty/v2"
)

// RapidAPI fetches company details and posts from the LinkedIn Data API on RapidAPI.
// That API has no employee listing, so results carry no employees.
type RapidAPI struct {
	http *resty.Client
}

func NewRapidAPI(baseURL, host, apiKey string, timeout time.Duration) *RapidAPI {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("X-RapidAPI-Key", apiKey).
		SetHeader("X-RapidAPI-Host", host).
		SetHeader("Accept", "application/json")

	telemetry.InstrumentResty(client, "scraper/rapidapi/http")

	return &RapidAPI{http: client}
}

func (r *RapidAPI) Name() string { return "rapidapi" }

type rapidEnvelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type rapidCompany struct {
	ID              any      `json:"id"`
	Name            string   `json:"name"`
	Tagline         string   `json:"tagline"`
	Description     string   `json:"description"`
	Website         string   `json:"website"`
	Type            string   `json:"type"`
	Industries      []string `json:"industries"`
	Specialities    []string `json:"specialities"`
	StaffCount      *int     `json:"staffCount"`
	StaffCountRange any      `json:"staffCountRange"`
	FollowerCount   *int64   `json:"followerCount"`
	Logo            any      `json:"logo"`
	Founded         *struct {
		Year int `json:"year"`
	} `json:"founded"`
	Headquarter *struct {
		City           string `json:"city"`
		GeographicArea string `json:"geographicArea"`
		Country        string `json:"country"`
	} `json:"headquarter"`
}

type rapidPost struct {
	URN                string `json:"urn"`
	Text               string `json:"text"`
	PostURL            string `json:"postUrl"`
	PostedDate         string `json:"postedDate"`
	PostedAt           string `json:"postedAt"`
	TotalReactionCount int    `json:"totalReactionCount"`
	CommentsCount      int    `json:"commentsCount"`
	RepostsCount       int    `json:"repostsCount"`
	Image              []struct {
		URL string `json:"url"`
	} `json:"image"`
}

func (r *RapidAPI) Scrape(ctx context.Context, pageID string, opts Options) (*models.ScrapeResult, error) {
	var company rapidEnvelope[rapidCompany]
	res, err := r.http.R().
		SetContext(ctx).
		SetQueryParam("username", pageID).
		SetResult(&company).
		Get("/get-company-details")
	if err != nil {
		return nil, fmt.Errorf("rapidapi company request: %w", err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, ErrPageNotFound
	}
	if res.IsError() {
		return nil, &StatusError{Source: r.Name(), Status: res.StatusCode(), Body: res.String()}
	}
	if !company.Success {
		if strings.Contains(strings.ToLower(company.Message), "not found") {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("rapidapi company request: %s", company.Message)
	}
	if company.Data.Name == "" {
		return nil, ErrPageNotFound
	}

	result := &models.ScrapeResult{
		Source: r.Name(),
		Page:   company.Data.toPage(pageID),
	}

	if opts.MaxPosts > 0 {
		posts, err := r.posts(ctx, pageID, opts.MaxPosts)
		if err != nil {
			logger.Warn("RapidAPI post listing failed", "page_id", pageID, "error", err)
		}
		result.Posts = posts
	}

	return result, nil
}

func (r *RapidAPI) posts(ctx context.Context, pageID string, limit int) ([]models.ScrapedPost, error) {
	var listing rapidEnvelope[[]rapidPost]
	res, err := r.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"username": pageID, "start": "0"}).
		SetResult(&listing).
		Get("/get-company-posts")
	if err != nil {
		return nil, fmt.Errorf("rapidapi posts request: %w", err)
	}
	if res.IsError() {
		return nil, &StatusError{Source: r.Name(), Status: res.StatusCode(), Body: res.String()}
	}

	var posts []models.ScrapedPost
	for _, p := range listing.Data {
		if len(posts) >= limit {
			break
		}
		if strings.TrimSpace(p.Text) == "" && p.PostURL == "" {
			continue
		}

		post := models.Post{
			PostID:        PostIDFrom(pageID, firstNonEmpty(p.URN, p.PostURL), p.Text),
			Content:       optional(p.Text),
			PostedAt:      parseTimestamp(firstNonEmpty(p.PostedDate, p.PostedAt)),
			LikesCount:    p.TotalReactionCount,
			CommentsCount: p.CommentsCount,
			SharesCount:   p.RepostsCount,
			PostURL:       optional(p.PostURL),
		}
		if len(p.Image) > 0 {
			post.MediaURL = optional(p.Image[0].URL)
		}
		posts = append(posts, models.ScrapedPost{Post: post})
	}
	return posts, nil
}

func (c *rapidCompany) toPage(pageID string) models.Page {
	page := models.Page{
		PageID:         pageID,
		Name:           cleanText(c.Name),
		URL:            CompanyURL(pageID),
		LinkedInID:     optional(stringOrNumber(c.ID)),
		ProfilePicture: optional(stringOf(c.Logo)),
		Description:    optional(firstNonEmpty(c.Description, c.Tagline)),
		Website:        optional(c.Website),
		FollowersCount: c.FollowerCount,
		CompanyType:    optional(c.Type),
		EmployeesCount: c.StaffCount,
	}

	if len(c.Industries) > 0 {
		page.Industry = optional(c.Industries[0])
	}
	if len(c.Specialities) > 0 {
		page.Specialties = optional(strings.Join(c.Specialities, ", "))
	}
	if page.EmployeesCount == nil {
		page.EmployeesCount = ParseEmployeeRange(staffRange(c.StaffCountRange))
	}
	if c.Founded != nil && c.Founded.Year > 0 {
		year := c.Founded.Year
		page.FoundedYear = &year
	}
	if hq := c.Headquarter; hq != nil {
		var parts []string
		for _, p := range []string{hq.City, hq.GeographicArea, hq.Country} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		page.Headquarters = optional(strings.Join(parts, ", "))
	}

	return page
}

// staffRange accepts either "51-200" or {"start": 51, "end": 200}.
func staffRange(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		start, _ := t["start"].(float64)
		end, _ := t["end"].(float64)
		if end > 0 {
			return fmt.Sprintf("%d-%d", int(start), int(end))
		}
		if start > 0 {
			return fmt.Sprintf("%d", int(start))
		}
	}
	return ""
}

func stringOrNumber(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	}
	return ""
}

func parseTimestamp(s string) *time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05.999 -0700 MST", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
