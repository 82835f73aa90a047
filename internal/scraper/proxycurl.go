package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"linkedin-insights/internal/logger"
	"linkedin-insights/internal/telemetry"
	"linkedin-insights/models"

	"github.com/go-resty/resty/v2"
)

// Proxycurl fetches company profiles from the Proxycurl LinkedIn API.
type Proxycurl struct {
	http *resty.Client
}

func NewProxycurl(baseURL, apiKey string, timeout time.Duration) *Proxycurl {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetAuthToken(apiKey).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	telemetry.InstrumentResty(client, "scraper/proxycurl/http")

	return &Proxycurl{http: client}
}

func (p *Proxycurl) Name() string { return "proxycurl" }

type proxycurlCompany struct {
	LinkedInInternalID string   `json:"linkedin_internal_id"`
	Name               string   `json:"name"`
	Tagline            string   `json:"tagline"`
	Description        string   `json:"description"`
	Website            string   `json:"website"`
	Industry           string   `json:"industry"`
	CompanySize        []*int   `json:"company_size"`
	CompanySizeOnLI    *int     `json:"company_size_on_linkedin"`
	CompanyType        string   `json:"company_type"`
	FoundedYear        *int     `json:"founded_year"`
	Specialities       []string `json:"specialities"`
	ProfilePicURL      string   `json:"profile_pic_url"`
	FollowerCount      *int64   `json:"follower_count"`
	HQ                 *struct {
		City    string `json:"city"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"hq"`
	Updates []proxycurlUpdate `json:"updates"`
}

type proxycurlUpdate struct {
	ArticleLink string `json:"article_link"`
	Image       string `json:"image"`
	Text        string `json:"text"`
	TotalLikes  int    `json:"total_likes"`
	PostedOn    *struct {
		Day   int `json:"day"`
		Month int `json:"month"`
		Year  int `json:"year"`
	} `json:"posted_on"`
}

type proxycurlEmployees struct {
	Employees []struct {
		ProfileURL string `json:"profile_url"`
		Profile    *struct {
			FullName      string `json:"full_name"`
			Headline      string `json:"headline"`
			ProfilePicURL string `json:"profile_pic_url"`
			City          string `json:"city"`
			Country       string `json:"country_full_name"`
		} `json:"profile"`
	} `json:"employees"`
}

func (p *Proxycurl) Scrape(ctx context.Context, pageID string, opts Options) (*models.ScrapeResult, error) {
	var company proxycurlCompany
	res, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"url":       CompanyURL(pageID),
			"use_cache": "if-present",
		}).
		SetResult(&company).
		Get("/api/v2/linkedin/company")
	if err != nil {
		return nil, fmt.Errorf("proxycurl company request: %w", err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, ErrPageNotFound
	}
	if res.IsError() {
		return nil, &StatusError{Source: p.Name(), Status: res.StatusCode(), Body: res.String()}
	}
	if company.Name == "" {
		return nil, ErrPageNotFound
	}

	result := &models.ScrapeResult{
		Source: p.Name(),
		Page:   company.toPage(pageID),
	}

	for _, u := range company.Updates {
		if len(result.Posts) >= opts.MaxPosts {
			break
		}
		if post, ok := u.toPost(pageID); ok {
			result.Posts = append(result.Posts, models.ScrapedPost{Post: post})
		}
	}

	if opts.MaxEmployees > 0 {
		employees, err := p.employees(ctx, pageID, opts.MaxEmployees)
		if err != nil {
			// The employee listing is billed separately and often disabled on a key.
			logger.Warn("Proxycurl employee listing failed", "page_id", pageID, "error", err)
		}
		result.Employees = employees
	}

	return result, nil
}

func (p *Proxycurl) employees(ctx context.Context, pageID string, limit int) ([]models.Employee, error) {
	var listing proxycurlEmployees
	res, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"url":               CompanyURL(pageID),
			"page_size":         strconv.Itoa(limit),
			"enrich_profiles":   "enrich",
			"employment_status": "current",
		}).
		SetResult(&listing).
		Get("/api/linkedin/company/employees/")
	if err != nil {
		return nil, fmt.Errorf("proxycurl employees request: %w", err)
	}
	if res.IsError() {
		return nil, &StatusError{Source: p.Name(), Status: res.StatusCode(), Body: res.String()}
	}

	var employees []models.Employee
	for _, e := range listing.Employees {
		if len(employees) >= limit {
			break
		}
		if e.Profile == nil || strings.TrimSpace(e.Profile.FullName) == "" {
			continue
		}
		location := strings.Trim(strings.Join([]string{e.Profile.City, e.Profile.Country}, ", "), ", ")
		employees = append(employees, models.Employee{
			EmployeeID:     EmployeeIDFrom(e.ProfileURL, e.Profile.FullName, e.Profile.Headline),
			Name:           cleanText(e.Profile.FullName),
			ProfileURL:     optional(e.ProfileURL),
			ProfilePicture: optional(e.Profile.ProfilePicURL),
			Title:          optional(e.Profile.Headline),
			Location:       optional(location),
		})
	}
	return employees, nil
}

func (c *proxycurlCompany) toPage(pageID string) models.Page {
	page := models.Page{
		PageID:         pageID,
		Name:           cleanText(c.Name),
		URL:            CompanyURL(pageID),
		LinkedInID:     optional(c.LinkedInInternalID),
		ProfilePicture: optional(c.ProfilePicURL),
		Description:    optional(firstNonEmpty(c.Description, c.Tagline)),
		Website:        optional(c.Website),
		Industry:       optional(c.Industry),
		FollowersCount: c.FollowerCount,
		FoundedYear:    c.FoundedYear,
		CompanyType:    optional(humanizeEnum(c.CompanyType)),
	}

	if len(c.Specialities) > 0 {
		page.Specialties = optional(strings.Join(c.Specialities, ", "))
	}

	switch {
	case c.CompanySizeOnLI != nil:
		page.EmployeesCount = c.CompanySizeOnLI
	case len(c.CompanySize) == 2 && c.CompanySize[0] != nil && c.CompanySize[1] != nil:
		mid := (*c.CompanySize[0] + *c.CompanySize[1]) / 2
		page.EmployeesCount = &mid
	case len(c.CompanySize) > 0 && c.CompanySize[0] != nil:
		page.EmployeesCount = c.CompanySize[0]
	}

	if c.HQ != nil {
		var parts []string
		for _, p := range []string{c.HQ.City, c.HQ.State, c.HQ.Country} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		page.Headquarters = optional(strings.Join(parts, ", "))
	}

	return page
}

func (u proxycurlUpdate) toPost(pageID string) (models.Post, bool) {
	if strings.TrimSpace(u.Text) == "" && u.ArticleLink == "" {
		return models.Post{}, false
	}

	post := models.Post{
		PostID:     PostIDFrom(pageID, u.ArticleLink, u.Text),
		Content:    optional(u.Text),
		LikesCount: u.TotalLikes,
		PostURL:    optional(u.ArticleLink),
		MediaURL:   optional(u.Image),
	}
	if u.PostedOn != nil && u.PostedOn.Year > 0 {
		t := time.Date(u.PostedOn.Year, time.Month(u.PostedOn.Month), u.PostedOn.Day, 0, 0, 0, 0, time.UTC)
		post.PostedAt = &t
	}
	return post, true
}

// humanizeEnum turns "PRIVATELY_HELD" into "Privately Held".
func humanizeEnum(s string) string {
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(s), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
