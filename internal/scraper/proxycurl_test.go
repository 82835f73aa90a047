package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proxycurlCompanyJSON = `{
  "linkedin_internal_id": "1441",
  "name": "Acme Robotics",
  "description": "We build robots.",
  "website": "https://acme.example.com",
  "industry": "Industrial Automation",
  "company_size": [51, 200],
  "company_size_on_linkedin": null,
  "company_type": "PRIVATELY_HELD",
  "founded_year": 2016,
  "specialities": ["robotics", "automation"],
  "profile_pic_url": "https://media.example.com/acme.png",
  "follower_count": 25000,
  "hq": {"city": "Pune", "state": "Maharashtra", "country": "IN"},
  "updates": [
    {"article_link": "https://www.linkedin.com/posts/acme_launch-activity-7100000000000000000-abcd", "text": "Launch day", "total_likes": 42, "posted_on": {"day": 2, "month": 5, "year": 2024}},
    {"text": "", "article_link": ""},
    {"text": "Second post", "total_likes": 7}
  ]
}`

const proxycurlEmployeesJSON = `{
  "employees": [
    {"profile_url": "https://www.linkedin.com/in/jane-doe", "profile": {"full_name": "Jane Doe", "headline": "CTO", "city": "Pune", "country_full_name": "India"}},
    {"profile_url": "https://www.linkedin.com/in/ghost", "profile": null}
  ]
}`

func TestProxycurlScrape(t *testing.T) {
	var gotAuth, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v2/linkedin/company":
			gotAuth = r.Header.Get("Authorization")
			gotURL = r.URL.Query().Get("url")
			_, _ = w.Write([]byte(proxycurlCompanyJSON))
		case "/api/linkedin/company/employees/":
			_, _ = w.Write([]byte(proxycurlEmployeesJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProxycurl(srv.URL, "secret", 5*time.Second)
	res, err := p.Scrape(context.Background(), "acme-robotics", Options{MaxPosts: 15, MaxEmployees: 20})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "https://www.linkedin.com/company/acme-robotics/", gotURL)

	page := res.Page
	assert.Equal(t, "proxycurl", res.Source)
	assert.Equal(t, "Acme Robotics", page.Name)
	assert.Equal(t, "1441", *page.LinkedInID)
	assert.Equal(t, int64(25000), *page.FollowersCount)
	assert.Equal(t, 125, *page.EmployeesCount)
	assert.Equal(t, "Privately Held", *page.CompanyType)
	assert.Equal(t, "robotics, automation", *page.Specialties)
	assert.Equal(t, "Pune, Maharashtra, IN", *page.Headquarters)

	require.Len(t, res.Posts, 2)
	assert.Equal(t, "7100000000000000000", res.Posts[0].PostID)
	assert.Equal(t, 42, res.Posts[0].LikesCount)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *res.Posts[0].PostedAt)
	assert.Nil(t, res.Posts[1].PostedAt)

	require.Len(t, res.Employees, 1)
	assert.Equal(t, "jane-doe", res.Employees[0].EmployeeID)
	assert.Equal(t, "Pune, India", *res.Employees[0].Location)
}

func TestProxycurlNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":404}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewProxycurl(srv.URL, "k", time.Second).Scrape(context.Background(), "missing", Options{MaxPosts: 1})
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestProxycurlVendorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of credits", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewProxycurl(srv.URL, "k", time.Second).Scrape(context.Background(), "acme", Options{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Status)
	assert.NotErrorIs(t, err, ErrPageNotFound)
}

func TestProxycurlEmployeeFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/linkedin/company" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Acme"}`))
			return
		}
		http.Error(w, "not enabled", http.StatusForbidden)
	}))
	defer srv.Close()

	res, err := NewProxycurl(srv.URL, "k", time.Second).Scrape(context.Background(), "acme", Options{MaxEmployees: 5})
	require.NoError(t, err)
	assert.Equal(t, "Acme", res.Page.Name)
	assert.Empty(t, res.Employees)
}
