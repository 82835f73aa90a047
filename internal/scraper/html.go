package scraper

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"linkedin-insights/models"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var followersPattern = regexp.MustCompile(`(?i)([\d][\d,.]*\s*[KMB]?)\s*followers`)

// Logged-in and public (guest) markup differ; each field lists the selectors of both.
var (
	nameSelectors        = []string{"h1.org-top-card-summary__title", "h1.top-card-layout__title", "h1[class*='top-card']"}
	taglineSelectors     = []string{"p.org-top-card-summary__tagline", "h4.top-card-layout__second-subline", "p[class*='tagline']"}
	descriptionSelectors = []string{"p[data-test-id='about-us__description']", "p.org-about-us-organization-description__text", "section.org-about-module__description"}
	followerSelectors    = []string{"div.org-top-card-summary-info-list__info-item", ".top-card-layout__first-subline", "div.org-top-card-summary-info-list"}
	websiteSelectors     = []string{"a[data-test-id='about-us__website']", "div[data-test-id='about-us__website'] a", "a.org-top-card-primary-actions__action"}
	logoSelectors        = []string{"img.org-top-card-primary-content__logo", "img.top-card-layout__entity-image"}

	postContainer       = "div.feed-shared-update-v2, article[data-activity-urn]"
	postURLSelectors    = []string{"a[data-test-link='permalink']", "a[href*='/posts/']", "a[href*='/feed/update/']"}
	postTextSelectors   = []string{"span.break-words", "p.attributed-text-segment-list__content", "div.feed-shared-update-v2__description"}
	postTimeSelectors   = []string{"span.feed-shared-actor__sub-description", "span.update-components-actor__sub-description", "time"}
	postLikeSelectors   = []string{"span.social-details-social-counts__reactions-count", "span[data-test-id='social-actions__reaction-count']"}
	postCommentSelector = []string{"button.social-details-social-counts__comments", "a[data-test-id='social-actions__comments']"}
	postMediaSelectors  = []string{"img.update-components-image__image", "div.feed-shared-image img", "ul[data-test-id='feed-images-content'] img"}

	employeeContainer         = "div.org-people-profile-card, section[data-test-id='employees-at'] li"
	employeeNameSelectors     = []string{"div.org-people-profile-card__profile-title", "div.artdeco-entity-lockup__title", "h3.base-main-card__title"}
	employeeTitleSelectors    = []string{"div.artdeco-entity-lockup__subtitle", "h4.base-main-card__subtitle"}
	employeeLocationSelectors = []string{"div.artdeco-entity-lockup__caption", "p.base-main-card__metadata"}
)

// ParseCompany reads the company profile from a rendered company or about page.
// A page without a company name is treated as nonexistent.
func ParseCompany(doc *goquery.Document, pageID string) (models.Page, error) {
	page := models.Page{
		PageID: pageID,
		URL:    CompanyURL(pageID),
		Name:   firstText(doc.Selection, nameSelectors...),
	}

	tagline := firstText(doc.Selection, taglineSelectors...)
	description := ""
	for _, sel := range descriptionSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			description = htmlToText(s)
			break
		}
	}
	if description == "" {
		description = tagline
	}
	page.Description = optional(description)

	for _, sel := range followerSelectors {
		var found bool
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if m := followersPattern.FindStringSubmatch(cleanText(s.Text())); m != nil {
				page.FollowersCount = ParseCount(m[1])
				found = true
			}
			return !found
		})
		if found {
			break
		}
	}

	page.Website = optional(externalURL(firstAttr(doc.Selection, []string{"href"}, websiteSelectors...)))
	page.ProfilePicture = optional(firstAttr(doc.Selection, []string{"src", "data-delayed-url"}, logoSelectors...))

	applyDetails(doc, &page)
	applyJSONLD(doc, &page)

	if page.Name == "" {
		return page, ErrPageNotFound
	}
	return page, nil
}

// applyDetails maps the about-section <dt>/<dd> pairs.
func applyDetails(doc *goquery.Document, page *models.Page) {
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		label := strings.ToLower(cleanText(dt.Text()))
		dd := dt.NextAllFiltered("dd").First()
		value := cleanText(dd.Text())
		if value == "" {
			return
		}

		switch {
		case strings.Contains(label, "industry"):
			page.Industry = optional(value)
		case strings.Contains(label, "size"):
			page.EmployeesCount = ParseEmployeeRange(value)
		case strings.Contains(label, "headquarters"):
			page.Headquarters = optional(value)
		case strings.Contains(label, "founded"):
			page.FoundedYear = ParseYear(value)
		case strings.Contains(label, "specialt"):
			page.Specialties = optional(value)
		case label == "type":
			page.CompanyType = optional(value)
		case strings.Contains(label, "website") && page.Website == nil:
			if href, ok := dd.Find("a").Attr("href"); ok {
				page.Website = optional(externalURL(href))
			} else {
				page.Website = optional(value)
			}
		}
	})
}

type jsonLDOrganization struct {
	Type              any    `json:"@type"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	SameAs            any    `json:"sameAs"`
	Logo              any    `json:"logo"`
	NumberOfEmployees struct {
		Value int `json:"value"`
	} `json:"numberOfEmployees"`
	Address struct {
		Locality string `json:"addressLocality"`
		Region   string `json:"addressRegion"`
		Country  string `json:"addressCountry"`
	} `json:"address"`
}

// applyJSONLD fills fields the markup did not provide from the Organization JSON-LD
// block that public pages embed.
func applyJSONLD(doc *goquery.Document, page *models.Page) {
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var payload struct {
			jsonLDOrganization
			Graph []jsonLDOrganization `json:"@graph"`
		}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}

		candidates := append([]jsonLDOrganization{payload.jsonLDOrganization}, payload.Graph...)
		for _, org := range candidates {
			if !strings.Contains(strings.ToLower(stringOf(org.Type)), "organization") {
				continue
			}
			if page.Name == "" {
				page.Name = cleanText(org.Name)
			}
			if page.Description == nil {
				page.Description = optional(org.Description)
			}
			if page.Website == nil {
				page.Website = optional(stringOf(org.SameAs))
			}
			if page.ProfilePicture == nil {
				page.ProfilePicture = optional(stringOf(org.Logo))
			}
			if page.EmployeesCount == nil && org.NumberOfEmployees.Value > 0 {
				n := org.NumberOfEmployees.Value
				page.EmployeesCount = &n
			}
			if page.Headquarters == nil {
				parts := []string{}
				for _, p := range []string{org.Address.Locality, org.Address.Region, org.Address.Country} {
					if p != "" {
						parts = append(parts, p)
					}
				}
				page.Headquarters = optional(strings.Join(parts, ", "))
			}
		}
	})
}

// ParsePosts reads up to limit posts from a rendered posts feed.
func ParsePosts(doc *goquery.Document, pageID string, limit int, now time.Time) []models.ScrapedPost {
	var posts []models.ScrapedPost
	seen := make(map[string]bool)

	doc.Find(postContainer).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(posts) >= limit {
			return false
		}

		urn := firstNonEmpty(attr(s, "data-urn"), attr(s, "data-activity-urn"))
		postURL := firstAttr(s, []string{"href"}, postURLSelectors...)
		if postURL == "" && urn != "" {
			postURL = "https://www.linkedin.com/feed/update/" + urn + "/"
		}
		content := strings.TrimSpace(firstText(s, postTextSelectors...))
		if content == "" && postURL == "" {
			return true
		}

		id := PostIDFrom(pageID, firstNonEmpty(urn, postURL), content)
		if seen[id] {
			return true
		}
		seen[id] = true

		post := models.Post{
			PostID:        id,
			Content:       optional(content),
			PostedAt:      ParseRelativeTime(firstText(s, postTimeSelectors...), now),
			LikesCount:    countOf(firstText(s, postLikeSelectors...)),
			CommentsCount: countOf(firstText(s, postCommentSelector...)),
			PostURL:       optional(stripQuery(postURL)),
			MediaURL:      optional(firstAttr(s, []string{"src", "data-delayed-url"}, postMediaSelectors...)),
		}
		posts = append(posts, models.ScrapedPost{Post: post})
		return true
	})

	return posts
}

// ParseEmployees reads up to limit people cards from a rendered people page or the
// "Employees at" section of a public page.
func ParseEmployees(doc *goquery.Document, limit int) []models.Employee {
	var employees []models.Employee
	seen := make(map[string]bool)

	doc.Find(employeeContainer).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(employees) >= limit {
			return false
		}

		name := firstText(s, employeeNameSelectors...)
		if name == "" {
			return true
		}
		title := firstText(s, employeeTitleSelectors...)

		profileURL := attr(s, "href")
		if !strings.Contains(profileURL, "/in/") {
			profileURL = firstAttr(s, []string{"href"}, "a[href*='/in/']")
		}
		profileURL = stripQuery(profileURL)

		id := EmployeeIDFrom(profileURL, name, title)
		if seen[id] {
			return true
		}
		seen[id] = true

		employees = append(employees, models.Employee{
			EmployeeID:     id,
			Name:           name,
			Title:          optional(title),
			Location:       optional(firstText(s, employeeLocationSelectors...)),
			ProfileURL:     optional(profileURL),
			ProfilePicture: optional(firstAttr(s, []string{"src", "data-delayed-url"}, "img")),
		})
		return true
	})

	return employees
}

func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := cleanText(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(s *goquery.Selection, attrs []string, selectors ...string) string {
	for _, sel := range selectors {
		node := s.Find(sel).First()
		for _, a := range attrs {
			if v := attr(node, a); v != "" {
				return v
			}
		}
	}
	return ""
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func countOf(text string) int {
	if n := ParseCount(text); n != nil {
		return int(*n)
	}
	return 0
}

// htmlToText converts a description block to markdown so paragraphs and lists survive.
func htmlToText(s *goquery.Selection) string {
	html, err := goquery.OuterHtml(s)
	if err != nil {
		return cleanText(s.Text())
	}
	text, err := md.NewConverter("", true, nil).ConvertString(html)
	if err != nil {
		return cleanText(s.Text())
	}
	return strings.TrimSpace(text)
}

// externalURL unwraps LinkedIn's outbound redirect links.
func externalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Host, "linkedin.com") {
		return raw
	}
	if target := u.Query().Get("url"); target != "" {
		return target
	}
	return raw
}

func stripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			return stringOf(t[0])
		}
	case map[string]any:
		for _, key := range []string{"contentUrl", "url", "@id"} {
			if s, ok := t[key].(string); ok {
				return s
			}
		}
	}
	return ""
}
