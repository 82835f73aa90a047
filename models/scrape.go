package models

// ScrapeResult is what one scraping backend returned for a company page,
// already normalized. Row keys (ID, PageID on children) are assigned on save.
type ScrapeResult struct {
	Source    string        `json:"source"`
	Page      Page          `json:"page"`
	Posts     []ScrapedPost `json:"posts"`
	Employees []Employee    `json:"employees"`
}

type ScrapedPost struct {
	Post
	Comments []Comment `json:"comments"`
}

// CommentCount is the number of comments across all scraped posts.
func (r *ScrapeResult) CommentCount() int {
	n := 0
	for _, p := range r.Posts {
		n += len(p.Comments)
	}
	return n
}
