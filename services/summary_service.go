package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"linkedin-insights/internal/ai"
	"linkedin-insights/internal/logger"
	"linkedin-insights/models"
)

// Amount of stored data fed into a summary prompt.
const (
	SummaryPosts     = 25
	SummaryEmployees = 50
	samplePosts      = 3
	sampleLength     = 100
)

// SummaryService turns stored page data into an AI-written analysis.
type SummaryService struct {
	pages     *PageService
	generator ai.Generator
	fallback  bool
	now       func() time.Time
}

// NewSummaryService creates a summary service. generator may be nil when no
// provider is configured; with fallback set a data-derived summary is returned instead.
func NewSummaryService(pages *PageService, generator ai.Generator, fallback bool) *SummaryService {
	return &SummaryService{
		pages:     pages,
		generator: generator,
		fallback:  fallback,
		now:       time.Now,
	}
}

// Model reports the model in use, or "" when summaries come from the fallback only.
func (ss *SummaryService) Model() string {
	if ss.generator == nil {
		return ""
	}
	return ss.generator.Model()
}

// Summarize generates a summary of a stored page. It never scrapes.
func (ss *SummaryService) Summarize(ctx context.Context, rawID string) (*models.AISummary, error) {
	detail, err := ss.pages.StoredDetail(ctx, rawID, SummaryPosts, SummaryEmployees)
	if err != nil {
		return nil, err
	}

	if ss.generator == nil {
		if ss.fallback {
			return ss.fallbackSummary(detail), nil
		}
		return nil, ErrAINotConfigured
	}

	text, err := ss.generator.Generate(ctx, BuildSummaryPrompt(detail))
	if err != nil {
		if ss.fallback {
			logger.Warn("AI summary failed, using fallback",
				"page_id", detail.PageID,
				"model", ss.generator.Model(),
				"error", err,
			)
			return ss.fallbackSummary(detail), nil
		}
		if errors.Is(err, ai.ErrNotConfigured) {
			return nil, ErrAINotConfigured
		}
		return nil, fmt.Errorf("%w: %v", ErrAIFailed, err)
	}

	summary := ParseSummary(text, &detail.Page)
	summary.PageID = detail.PageID
	summary.PageName = detail.Name
	summary.Model = ss.generator.Model()
	summary.Source = models.SummarySourceAI
	summary.GeneratedAt = ss.now().UTC()

	logger.Info("Generated AI summary", "page_id", detail.PageID, "model", summary.Model)
	return summary, nil
}

// BuildSummaryPrompt describes the page, its post engagement and employee sample,
// and asks for a JSON object with one field per analysis section.
func BuildSummaryPrompt(detail *models.PageDetail) string {
	var b strings.Builder

	b.WriteString("Analyze this LinkedIn company page and provide insights.\n\n")
	b.WriteString(buildPageContext(detail))
	b.WriteString(`
Respond with a single JSON object with these string fields:
- "summary": what the company does and its position
- "follower_analysis": insights about the follower base and reach
- "content_analysis": posting patterns and content type
- "engagement_insights": how well the content performs
- "page_type": what kind of LinkedIn presence this is (active, professional, engaging, ...)

Keep it professional, concise and data-driven.`)

	return b.String()
}

func buildPageContext(detail *models.PageDetail) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Company: %s\n", detail.Name)
	fmt.Fprintf(&b, "Industry: %s\n", stringOr(detail.Industry, "Not specified"))
	fmt.Fprintf(&b, "Followers: %s\n", formatThousands(int64Or(detail.FollowersCount)))
	if detail.EmployeesCount != nil {
		fmt.Fprintf(&b, "Employees: %s\n", formatThousands(int64(*detail.EmployeesCount)))
	} else {
		b.WriteString("Employees: Not specified\n")
	}
	fmt.Fprintf(&b, "Description: %s\n", stringOr(detail.Description, "No description"))

	if len(detail.Posts) > 0 {
		var likes, comments int64
		for _, p := range detail.Posts {
			likes += int64(p.LikesCount)
			comments += int64(p.CommentsCount)
		}

		fmt.Fprintf(&b, "\nPosts Analyzed: %d\n", len(detail.Posts))
		fmt.Fprintf(&b, "Total Likes: %s\n", formatThousands(likes))
		fmt.Fprintf(&b, "Total Comments: %s\n", formatThousands(comments))
		fmt.Fprintf(&b, "Average Likes per Post: %.0f\n", float64(likes)/float64(len(detail.Posts)))
		b.WriteString("\nRecent Post Samples:\n")

		for i, p := range detail.Posts {
			if i == samplePosts {
				break
			}
			fmt.Fprintf(&b, "- Post %d: %s... (Likes: %d, Comments: %d)\n",
				i+1, clip(stringOr(p.Content, ""), sampleLength), p.LikesCount, p.CommentsCount)
		}
	}

	if len(detail.Employees) > 0 {
		fmt.Fprintf(&b, "\nEmployee Profiles Analyzed: %d\n", len(detail.Employees))
	}

	return b.String()
}

type summarySections struct {
	Summary            string `json:"summary"`
	FollowerAnalysis   string `json:"follower_analysis"`
	ContentAnalysis    string `json:"content_analysis"`
	EngagementInsights string `json:"engagement_insights"`
	PageType           string `json:"page_type"`
}

func (s summarySections) empty() bool {
	return s.Summary == "" && s.FollowerAnalysis == "" && s.ContentAnalysis == "" &&
		s.EngagementInsights == "" && s.PageType == ""
}

// ParseSummary reads a model reply as JSON, then as text split by section
// headings, and finally keeps the whole reply as the summary.
func ParseSummary(text string, page *models.Page) *models.AISummary {
	var sections summarySections

	if err := json.Unmarshal([]byte(stripCodeFence(text)), &sections); err != nil || sections.empty() {
		sections = splitSections(text)
	}

	if sections.empty() {
		sections = summarySections{
			Summary:            strings.TrimSpace(text),
			FollowerAnalysis:   "Follower base: " + formatThousands(int64Or(page.FollowersCount)),
			ContentAnalysis:    "Active content strategy",
			EngagementInsights: "Professional engagement",
			PageType:           "Corporate LinkedIn presence",
		}
	}

	return &models.AISummary{
		Summary:            sections.Summary,
		FollowerAnalysis:   sections.FollowerAnalysis,
		ContentAnalysis:    sections.ContentAnalysis,
		EngagementInsights: sections.EngagementInsights,
		PageType:           sections.PageType,
	}
}

// splitSections assigns each line to the section named by the most recent heading line.
// Heading lines themselves are dropped; text before any heading is the summary.
func splitSections(text string) summarySections {
	var buf [5]strings.Builder
	current := 0

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "follower") && (strings.Contains(lower, "analysis") || strings.Contains(lower, "insight")):
			current = 1
		case strings.Contains(lower, "content") && (strings.Contains(lower, "strategy") || strings.Contains(lower, "analysis")):
			current = 2
		case strings.Contains(lower, "engagement"):
			current = 3
		case strings.Contains(lower, "page type"):
			current = 4
		default:
			buf[current].WriteString(line)
			buf[current].WriteByte('\n')
		}
	}

	return summarySections{
		Summary:            strings.TrimSpace(buf[0].String()),
		FollowerAnalysis:   strings.TrimSpace(buf[1].String()),
		ContentAnalysis:    strings.TrimSpace(buf[2].String()),
		EngagementInsights: strings.TrimSpace(buf[3].String()),
		PageType:           strings.TrimSpace(buf[4].String()),
	}
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

func (ss *SummaryService) fallbackSummary(detail *models.PageDetail) *models.AISummary {
	content := "Regular posting activity observed."
	engagement := "Professional engagement levels."
	if n := len(detail.Posts); n > 0 {
		var likes, comments int
		for _, p := range detail.Posts {
			likes += p.LikesCount
			comments += p.CommentsCount
		}
		content = fmt.Sprintf("%d recent posts stored.", n)
		engagement = fmt.Sprintf("Posts average %.0f likes and %.0f comments.",
			float64(likes)/float64(n), float64(comments)/float64(n))
	}

	return &models.AISummary{
		PageID:             detail.PageID,
		PageName:           detail.Name,
		Summary:            fmt.Sprintf("%s is a company in the %s industry.", detail.Name, stringOr(detail.Industry, "technology")),
		FollowerAnalysis:   fmt.Sprintf("Has %s followers on LinkedIn.", formatThousands(int64Or(detail.FollowersCount))),
		ContentAnalysis:    content,
		EngagementInsights: engagement,
		PageType:           "Corporate LinkedIn presence",
		Source:             models.SummarySourceFallback,
		GeneratedAt:        ss.now().UTC(),
	}
}

func stringOr(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return *s
}

func int64Or(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// formatThousands renders 1234567 as "1,234,567".
func formatThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
