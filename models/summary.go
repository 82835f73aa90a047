package models

import "time"

// Summary sources.
const (
	SummarySourceAI       = "ai"
	SummarySourceFallback = "fallback"
)

type AISummary struct {
	PageID             string    `json:"page_id"`
	PageName           string    `json:"page_name"`
	Summary            string    `json:"summary"`
	FollowerAnalysis   string    `json:"follower_analysis"`
	ContentAnalysis    string    `json:"content_analysis"`
	EngagementInsights string    `json:"engagement_insights"`
	PageType           string    `json:"page_type"`
	Model              string    `json:"model,omitempty"`
	Source             string    `json:"source"`
	GeneratedAt        time.Time `json:"generated_at"`
}
