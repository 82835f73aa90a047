package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"2.5M", 2_500_000},
		{"15K followers", 15_000},
		{"12,345 followers", 12_345},
		{"1.2k", 1_200},
		{"3B", 3_000_000_000},
		{"12,345 members", 12_345},
		{"  87  ", 87},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseCount(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, ParseCount("no followers yet"))
	assert.Nil(t, ParseCount(""))
}

func TestParseEmployeeRange(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"51-200 employees", 125},
		{"1,001-5,000 employees", 3000},
		{"10,001+ employees", 10001},
		{"2 - 10", 6},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseEmployeeRange(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
	assert.Nil(t, ParseEmployeeRange("Self-employed"))
}

func TestExtractNumberAndYear(t *testing.T) {
	assert.Equal(t, 1234, ExtractNumber("1,234 comments"))
	assert.Equal(t, 0, ExtractNumber("comment"))

	year := ParseYear("Founded 2019")
	require.NotNil(t, year)
	assert.Equal(t, 2019, *year)
	assert.Nil(t, ParseYear("recently"))
}

func TestParseRelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"3 days ago", now.Add(-3 * 24 * time.Hour)},
		{"2w", now.Add(-14 * 24 * time.Hour)},
		{"5h • Edited", now.Add(-5 * time.Hour)},
		{"45m", now.Add(-45 * time.Minute)},
		{"2 minutes ago", now.Add(-2 * time.Minute)},
		{"1mo", now.Add(-30 * 24 * time.Hour)},
		{"1yr", now.Add(-365 * 24 * time.Hour)},
		{"just now", now},
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseRelativeTime(tt.in, now)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s want %s", got, tt.want)
		})
	}

	assert.Nil(t, ParseRelativeTime("", now))
	assert.Nil(t, ParseRelativeTime("Promoted", now))
}

func TestStableIDs(t *testing.T) {
	assert.Equal(t, StableID("a", "b"), StableID("a", "b"))
	assert.NotEqual(t, StableID("ab", ""), StableID("a", "b"))
	assert.Len(t, StableID("x"), 16)

	assert.Equal(t, "7199999999999999999",
		PostIDFrom("acme", "https://www.linkedin.com/feed/update/urn:li:activity:7199999999999999999/", ""))
	assert.Equal(t, "7100000000000000000",
		PostIDFrom("acme", "https://www.linkedin.com/posts/acme_launch-activity-7100000000000000000-abcd", ""))
	assert.Equal(t, PostIDFrom("acme", "", "same text"), PostIDFrom("acme", "", "same text"))

	assert.Equal(t, "jane-doe-123", EmployeeIDFrom("https://www.linkedin.com/in/jane-doe-123", "Jane", ""))
	assert.Equal(t, StableID("Jane", "CTO"), EmployeeIDFrom("", "Jane", "CTO"))
}
