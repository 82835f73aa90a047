package scraper

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	countPattern       = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([KMB]\b)?`)
	rangePattern       = regexp.MustCompile(`(\d+)\s*[-–]\s*(\d+)`)
	numberPattern      = regexp.MustCompile(`\d[\d,]*`)
	yearPattern        = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	relativePattern    = regexp.MustCompile(`(?i)(\d+)\s*(years?|yrs?|y|months?|mos?|weeks?|wks?|w|days?|d|hours?|hrs?|h|minutes?|mins?|m|seconds?|secs?|s)\b`)
	activityIDPattern  = regexp.MustCompile(`activity[:\-](\d+)`)
	numericIDPattern   = regexp.MustCompile(`^\d+$`)
	profileSlugPattern = regexp.MustCompile(`/in/([^/?#]+)`)
)

// ParseCount turns follower-style counts ("2.5M", "15K followers", "12,345") into a number.
// It returns nil when the text holds no number.
func ParseCount(text string) *int64 {
	m := countPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(text)))
	if m == nil {
		return nil
	}

	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}

	switch m[2] {
	case "K":
		n *= 1e3
	case "M":
		n *= 1e6
	case "B":
		n *= 1e9
	}

	v := int64(math.Round(n))
	return &v
}

// ParseEmployeeRange turns a company size like "51-200 employees" into the midpoint of the
// range, or the single number for "10,001+ employees".
func ParseEmployeeRange(text string) *int {
	text = strings.ReplaceAll(text, ",", "")

	if m := rangePattern.FindStringSubmatch(text); m != nil {
		low, _ := strconv.Atoi(m[1])
		high, _ := strconv.Atoi(m[2])
		v := (low + high) / 2
		return &v
	}

	if m := numberPattern.FindString(text); m != "" {
		v, err := strconv.Atoi(m)
		if err == nil {
			return &v
		}
	}
	return nil
}

// ExtractNumber returns the first integer in text, ignoring thousands separators, or 0.
func ExtractNumber(text string) int {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return v
}

// ParseYear extracts a founding year such as "Founded 2019".
func ParseYear(text string) *int {
	m := yearPattern.FindString(text)
	if m == "" {
		return nil
	}
	v, _ := strconv.Atoi(m)
	return &v
}

// ParseRelativeTime resolves timestamps as LinkedIn prints them ("3 days ago", "2w",
// "5h • Edited", RFC 3339) against now. Unrecognised text yields nil.
func ParseRelativeTime(text string, now time.Time) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return &t
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "just now") || lower == "now" {
		return &now
	}

	m := relativePattern.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}

	n, _ := strconv.Atoi(m[1])
	var d time.Duration
	switch unit := m[2]; {
	case strings.HasPrefix(unit, "y"):
		d = time.Duration(n) * 365 * 24 * time.Hour
	case strings.HasPrefix(unit, "mo"):
		d = time.Duration(n) * 30 * 24 * time.Hour
	case strings.HasPrefix(unit, "w"):
		d = time.Duration(n) * 7 * 24 * time.Hour
	case strings.HasPrefix(unit, "d"):
		d = time.Duration(n) * 24 * time.Hour
	case strings.HasPrefix(unit, "h"):
		d = time.Duration(n) * time.Hour
	case strings.HasPrefix(unit, "m"):
		d = time.Duration(n) * time.Minute
	default:
		d = time.Duration(n) * time.Second
	}

	t := now.Add(-d)
	return &t
}

// StableID derives a short deterministic id from the given parts so that repeated
// scrapes of the same item upsert the same row.
func StableID(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(strings.TrimSpace(p)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// PostIDFrom prefers the activity id embedded in a post URL or URN.
func PostIDFrom(pageID, urlOrURN, content string) string {
	if m := activityIDPattern.FindStringSubmatch(urlOrURN); m != nil {
		return m[1]
	}
	if numericIDPattern.MatchString(urlOrURN) {
		return urlOrURN
	}
	if urlOrURN != "" {
		return pageID + "-" + StableID(urlOrURN)
	}
	return pageID + "-" + StableID(truncate(content, 280))
}

// EmployeeIDFrom prefers the public profile slug in the profile URL.
func EmployeeIDFrom(profileURL, name, title string) string {
	if m := profileSlugPattern.FindStringSubmatch(profileURL); m != nil {
		return m[1]
	}
	return StableID(name, title)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
