package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkedin-insights/models"
)

// PageBounds describes the accepted limit range of a list endpoint.
type PageBounds struct {
	DefaultLimit int
	MaxLimit     int
}

// Bounds per list endpoint.
var (
	PagesBounds     = PageBounds{DefaultLimit: 10, MaxLimit: 100}
	PostsBounds     = PageBounds{DefaultLimit: 15, MaxLimit: 25}
	EmployeesBounds = PageBounds{DefaultLimit: 50, MaxLimit: 100}
	CommentsBounds  = PageBounds{DefaultLimit: 50, MaxLimit: 100}
)

// ParsePagination reads skip (>= 0) and limit (1..MaxLimit) from the query string.
// Out-of-range values are rejected rather than clamped.
func ParsePagination(c *gin.Context, b PageBounds) (models.Pagination, error) {
	p := models.Pagination{Limit: b.DefaultLimit}

	if raw := c.Query("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return p, fmt.Errorf("skip must be an integer >= 0")
		}
		p.Skip = skip
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > b.MaxLimit {
			return p, fmt.Errorf("limit must be an integer between 1 and %d", b.MaxLimit)
		}
		p.Limit = limit
	}

	return p, nil
}

// ParsePageFilter reads pagination plus the follower, industry and name filters.
func ParsePageFilter(c *gin.Context, b PageBounds) (models.PageFilter, error) {
	p, err := ParsePagination(c, b)
	if err != nil {
		return models.PageFilter{}, err
	}

	f := models.PageFilter{
		Pagination: p,
		Industry:   c.Query("industry"),
		NameSearch: c.Query("name_search"),
	}

	if f.MinFollowers, err = optionalInt64Query(c, "min_followers"); err != nil {
		return f, err
	}
	if f.MaxFollowers, err = optionalInt64Query(c, "max_followers"); err != nil {
		return f, err
	}
	if f.MinFollowers != nil && f.MaxFollowers != nil && *f.MinFollowers > *f.MaxFollowers {
		return f, fmt.Errorf("min_followers must not exceed max_followers")
	}

	return f, nil
}

// QueryBool parses a boolean query parameter, returning def when it is absent.
func QueryBool(c *gin.Context, key string, def bool) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s must be true or false", key)
	}
	return v, nil
}

func optionalInt64Query(c *gin.Context, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%s must be an integer >= 0", key)
	}
	return &v, nil
}
