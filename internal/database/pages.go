package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"linkedin-insights/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const pageColumns = `id, page_id, name, url, linkedin_id, profile_picture, description, website, industry,
	followers_count, employees_count, specialties, founded_year, headquarters, company_type, created_at, updated_at`

func (s *Store) GetPageByPageID(ctx context.Context, pageID string) (*models.Page, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pageColumns+` FROM pages WHERE page_id = $1`, pageID)
	if err != nil {
		return nil, fmt.Errorf("query page %s: %w", pageID, err)
	}
	page, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Page])
	if err != nil {
		return nil, notFound(err)
	}
	return page, nil
}

// ListPages returns pages matching the filter, newest first.
func (s *Store) ListPages(ctx context.Context, f models.PageFilter) ([]models.Page, error) {
	query, args := buildListPagesQuery(f)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	pages, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Page])
	if err != nil {
		return nil, fmt.Errorf("scan pages: %w", err)
	}
	return pages, nil
}

// ListStalePages returns pages last refreshed before the cutoff, oldest first.
func (s *Store) ListStalePages(ctx context.Context, before time.Time, limit int) ([]models.Page, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE updated_at < $1 ORDER BY updated_at LIMIT $2`,
		before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pages: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[models.Page])
}

func (s *Store) PageCounts(ctx context.Context, pageUUID uuid.UUID) (*models.PageCounts, error) {
	var counts models.PageCounts
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM posts WHERE page_id = $1),
			(SELECT count(*) FROM employees WHERE page_id = $1),
			(SELECT count(*) FROM comments c JOIN posts p ON p.id = c.post_id WHERE p.page_id = $1)`,
		pageUUID,
	).Scan(&counts.Posts, &counts.Employees, &counts.Comments)
	if err != nil {
		return nil, fmt.Errorf("count page rows: %w", err)
	}
	return &counts, nil
}

// buildListPagesQuery translates the filter into SQL predicates. The follower range
// is closed on both ends; text filters are case-insensitive substring matches.
func buildListPagesQuery(f models.PageFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.MinFollowers != nil {
		add("followers_count >= $%d", *f.MinFollowers)
	}
	if f.MaxFollowers != nil {
		add("followers_count <= $%d", *f.MaxFollowers)
	}
	if f.Industry != "" {
		add("industry ILIKE $%d", containsPattern(f.Industry))
	}
	if f.NameSearch != "" {
		add("name ILIKE $%d", containsPattern(f.NameSearch))
	}

	var b strings.Builder
	b.WriteString("SELECT " + pageColumns + " FROM pages")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, f.Skip, f.Limit)
	fmt.Fprintf(&b, " ORDER BY created_at DESC, id OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
