package database

import (
	"context"
	"fmt"

	"linkedin-insights/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, page_id, post_id, content, posted_at, likes_count, comments_count, shares_count,
	post_url, media_url, created_at, updated_at`

const employeeColumns = `id, page_id, employee_id, name, profile_url, profile_picture, title, location,
	created_at, updated_at`

const commentColumns = `id, post_id, comment_id, author_name, author_profile_url, content, commented_at,
	likes_count, created_at, updated_at`

func (s *Store) ListPosts(ctx context.Context, pageUUID uuid.UUID, p models.Pagination) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE page_id = $1
		ORDER BY posted_at DESC NULLS LAST, created_at DESC OFFSET $2 LIMIT $3`,
		pageUUID, p.Skip, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[models.Post])
}

func (s *Store) ListEmployees(ctx context.Context, pageUUID uuid.UUID, p models.Pagination) ([]models.Employee, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees WHERE page_id = $1
		ORDER BY name, id OFFSET $2 LIMIT $3`,
		pageUUID, p.Skip, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[models.Employee])
}

// ListComments returns the comments of the post with the given external post id.
func (s *Store) ListComments(ctx context.Context, postID string, p models.Pagination) ([]models.Comment, error) {
	var postUUID uuid.UUID
	if err := s.pool.QueryRow(ctx, `SELECT id FROM posts WHERE post_id = $1`, postID).Scan(&postUUID); err != nil {
		return nil, notFound(err)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+commentColumns+` FROM comments WHERE post_id = $1
		ORDER BY commented_at DESC NULLS LAST, created_at DESC OFFSET $2 LIMIT $3`,
		postUUID, p.Skip, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[models.Comment])
}
