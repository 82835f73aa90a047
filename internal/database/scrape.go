package database

import (
	"context"
	"fmt"

	"linkedin-insights/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Optional page columns keep their stored value when a scrape did not return them.
const upsertPageSQL = `
INSERT INTO pages (page_id, name, url, linkedin_id, profile_picture, description, website, industry,
	followers_count, employees_count, specialties, founded_year, headquarters, company_type)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (page_id) DO UPDATE SET
	name            = EXCLUDED.name,
	url             = EXCLUDED.url,
	linkedin_id     = COALESCE(EXCLUDED.linkedin_id, pages.linkedin_id),
	profile_picture = COALESCE(EXCLUDED.profile_picture, pages.profile_picture),
	description     = COALESCE(EXCLUDED.description, pages.description),
	website         = COALESCE(EXCLUDED.website, pages.website),
	industry        = COALESCE(EXCLUDED.industry, pages.industry),
	followers_count = COALESCE(EXCLUDED.followers_count, pages.followers_count),
	employees_count = COALESCE(EXCLUDED.employees_count, pages.employees_count),
	specialties     = COALESCE(EXCLUDED.specialties, pages.specialties),
	founded_year    = COALESCE(EXCLUDED.founded_year, pages.founded_year),
	headquarters    = COALESCE(EXCLUDED.headquarters, pages.headquarters),
	company_type    = COALESCE(EXCLUDED.company_type, pages.company_type),
	updated_at      = now()
RETURNING ` + pageColumns

const upsertPostSQL = `
INSERT INTO posts (page_id, post_id, content, posted_at, likes_count, comments_count, shares_count, post_url, media_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (post_id) DO UPDATE SET
	content        = COALESCE(EXCLUDED.content, posts.content),
	posted_at      = COALESCE(posts.posted_at, EXCLUDED.posted_at),
	likes_count    = EXCLUDED.likes_count,
	comments_count = EXCLUDED.comments_count,
	shares_count   = EXCLUDED.shares_count,
	post_url       = COALESCE(EXCLUDED.post_url, posts.post_url),
	media_url      = COALESCE(EXCLUDED.media_url, posts.media_url),
	updated_at     = now()
RETURNING id`

const upsertCommentSQL = `
INSERT INTO comments (post_id, comment_id, author_name, author_profile_url, content, commented_at, likes_count)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (comment_id) DO UPDATE SET
	author_name        = COALESCE(EXCLUDED.author_name, comments.author_name),
	author_profile_url = COALESCE(EXCLUDED.author_profile_url, comments.author_profile_url),
	content            = COALESCE(EXCLUDED.content, comments.content),
	likes_count        = EXCLUDED.likes_count,
	updated_at         = now()`

const upsertEmployeeSQL = `
INSERT INTO employees (page_id, employee_id, name, profile_url, profile_picture, title, location)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (page_id, employee_id) DO UPDATE SET
	name            = EXCLUDED.name,
	profile_url     = COALESCE(EXCLUDED.profile_url, employees.profile_url),
	profile_picture = COALESCE(EXCLUDED.profile_picture, employees.profile_picture),
	title           = COALESCE(EXCLUDED.title, employees.title),
	location        = COALESCE(EXCLUDED.location, employees.location),
	updated_at      = now()`

// SaveScrape upserts one scrape result in a single transaction and returns the stored page.
func (s *Store) SaveScrape(ctx context.Context, res *models.ScrapeResult) (*models.Page, error) {
	var stored *models.Page

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		p := res.Page
		rows, err := tx.Query(ctx, upsertPageSQL,
			p.PageID, p.Name, p.URL, p.LinkedInID, p.ProfilePicture, p.Description, p.Website, p.Industry,
			p.FollowersCount, p.EmployeesCount, p.Specialties, p.FoundedYear, p.Headquarters, p.CompanyType)
		if err != nil {
			return fmt.Errorf("upsert page %s: %w", p.PageID, err)
		}
		stored, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Page])
		if err != nil {
			return fmt.Errorf("upsert page %s: %w", p.PageID, err)
		}

		for _, post := range res.Posts {
			if err := upsertPost(ctx, tx, stored.ID, post); err != nil {
				return err
			}
		}

		return upsertEmployees(ctx, tx, stored.ID, res.Employees)
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

func upsertPost(ctx context.Context, tx pgx.Tx, pageUUID uuid.UUID, post models.ScrapedPost) error {
	var postUUID uuid.UUID
	err := tx.QueryRow(ctx, upsertPostSQL,
		pageUUID, post.PostID, post.Content, post.PostedAt, post.LikesCount, post.CommentsCount,
		post.SharesCount, post.PostURL, post.MediaURL,
	).Scan(&postUUID)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", post.PostID, err)
	}

	if len(post.Comments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range post.Comments {
		batch.Queue(upsertCommentSQL,
			postUUID, c.CommentID, c.AuthorName, c.AuthorProfileURL, c.Content, c.CommentedAt, c.LikesCount)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert comments of post %s: %w", post.PostID, err)
	}
	return nil
}

func upsertEmployees(ctx context.Context, tx pgx.Tx, pageUUID uuid.UUID, employees []models.Employee) error {
	if len(employees) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range employees {
		batch.Queue(upsertEmployeeSQL,
			pageUUID, e.EmployeeID, e.Name, e.ProfileURL, e.ProfilePicture, e.Title, e.Location)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert employees: %w", err)
	}
	return nil
}
