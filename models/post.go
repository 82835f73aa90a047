package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PageID        uuid.UUID  `db:"page_id" json:"page_id"`
	PostID        string     `db:"post_id" json:"post_id"`
	Content       *string    `db:"content" json:"content"`
	PostedAt      *time.Time `db:"posted_at" json:"posted_at"`
	LikesCount    int        `db:"likes_count" json:"likes_count"`
	CommentsCount int        `db:"comments_count" json:"comments_count"`
	SharesCount   int        `db:"shares_count" json:"shares_count"`
	PostURL       *string    `db:"post_url" json:"post_url"`
	MediaURL      *string    `db:"media_url" json:"media_url"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type Comment struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PostID           uuid.UUID  `db:"post_id" json:"post_id"`
	CommentID        string     `db:"comment_id" json:"comment_id"`
	AuthorName       *string    `db:"author_name" json:"author_name"`
	AuthorProfileURL *string    `db:"author_profile_url" json:"author_profile_url"`
	Content          *string    `db:"content" json:"content"`
	CommentedAt      *time.Time `db:"commented_at" json:"commented_at"`
	LikesCount       int        `db:"likes_count" json:"likes_count"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
