package models

import (
	"time"

	"github.com/google/uuid"
)

// Page is one LinkedIn company profile. PageID is the company slug from
// linkedin.com/company/<slug>; ID is the row key that posts and employees reference.
type Page struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PageID         string    `db:"page_id" json:"page_id"`
	Name           string    `db:"name" json:"name"`
	URL            string    `db:"url" json:"url"`
	LinkedInID     *string   `db:"linkedin_id" json:"linkedin_id"`
	ProfilePicture *string   `db:"profile_picture" json:"profile_picture"`
	Description    *string   `db:"description" json:"description"`
	Website        *string   `db:"website" json:"website"`
	Industry       *string   `db:"industry" json:"industry"`
	FollowersCount *int64    `db:"followers_count" json:"followers_count"`
	EmployeesCount *int      `db:"employees_count" json:"employees_count"`
	Specialties    *string   `db:"specialties" json:"specialties"`
	FoundedYear    *int      `db:"founded_year" json:"founded_year"`
	Headquarters   *string   `db:"headquarters" json:"headquarters"`
	CompanyType    *string   `db:"company_type" json:"company_type"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PageDetail is the page plus its most recent posts and employees.
type PageDetail struct {
	Page
	Posts     []Post     `json:"posts"`
	Employees []Employee `json:"employees"`
}

// PageCounts holds the number of stored child rows for a page.
type PageCounts struct {
	Posts     int64 `json:"posts"`
	Employees int64 `json:"employees"`
	Comments  int64 `json:"comments"`
}

type PageStats struct {
	PageID      string      `json:"page_id"`
	PageName    string      `json:"page_name"`
	InDatabase  bool        `json:"in_database"`
	Counts      PageCounts  `json:"counts"`
	CompanyInfo CompanyInfo `json:"company_info"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type CompanyInfo struct {
	Followers      *int64  `json:"followers"`
	EmployeesCount *int    `json:"employees_count"`
	Industry       *string `json:"industry"`
}
