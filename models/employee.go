package models

import (
	"time"

	"github.com/google/uuid"
)

type Employee struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PageID         uuid.UUID `db:"page_id" json:"page_id"`
	EmployeeID     string    `db:"employee_id" json:"employee_id"`
	Name           string    `db:"name" json:"name"`
	ProfileURL     *string   `db:"profile_url" json:"profile_url"`
	ProfilePicture *string   `db:"profile_picture" json:"profile_picture"`
	Title          *string   `db:"title" json:"title"`
	Location       *string   `db:"location" json:"location"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
