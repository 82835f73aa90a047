package services

import "errors"

// Errors returned by the services. Handlers map them to HTTP statuses with
// utils.RespondWithServiceError.
var (
	ErrInvalidPageID   = errors.New("invalid page id")
	ErrInvalidFilter   = errors.New("invalid filter")
	ErrPageNotFound    = errors.New("page not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrScrapeFailed    = errors.New("scrape failed")
	ErrStaleServed     = errors.New("scrape failed, stored page served")
	ErrAINotConfigured = errors.New("ai provider not configured")
	ErrAIFailed        = errors.New("ai summary failed")
)
