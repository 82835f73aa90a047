package models

// Pagination is an offset/limit window.
type Pagination struct {
	Skip  int
	Limit int
}

// PageFilter holds the list filters for pages. Nil/empty fields are not applied.
type PageFilter struct {
	Pagination
	MinFollowers *int64
	MaxFollowers *int64
	Industry     string
	NameSearch   string
}
