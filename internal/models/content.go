package models

import "time"

// Project is a portfolio entry on the public site.
type Project struct {
	ID         string
	Slug       string
	Title      string
	Client     string
	Summary    string
	Body       string
	CoverMedia *string
	Published  bool
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Post is a blog entry. PublishedAt nil means draft.
type Post struct {
	ID          string
	Slug        string
	Title       string
	Excerpt     string
	Body        string
	AuthorID    string
	PublishedAt *time.Time
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "PENDING"
	CommentStatusApproved CommentStatus = "APPROVED"
	CommentStatusRejected CommentStatus = "REJECTED"
)

type Comment struct {
	ID          string
	PostID      string
	AuthorName  string
	AuthorEmail string
	Body        string
	Status      CommentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Media is an uploaded asset stored in the object store, with its metadata
// row kept in Postgres.
type Media struct {
	ID          string
	UploaderID  string
	Bucket      string
	ObjectKey   string
	FileName    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
