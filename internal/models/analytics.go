package models

import "time"

// PageView is a single recorded visit.
type PageView struct {
	ID        string
	Path      string
	Referrer  string
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}

// DailyPageViews is a rolled-up view count for one path on one day, written
// by the nightly flush job.
type DailyPageViews struct {
	Day   time.Time
	Path  string
	Views int64
}
