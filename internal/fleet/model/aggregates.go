package model

import "time"

// PostTotals is the all-time post outcome aggregate for one account or one
// tenant, produced in a single store pass.
type PostTotals struct {
	Total           int
	Success         int
	Failed          int
	TotalResponseMs int64
	LastPostAt      *time.Time
}

// TimedError is a failed post's error text with its timestamp. The
// collector pattern-matches these for rate-limit detection.
type TimedError struct {
	Text string
	At   time.Time
}
