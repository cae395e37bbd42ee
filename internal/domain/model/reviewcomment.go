package model

import "time"

// ReviewComment represents a comment on a specific line within a pull
// request review.
type ReviewComment struct {
	ID        int64
	ReviewID  int64
	Author    string
	Body      string
	Path      string
	CreatedAt time.Time
}
