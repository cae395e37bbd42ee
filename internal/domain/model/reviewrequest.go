package model

import (
	"fmt"
	"time"
)

// ReviewRequest is an open pull request authored by the monitored user.
// It is rebuilt from discovery on every cycle and never cached across cycles.
type ReviewRequest struct {
	RepoFullName string
	Number       int
	Title        string
	Author       string
	URL          string
	UpdatedAt    time.Time
}

// Ref returns the "owner/repo#number" form used in logs and event identities.
func (r ReviewRequest) Ref() string {
	return fmt.Sprintf("%s#%d", r.RepoFullName, r.Number)
}
