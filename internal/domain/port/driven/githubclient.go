package driven

import (
	"context"

	"github.com/ericfisherdev/prbeacon/internal/domain/model"
)

// GitHubClient defines the driven port for interacting with the GitHub API.
type GitHubClient interface {
	// SearchOpenPullRequests returns the open pull requests authored by the
	// given user across every repository the credentials can see. An error
	// matching model.ErrAuth means the credentials were rejected; any other
	// error is transient.
	SearchOpenPullRequests(ctx context.Context, username string) ([]model.ReviewRequest, error)

	FetchReviews(ctx context.Context, repoFullName string, prNumber int) ([]model.Review, error)
	FetchReviewComments(ctx context.Context, repoFullName string, prNumber int) ([]model.ReviewComment, error)
	FetchIssueComments(ctx context.Context, repoFullName string, prNumber int) ([]model.IssueComment, error)

	// FetchAuthenticatedUser returns the login of the user the credentials
	// belong to.
	FetchAuthenticatedUser(ctx context.Context) (string, error)
}
