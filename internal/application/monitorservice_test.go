package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prbeacon/internal/adapter/driven/memory"
	"github.com/ericfisherdev/prbeacon/internal/application"
	"github.com/ericfisherdev/prbeacon/internal/domain/model"
)

// --- Mock implementations ---

type mockGitHubClient struct {
	mu             sync.Mutex
	requests       []model.ReviewRequest
	searchErr      error
	comments       map[string][]model.IssueComment
	reviews        map[string][]model.Review
	reviewComments map[string][]model.ReviewComment
	fetchErr       map[string]error // keyed by request ref; fails all feeds for that request
}

func (m *mockGitHubClient) SearchOpenPullRequests(_ context.Context, _ string) ([]model.ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.requests, nil
}

func (m *mockGitHubClient) FetchIssueComments(_ context.Context, repo string, number int) ([]model.IssueComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := fmt.Sprintf("%s#%d", repo, number)
	if err := m.fetchErr[ref]; err != nil {
		return nil, err
	}
	return m.comments[ref], nil
}

func (m *mockGitHubClient) FetchReviews(_ context.Context, repo string, number int) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := fmt.Sprintf("%s#%d", repo, number)
	if err := m.fetchErr[ref]; err != nil {
		return nil, err
	}
	return m.reviews[ref], nil
}

func (m *mockGitHubClient) FetchReviewComments(_ context.Context, repo string, number int) ([]model.ReviewComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := fmt.Sprintf("%s#%d", repo, number)
	if err := m.fetchErr[ref]; err != nil {
		return nil, err
	}
	return m.reviewComments[ref], nil
}

func (m *mockGitHubClient) FetchAuthenticatedUser(_ context.Context) (string, error) {
	return "alice", nil
}

type mockNotifier struct {
	mu       sync.Mutex
	attempts int
	failNext error // returned once on the next call, then cleared
	events   []model.Event
}

func (m *mockNotifier) Notify(_ context.Context, event model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) notified() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Event(nil), m.events...)
}

func (m *mockNotifier) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// --- Helpers ---

func request(repo string, number int) model.ReviewRequest {
	return model.ReviewRequest{RepoFullName: repo, Number: number, Author: "alice"}
}

// runMonitor starts the service, lets it poll for the given duration, and
// waits for a clean shutdown.
func runMonitor(t *testing.T, svc *application.MonitorService, d time.Duration) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	time.Sleep(d)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}

func TestStart_NotifiesExternalComment(t *testing.T) {
	gh := &mockGitHubClient{
		requests: []model.ReviewRequest{request("owner/repo", 7)},
		comments: map[string][]model.IssueComment{
			"owner/repo#7": {{ID: 1, Author: "bob", Body: "ship it", CreatedAt: time.Now()}},
		},
	}
	notifier := &mockNotifier{}
	seen := memory.NewSeenStore()

	svc := application.NewMonitorService(gh, seen, notifier, nil, "alice", time.Hour, false)
	runMonitor(t, svc, 100*time.Millisecond)

	events := notifier.notified()
	require.Len(t, events, 1)
	assert.Equal(t, model.KindComment, events[0].Kind)
	assert.Equal(t, "bob", events[0].Author)
	assert.Equal(t, 1, seen.Len())
}

func TestStart_SelfEventsDiscardedBeforeDedup(t *testing.T) {
	gh := &mockGitHubClient{
		requests: []model.ReviewRequest{request("owner/repo", 7)},
		comments: map[string][]model.IssueComment{
			// Login casing differs from the configured username.
			"owner/repo#7": {{ID: 1, Author: "ALICE", Body: "note to self", CreatedAt: time.Now()}},
		},
	}
	notifier := &mockNotifier{}
	seen := memory.NewSeenStore()

	svc := application.NewMonitorService(gh, seen, notifier, nil, "alice", time.Hour, false)
	runMonitor(t, svc, 100*time.Millisecond)

	assert.Empty(t, notifier.notified())
	assert.Zero(t, seen.Len(), "a discarded self event must not consume a dedup slot")
}

func TestStart_TestModePassesSelfEvents(t *testing.T) {
	gh := &mockGitHubClient{
		requests: []model.ReviewRequest{request("owner/repo", 7)},
		comments: map[string][]model.IssueComment{
			"owner/repo#7": {{ID: 1, Author: "alice", Body: "testing the light", CreatedAt: time.Now()}},
		},
	}
	notifier := &mockNotifier{}

	svc := application.NewMonitorService(gh, memory.NewSeenStore(), notifier, nil, "alice", time.Hour, true)
	runMonitor(t, svc, 100*time.Millisecond)

	require.Len(t, notifier.notified(), 1)
}

func TestStart_StartupLookbackBoundary(t *testing.T) {
	now := time.Now()
	gh := &mockGitHubClient{
		requests: []model.ReviewRequest{request("owner/repo", 7)},
		comments: map[string][]model.IssueComment{
			"owner/repo#7": {
				{ID: 1, Author: "bob", Body: "recent", CreatedAt: now.Add(-59 * time.Minute)},
				{ID: 2, Author: "bob", Body: "too old", CreatedAt: now.Add(-61 * time.Minute)},
			},
		},
	}
	notifier := &mockNotifier{}

	svc := application.NewMonitorService(gh, memory.NewSeenStore(), notifier, nil, "alice", time.Hour, false)
	runMonitor(t, svc, 100*time.Millisecond)

	events := notifier.notified()
	require.Len(t, events, 1)
	assert.Equal(t, "recent", events[0].Excerpt)
}

func TestStart_OverlappingCyclesNotifyOnce(t *testing.T) {
	gh := &mockGitHubClient{
		requests: []model.ReviewRequest{request("owner/repo", 7)},
		comments: map[string][]model.IssueComment{
			"owner/repo#7": {{ID: 1, Author: "bob", Body: "hello", CreatedAt: time.Now()}},
		},
	}
	notifier := &mockNotifier{}

	// Short interval so several overlapping cycles observe the same comment.
	svc := application.NewMonitorService(gh, memory.NewSeenStore(), notifier, nil, "alice", 20*time.Millisecond, false)
	runMonitor(t, svc, 150*time.Millisecond)

	assert.Len(t, notifier.notified(), 1)
	assert.Equal(t, 1, notifier.attemptCount())
}

func TestStart_RequestFailureIsIsolated(t *testing.T) {
	gh := &mockGitHubClient{
		requests: []model.ReviewRequest{
			request("owner/a", 1),
			request("owner/b", 2),
			request("owner/c", 3),
		},
		comments: map[string][]model.IssueComment{
			"owner/a#1": {{ID: 1, Author: "bob", CreatedAt: time.Now()}},
			"owner/c#3": {{ID: 3, Author: "carol", CreatedAt: time.Now()}},
		},
		fetchErr: map[string]error{
			"owner/b#2": errors.New("pull request was deleted"),
		},
	}
	notifier := &mockNotifier{}

	svc := application.NewMonitorService(gh, memory.NewSeenStore(), notifier, nil, "alice", time.Hour, false)
	runMonitor(t, svc, 100*time.Millisecond)

	events := notifier.notified()
	require.Len(t, events, 2)
	assert.Equal(t, "owner/a", events[0].RepoFullName)
	assert.Equal(t, "owner/c", events[1].RepoFullName)
}

func TestStart_DeviceFailureIsNotRetried(t *testing.T) {
	gh := &mockGitHubClient{
		requests: []model.ReviewRequest{request("owner/repo", 7)},
		reviews: map[string][]model.Review{
			"owner/repo#7": {{ID: 9, ReviewerLogin: "bob", State: model.ReviewStateApproved, SubmittedAt: time.Now()}},
		},
	}
	notifier := &mockNotifier{failNext: fmt.Errorf("playing pattern: %w", model.ErrDevice)}
	seen := memory.NewSeenStore()

	svc := application.NewMonitorService(gh, seen, notifier, nil, "alice", 20*time.Millisecond, false)
	runMonitor(t, svc, 150*time.Millisecond)

	// The identity stayed admitted, so the dropped flash is never replayed.
	assert.Equal(t, 1, notifier.attemptCount())
	assert.Empty(t, notifier.notified())
	assert.Equal(t, 1, seen.Len())
}

func TestStart_MalformedRecordSkippedSiblingsSurvive(t *testing.T) {
	gh := &mockGitHubClient{
		requests: []model.ReviewRequest{request("owner/repo", 7)},
		comments: map[string][]model.IssueComment{
			"owner/repo#7": {
				{ID: 1, Author: "", Body: "ghost", CreatedAt: time.Now()},
				{ID: 2, Author: "bob", Body: "real", CreatedAt: time.Now()},
			},
		},
	}
	notifier := &mockNotifier{}

	svc := application.NewMonitorService(gh, memory.NewSeenStore(), notifier, nil, "alice", time.Hour, false)
	runMonitor(t, svc, 100*time.Millisecond)

	events := notifier.notified()
	require.Len(t, events, 1)
	assert.Equal(t, "real", events[0].Excerpt)
}

func TestStart_AuthFailureStopsTheLoop(t *testing.T) {
	gh := &mockGitHubClient{
		searchErr: fmt.Errorf("searching open pull requests: %w", model.ErrAuth),
	}

	svc := application.NewMonitorService(gh, memory.NewSeenStore(), &mockNotifier{}, nil, "alice", time.Hour, false)

	err := svc.Start(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAuth)
}

func TestStart_TransientDiscoveryFailureKeepsPolling(t *testing.T) {
	gh := &mockGitHubClient{searchErr: errors.New("502 bad gateway")}
	notifier := &mockNotifier{}

	svc := application.NewMonitorService(gh, memory.NewSeenStore(), notifier, nil, "alice", 20*time.Millisecond, false)

	// Let a few failing cycles pass, then make discovery recover.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	time.Sleep(60 * time.Millisecond)
	gh.mu.Lock()
	gh.searchErr = nil
	gh.requests = []model.ReviewRequest{request("owner/repo", 7)}
	gh.comments = map[string][]model.IssueComment{
		"owner/repo#7": {{ID: 1, Author: "bob", CreatedAt: time.Now()}},
	}
	gh.mu.Unlock()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}

	assert.Len(t, notifier.notified(), 1)
}
