// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/prbeacon/internal/domain/model"
	"github.com/ericfisherdev/prbeacon/internal/domain/port/driven"
	"github.com/ericfisherdev/prbeacon/internal/metrics"
)

// startupLookback is how much history the first cycle re-scans to catch
// activity that happened while the monitor was not running.
const startupLookback = time.Hour

// notifyGap is the pause between two flashes in the same cycle so
// consecutive notifications read as distinct.
const notifyGap = 2 * time.Second

// MonitorService drives the poll loop: discover the monitored user's open
// pull requests, collect activity since the cutoff, classify it, filter
// already-seen and self-authored events, and flash the device for the rest.
type MonitorService struct {
	ghClient driven.GitHubClient
	seen     driven.SeenStore
	notifier driven.Notifier
	exporter *metrics.Exporter
	username string
	interval time.Duration
	testMode bool

	firstCycle bool
}

// NewMonitorService creates a MonitorService with all required dependencies.
// exporter may be nil when metrics are not configured.
func NewMonitorService(
	ghClient driven.GitHubClient,
	seen driven.SeenStore,
	notifier driven.Notifier,
	exporter *metrics.Exporter,
	username string,
	interval time.Duration,
	testMode bool,
) *MonitorService {
	return &MonitorService{
		ghClient:   ghClient,
		seen:       seen,
		notifier:   notifier,
		exporter:   exporter,
		username:   username,
		interval:   interval,
		testMode:   testMode,
		firstCycle: true,
	}
}

// Start runs the poll loop until the context is canceled or the GitHub
// credentials are rejected. It runs an immediate cycle, then polls on the
// configured interval. One cycle runs to completion before the next begins;
// a failed cycle is logged and retried on the next tick. Only an error
// matching model.ErrAuth ends the loop, since waiting will not fix it.
func (s *MonitorService) Start(ctx context.Context) error {
	slog.Info("monitor started",
		"username", s.username,
		"interval", s.interval,
		"test_mode", s.testMode,
	)

	if err := s.runCycle(ctx); err != nil {
		if errors.Is(err, model.ErrAuth) {
			return err
		}
		slog.Error("poll cycle failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return nil
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				if errors.Is(err, model.ErrAuth) {
					return err
				}
				slog.Error("poll cycle failed", "error", err)
			}
		}
	}
}

// cutoff returns the lower bound for activity this cycle: the startup
// lookback on the first cycle, twice the poll interval afterwards. The
// overlap with the previous cycle is deliberate; re-observed events are
// absorbed by the seen store, never re-notified.
func (s *MonitorService) cutoff(now time.Time) time.Time {
	if s.firstCycle {
		return now.Add(-startupLookback)
	}
	return now.Add(-2 * s.interval)
}

// runCycle executes one discovery, collect, classify, dedup, notify pass.
func (s *MonitorService) runCycle(ctx context.Context) error {
	start := time.Now()
	cutoff := s.cutoff(start)

	requests, err := s.ghClient.SearchOpenPullRequests(ctx, s.username)
	if err != nil {
		s.exporter.CycleError("discovery")
		return fmt.Errorf("discovering open pull requests: %w", err)
	}
	s.firstCycle = false

	var notified, fetchErrors int
	for _, req := range requests {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		events, err := s.collect(ctx, req, cutoff)
		if err != nil {
			// One inaccessible request must not starve the others.
			slog.Error("activity fetch failed", "request", req.Ref(), "error", err)
			s.exporter.CycleError("collect")
			fetchErrors++
			continue
		}

		notified += s.process(ctx, events)
	}

	// Nothing the collector returns can be older than the lookback horizon,
	// so identities beyond twice that window can never be re-observed.
	pruned := s.seen.Prune(start.Add(-2 * startupLookback))

	s.exporter.CycleComplete(s.seen.Len(), time.Since(start))
	slog.Info("poll cycle complete",
		"requests", len(requests),
		"notified", notified,
		"errors", fetchErrors,
		"pruned", pruned,
		"seen", s.seen.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// collect fetches the three activity feeds for one request and returns the
// classified events created at or after the cutoff. Malformed records are
// skipped; their siblings still classify.
func (s *MonitorService) collect(ctx context.Context, req model.ReviewRequest, cutoff time.Time) ([]model.Event, error) {
	var events []model.Event

	comments, err := s.ghClient.FetchIssueComments(ctx, req.RepoFullName, req.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching comments for %s: %w", req.Ref(), err)
	}
	for _, c := range comments {
		if c.CreatedAt.Before(cutoff) {
			continue
		}
		event, err := ClassifyIssueComment(req, c)
		if err != nil {
			slog.Warn("skipping record", "request", req.Ref(), "error", err)
			continue
		}
		events = append(events, event)
	}

	reviews, err := s.ghClient.FetchReviews(ctx, req.RepoFullName, req.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching reviews for %s: %w", req.Ref(), err)
	}
	for _, r := range reviews {
		if r.SubmittedAt.Before(cutoff) {
			continue
		}
		event, ok, err := ClassifyReview(req, r)
		if err != nil {
			slog.Warn("skipping record", "request", req.Ref(), "error", err)
			continue
		}
		if !ok {
			continue
		}
		events = append(events, event)
	}

	reviewComments, err := s.ghClient.FetchReviewComments(ctx, req.RepoFullName, req.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching review comments for %s: %w", req.Ref(), err)
	}
	for _, c := range reviewComments {
		if c.CreatedAt.Before(cutoff) {
			continue
		}
		event, err := ClassifyReviewComment(req, c)
		if err != nil {
			slog.Warn("skipping record", "request", req.Ref(), "error", err)
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// process runs self-filtering, dedup, and notification for one request's
// events and returns how many flashes played. Self-authored events are
// discarded before the seen store is consulted, so a discarded event never
// occupies an identity slot. A failed flash is logged and never retried:
// the identity stays admitted, trading one lost notification for never
// re-flashing stale activity.
func (s *MonitorService) process(ctx context.Context, events []model.Event) int {
	var notified int
	for _, event := range events {
		if !s.testMode && IsSelfAuthored(event, s.username) {
			continue
		}

		if !s.seen.Admit(event.ID, time.Now()) {
			continue
		}

		s.exporter.Event(event.Kind)
		slog.Info("new activity",
			"kind", event.Kind,
			"request", fmt.Sprintf("%s#%d", event.RepoFullName, event.PRNumber),
			"author", event.Author,
			"excerpt", event.Excerpt,
		)

		if notified > 0 {
			select {
			case <-ctx.Done():
				return notified
			case <-time.After(notifyGap):
			}
		}

		if err := s.notifier.Notify(ctx, event); err != nil {
			slog.Error("notification dropped", "kind", event.Kind, "id", event.ID, "error", err)
			s.exporter.NotificationDropped()
			continue
		}
		notified++
	}
	return notified
}
