package syncer

import (
	"errors"
	"time"

	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/domain/shared"
)

// Status summarises how a full resync ended
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// SyncReport aggregates the outcome of a full resync.
// Errors holds every per-item problem plus the fatal error, if any.
type SyncReport struct {
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         Status
	Zones          int
	ZonesFailed    int
	Products       int
	ProductsFailed int
	FeedItems      int
	FeedDropped    int
	FeedBuilt      bool
	Errors         []error
}

func newReport(now time.Time) *SyncReport {
	return &SyncReport{StartedAt: now}
}

func (r *SyncReport) add(errs ...error) {
	for _, err := range errs {
		if err != nil {
			r.Errors = append(r.Errors, err)
		}
	}
}

// finish sets the end time and status; fatal is the error that aborted the run
func (r *SyncReport) finish(now time.Time, fatal error) {
	r.FinishedAt = now
	switch {
	case fatal != nil:
		r.Status = StatusFailed
	case len(r.Errors) == 0:
		r.Status = StatusSuccess
	default:
		r.Status = StatusPartial
	}
}

// Duration is the wall time of the run
func (r *SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Err joins every collected error
func (r *SyncReport) Err() error {
	return errors.Join(r.Errors...)
}

// Issues converts the collected errors into persisted issues
func (r *SyncReport) Issues() []graph.Issue {
	issues := make([]graph.Issue, 0, len(r.Errors))
	for _, err := range r.Errors {
		issues = append(issues, issueOf(err, r.FinishedAt))
	}
	return issues
}

func issueOf(err error, at time.Time) graph.Issue {
	kind, ok := shared.KindOf(err)
	if !ok {
		kind = "INTERNAL"
	}
	return graph.Issue{Kind: kind.String(), Message: err.Error(), RecordedAt: at}
}
