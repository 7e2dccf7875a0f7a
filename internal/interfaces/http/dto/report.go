package dto

import (
	"time"

	appfeed "github.com/feedsync/backend/internal/application/feed"
	"github.com/feedsync/backend/internal/application/syncer"
	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProblemResponse is one collected error
type ProblemResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SyncReportResponse is the JSON form of a resync report
type SyncReportResponse struct {
	Status         string            `json:"status"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	DurationMs     int64             `json:"duration_ms"`
	Zones          int               `json:"zones"`
	ZonesFailed    int               `json:"zones_failed"`
	Products       int               `json:"products"`
	ProductsFailed int               `json:"products_failed"`
	FeedBuilt      bool              `json:"feed_built"`
	FeedItems      int               `json:"feed_items"`
	FeedDropped    int               `json:"feed_dropped"`
	Errors         []ProblemResponse `json:"errors"`
}

// NewSyncReportResponse converts a report; nil yields nil
func NewSyncReportResponse(r *syncer.SyncReport) *SyncReportResponse {
	if r == nil {
		return nil
	}
	return &SyncReportResponse{
		Status:         r.Status.String(),
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		DurationMs:     r.Duration().Milliseconds(),
		Zones:          r.Zones,
		ZonesFailed:    r.ZonesFailed,
		Products:       r.Products,
		ProductsFailed: r.ProductsFailed,
		FeedBuilt:      r.FeedBuilt,
		FeedItems:      r.FeedItems,
		FeedDropped:    r.FeedDropped,
		Errors:         NewProblems(r.Errors),
	}
}

// FeedSummaryResponse describes a generated feed without the document
type FeedSummaryResponse struct {
	Items    int               `json:"items"`
	Dropped  int               `json:"dropped"`
	Bytes    int               `json:"bytes"`
	Problems []ProblemResponse `json:"problems"`
}

// NewFeedSummaryResponse converts a feed result; nil yields nil
func NewFeedSummaryResponse(r *appfeed.Result) *FeedSummaryResponse {
	if r == nil {
		return nil
	}
	return &FeedSummaryResponse{
		Items:    r.Items,
		Dropped:  r.Dropped,
		Bytes:    len(r.Document),
		Problems: NewProblems(r.Problems),
	}
}

// NewProblems converts errors, labelling those without a kind INTERNAL
func NewProblems(errs []error) []ProblemResponse {
	out := make([]ProblemResponse, 0, len(errs))
	for _, err := range errs {
		kind := "INTERNAL"
		if k, ok := shared.KindOf(err); ok {
			kind = k.String()
		}
		out = append(out, ProblemResponse{Kind: kind, Message: err.Error()})
	}
	return out
}

// IssueResponse is a persisted issue of the last resync
type IssueResponse struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewIssueResponses converts stored issues
func NewIssueResponses(issues []graph.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for _, i := range issues {
		out = append(out, IssueResponse{ID: i.ID, Kind: i.Kind, Message: i.Message, RecordedAt: i.RecordedAt})
	}
	return out
}
