package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/feedsync/backend/internal/application/syncer"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeUnknownEvent, http.StatusBadRequest},
		{ErrCodeForbiddenHost, http.StatusForbidden},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeConfiguration, http.StatusConflict},
		{ErrCodeValidation, http.StatusUnprocessableEntity},
		{ErrCodeTransport, http.StatusInternalServerError},
		{ErrCodeStorage, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestSyncErrorCode(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"configuration", shared.NewConfigurationError("feed.delivery", cause), ErrCodeConfiguration},
		{"validation", shared.NewValidationError("feed.validate", cause), ErrCodeValidation},
		{"wrapped transport", fmt.Errorf("resync: %w", shared.NewTransportError("saleor.fetch", cause)), ErrCodeTransport},
		{"storage", shared.NewStorageError("graph.upsert", cause), ErrCodeStorage},
		{"data integrity", shared.DataIntegrityf("feed.item", "no category"), ErrCodeDataIntegrity},
		{"plain", cause, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SyncErrorCode(tt.err))
		})
	}
}

func TestErrorCodeConstants(t *testing.T) {
	for code := range kindCodes {
		_, ok := ErrorCodeHTTPStatus[kindCodes[code]]
		assert.True(t, ok, "kind %s has no status", code)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(ErrCodeBadRequest, "bad", "req-1").WithData(map[string]int{"n": 1})

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, map[string]int{"n": 1}, resp.Data)
}

func TestNewSyncReportResponse(t *testing.T) {
	assert.Nil(t, NewSyncReportResponse(nil))

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := &syncer.SyncReport{
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Status:     syncer.StatusPartial,
		Zones:      2,
		Products:   3,
		Errors: []error{
			shared.DataIntegrityf("sync.product", "product %s has no category", "p1"),
			errors.New("plain"),
		},
	}

	resp := NewSyncReportResponse(report)
	require.NotNil(t, resp)
	assert.Equal(t, "PARTIAL", resp.Status)
	assert.Equal(t, int64(1500), resp.DurationMs)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "DATA_INTEGRITY", resp.Errors[0].Kind)
	assert.Equal(t, "INTERNAL", resp.Errors[1].Kind)
}
