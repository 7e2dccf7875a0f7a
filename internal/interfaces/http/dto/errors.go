package dto

import (
	"net/http"

	"github.com/feedsync/backend/internal/domain/shared"
)

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeBadRequest     = "ERR_BAD_REQUEST"
	ErrCodeUnknownEvent   = "ERR_UNKNOWN_EVENT"
	ErrCodeInvalidPayload = "ERR_INVALID_PAYLOAD"
	ErrCodeForbiddenHost  = "ERR_FORBIDDEN_HOST"
	ErrCodeUnauthorized   = "ERR_UNAUTHORIZED"

	ErrCodeUnavailable = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeTimeout     = "ERR_TIMEOUT"

	// Sync error kinds
	ErrCodeTransport     = "ERR_SYNC_TRANSPORT"
	ErrCodeStorage       = "ERR_SYNC_STORAGE"
	ErrCodeDataIntegrity = "ERR_SYNC_DATA_INTEGRITY"
	ErrCodeConfiguration = "ERR_SYNC_CONFIGURATION"
	ErrCodeValidation    = "ERR_SYNC_VALIDATION"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeUnknownEvent:   http.StatusBadRequest,
	ErrCodeInvalidPayload: http.StatusBadRequest,
	ErrCodeForbiddenHost:  http.StatusForbidden,
	ErrCodeUnauthorized:   http.StatusUnauthorized,

	ErrCodeUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:     http.StatusGatewayTimeout,

	// Configuration and validation failures are the caller's to fix; the rest is ours
	ErrCodeConfiguration: http.StatusConflict,
	ErrCodeValidation:    http.StatusUnprocessableEntity,
	ErrCodeTransport:     http.StatusInternalServerError,
	ErrCodeStorage:       http.StatusInternalServerError,
	ErrCodeDataIntegrity: http.StatusInternalServerError,
}

var kindCodes = map[shared.ErrorKind]string{
	shared.KindTransport:     ErrCodeTransport,
	shared.KindStorage:       ErrCodeStorage,
	shared.KindDataIntegrity: ErrCodeDataIntegrity,
	shared.KindConfiguration: ErrCodeConfiguration,
	shared.KindValidation:    ErrCodeValidation,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// SyncErrorCode returns the error code for the kind of the first SyncError in err.
// Errors without a kind are internal.
func SyncErrorCode(err error) string {
	kind, ok := shared.KindOf(err)
	if !ok {
		return ErrCodeInternal
	}
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return ErrCodeInternal
}
