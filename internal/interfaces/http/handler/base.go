// Package handler holds the gin handlers of the feed service.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/feedsync/backend/internal/application/syncer"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/feedsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, code, message string) {
	h.Error(c, http.StatusBadRequest, code, message)
}

// HandleError maps err to a status and sends it along with data, which may be nil
func (h *BaseHandler) HandleError(c *gin.Context, err error, data any) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code, message := classify(err)
	resp := dto.NewErrorResponse(code, message, middleware.GetRequestID(c))
	if kind, ok := shared.KindOf(err); ok {
		resp.Error.Kind = kind.String()
	}
	if data != nil {
		resp = resp.WithData(data)
	}
	c.JSON(dto.GetHTTPStatus(code), resp)
}

func classify(err error) (code, message string) {
	var domainErr *shared.DomainError
	switch {
	case errors.Is(err, syncer.ErrClosed):
		return dto.ErrCodeUnavailable, "sync controller is shutting down"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dto.ErrCodeTimeout, "request timed out waiting for the sync controller"
	case errors.As(err, &domainErr):
		return dto.ErrCodeBadRequest, domainErr.Message
	}
	return dto.SyncErrorCode(err), err.Error()
}
