package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	appfeed "github.com/feedsync/backend/internal/application/feed"
	"github.com/feedsync/backend/internal/application/syncer"
	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FeedItemsHeader reports how many items the served feed contains
const FeedItemsHeader = "X-Feed-Items"

// FeedRequester runs feed and resync round trips through the controller
type FeedRequester interface {
	RequestFeed(ctx context.Context) (*appfeed.Result, error)
	RequestResync(ctx context.Context) (*syncer.SyncReport, error)
}

// FeedHandler serves the generated feed and on-demand resyncs
type FeedHandler struct {
	BaseHandler
	requester FeedRequester
	timeout   time.Duration
}

// NewFeedHandler creates a FeedHandler. A positive timeout bounds each round trip.
func NewFeedHandler(requester FeedRequester, timeout time.Duration) *FeedHandler {
	return &FeedHandler{requester: requester, timeout: timeout}
}

func (h *FeedHandler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.timeout)
	}
	return context.WithCancel(c.Request.Context())
}

// GetFeed godoc
// @Summary      Generate the Heureka feed
// @Tags         feed
// @Produce      xml
// @Success      200 {string} string
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /heureka.xml [get]
func (h *FeedHandler) GetFeed(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.requester.RequestFeed(ctx)
	if err != nil {
		logger.L(ctx).Error("Feed request failed", zap.Error(err))
		h.HandleError(c, err, nil)
		return
	}
	if len(result.Problems) > 0 {
		logger.L(ctx).Warn("Feed generated with dropped items",
			zap.Int("items", result.Items),
			zap.Int("dropped", result.Dropped),
			zap.Error(result.Err()),
		)
	}

	c.Header(FeedItemsHeader, strconv.Itoa(result.Items))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", result.Document)
}

// Summary godoc
// @Summary      Generate the feed and describe it
// @Tags         feed
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /api/feed/summary [get]
func (h *FeedHandler) Summary(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.requester.RequestFeed(ctx)
	if err != nil {
		h.HandleError(c, err, nil)
		return
	}
	h.Success(c, dto.NewFeedSummaryResponse(result))
}

// Resync godoc
// @Summary      Run a full catalog resync
// @Tags         feed
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/resync [post]
func (h *FeedHandler) Resync(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	report, err := h.requester.RequestResync(ctx)
	body := dto.NewSyncReportResponse(report)
	if err != nil {
		logger.L(ctx).Error("Resync request failed", zap.Error(err))
		if body != nil {
			h.HandleError(c, err, body)
		} else {
			h.HandleError(c, err, nil)
		}
		return
	}
	h.Success(c, body)
}
