package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/feedsync/backend/internal/application/syncer"
	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/infrastructure/apl"
	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/feedsync/backend/internal/infrastructure/saleor"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/feedsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SaleorAPIURLHeader names the shop that sent the webhook
const SaleorAPIURLHeader = "Saleor-Api-Url"

// EventSubmitter enqueues events for the sync controller
type EventSubmitter interface {
	Submit(ctx context.Context, ev syncer.Event) error
}

// WebhookHandler turns shop webhooks into sync events
type WebhookHandler struct {
	BaseHandler
	submitter   EventSubmitter
	apiURL      string
	allowedURL  string
	credentials apl.CredentialStore
	logger      *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler accepting webhooks from apiURL only.
// When credentials is non-nil the shop must also be installed in it under apiURL,
// the key the catalog client reads its token with.
func NewWebhookHandler(submitter EventSubmitter, apiURL string, credentials apl.CredentialStore, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		submitter:   submitter,
		apiURL:      apiURL,
		allowedURL:  normalizeAPIURL(apiURL),
		credentials: credentials,
		logger:      logger,
	}
}

// WebhookAccepted is the body of an accepted webhook
type WebhookAccepted struct {
	Event    string `json:"event"`
	ObjectID string `json:"object_id"`
}

// Handle godoc
// @Summary      Receive a shop webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      202 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /api/webhooks [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	event, err := saleor.ParseEventType(c.GetHeader(middleware.SaleorEventHeader))
	if err != nil {
		h.BadRequest(c, dto.ErrCodeUnknownEvent, err.Error())
		return
	}

	apiURL := normalizeAPIURL(c.GetHeader(SaleorAPIURLHeader))
	if apiURL == "" || apiURL != h.allowedURL {
		logger.L(ctx).Warn("Webhook from unexpected shop rejected",
			zap.String("event", string(event)),
			zap.String("api_url", apiURL),
		)
		h.ErrorWithCode(c, dto.ErrCodeForbiddenHost, "webhook api url is not allowed")
		return
	}
	if !h.installed(c) {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "request body too large")
			return
		}
		h.BadRequest(c, dto.ErrCodeBadRequest, "failed to read request body")
		return
	}

	webhook, err := saleor.ParseWebhook(event, body)
	if err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidPayload, err.Error())
		return
	}
	for _, dropped := range webhook.Dropped {
		logger.L(ctx).Warn("Dropped invalid field from webhook payload",
			zap.String("event", string(event)),
			zap.Error(dropped),
		)
	}
	ev, err := toEvent(webhook)
	if err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidPayload, err.Error())
		return
	}

	if err := h.submitter.Submit(ctx, ev); err != nil {
		logger.L(ctx).Error("Failed to enqueue webhook event",
			zap.String("event", string(event)),
			zap.Error(err),
		)
		h.HandleError(c, err, nil)
		return
	}

	logger.L(ctx).Info("Webhook accepted",
		zap.String("event", string(event)),
		zap.String("object_id", webhook.ObjectID()),
	)
	h.Accepted(c, WebhookAccepted{Event: string(event), ObjectID: webhook.ObjectID()})
}

func (h *WebhookHandler) installed(c *gin.Context) bool {
	if h.credentials == nil {
		return true
	}
	_, err := h.credentials.Get(c.Request.Context(), h.apiURL)
	switch {
	case err == nil:
		return true
	case errors.Is(err, apl.ErrNotFound):
		h.ErrorWithCode(c, dto.ErrCodeUnauthorized, "app is not installed for this api url")
	default:
		logger.L(c.Request.Context()).Error("Failed to read app credentials", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeInternal, "failed to read app credentials")
	}
	return false
}

var errNoObjectID = errors.New("webhook object has no id")

func toEvent(w *saleor.Webhook) (syncer.Event, error) {
	if w.Event.IsDelete() {
		id := w.ObjectID()
		if id == "" {
			return nil, errNoObjectID
		}
		return syncer.Delete{Kind: nodeKind(w), ID: id}, nil
	}

	switch {
	case w.Product != nil:
		return syncer.ProductUpsert{Product: *w.Product}, nil
	case w.Variant != nil:
		return syncer.VariantUpsert{Variant: *w.Variant}, nil
	case w.Category != nil:
		return syncer.CategoryUpsert{Category: *w.Category}, nil
	case w.ShippingZone != nil:
		return syncer.ShippingZoneUpsert{Zone: *w.ShippingZone}, nil
	}
	return nil, saleor.ErrEmptyPayload
}

func nodeKind(w *saleor.Webhook) graph.NodeKind {
	switch {
	case w.Product != nil:
		return graph.NodeProduct
	case w.Variant != nil:
		return graph.NodeVariant
	case w.Category != nil:
		return graph.NodeCategory
	default:
		return graph.NodeShippingZone
	}
}

func normalizeAPIURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
