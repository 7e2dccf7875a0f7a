package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/feedsync/backend/internal/application/syncer"
	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ControllerStatus exposes the sync controller state
type ControllerStatus interface {
	State() syncer.State
	QueueDepth() int
}

// StoreStatus is the part of the graph store health checks read
type StoreStatus interface {
	SchemaVersion(ctx context.Context) (int, error)
	Issues(ctx context.Context) ([]graph.Issue, error)
}

// HealthHandler reports liveness and the issues of the last resync
type HealthHandler struct {
	BaseHandler
	controller ControllerStatus
	store      StoreStatus
	startTime  time.Time
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(controller ControllerStatus, store StoreStatus) *HealthHandler {
	return &HealthHandler{controller: controller, store: store, startTime: time.Now()}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status         string `json:"status"`
	Controller     string `json:"controller"`
	QueueDepth     int    `json:"queue_depth"`
	SchemaVersion  int    `json:"schema_version"`
	ExpectedSchema int    `json:"expected_schema"`
	Uptime         string `json:"uptime"`
	Error          string `json:"error,omitempty"`
}

// Health godoc
// @Summary      Service health
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:         "healthy",
		Controller:     h.controller.State().String(),
		QueueDepth:     h.controller.QueueDepth(),
		ExpectedSchema: graph.SchemaVersion,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
	}

	version, err := h.store.SchemaVersion(ctx)
	resp.SchemaVersion = version
	switch {
	case err != nil:
		resp.Status = "unhealthy"
		resp.Error = err.Error()
	case version != graph.SchemaVersion:
		resp.Status = "unhealthy"
		resp.Error = "schema version mismatch"
	}

	if resp.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Issues godoc
// @Summary      Issues recorded by the last resync
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/issues [get]
func (h *HealthHandler) Issues(c *gin.Context) {
	issues, err := h.store.Issues(c.Request.Context())
	if err != nil {
		h.HandleError(c, err, nil)
		return
	}
	h.Success(c, dto.NewIssueResponses(issues))
}
