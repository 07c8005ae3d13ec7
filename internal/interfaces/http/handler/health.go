package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"github.com/taskprod/backend/internal/infrastructure/scheduler"
	"github.com/taskprod/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobStats exposes worker pool counters
type JobStats interface {
	Stats() scheduler.Stats
}

// HealthHandler answers liveness checks
type HealthHandler struct {
	BaseHandler
	db      Pinger
	jobs    JobStats
	version string
	timeout time.Duration
}

// NewHealthHandler creates a health handler. jobs may be nil when the
// reminder scheduler is disabled.
func NewHealthHandler(db Pinger, jobs JobStats, version string) *HealthHandler {
	return &HealthHandler{db: db, jobs: jobs, version: version, timeout: 2 * time.Second}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Database  string           `json:"database"`
	Scheduler *scheduler.Stats `json:"scheduler,omitempty"`
}

// Health godoc
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Version: h.version, Database: "ok"}
	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		logger.L(ctx).Warn("health check: database unreachable", zap.Error(err))
		resp.Status, resp.Database = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}
	if h.jobs != nil {
		stats := h.jobs.Stats()
		resp.Scheduler = &stats
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
