package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/mirador-triage/internal/services"
)

// Handlers exposes the triage service over HTTP JSON endpoints for the
// reporting layer.
type Handlers struct {
	service *services.TriageService
	logger  *slog.Logger
}

// NewHandlers constructs the handler set.
func NewHandlers(service *services.TriageService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// Register attaches the triage routes to the router.
func (h *Handlers) Register(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	v1 := router.Group("/api/v1")
	v1.POST("/analyze", h.Analyze)
	v1.GET("/trends", h.FleetTrends)
	v1.GET("/trends/:monitor_id", h.MonitorTrends)
	v1.GET("/snapshots/weeks", h.ListWeeks)
	v1.POST("/snapshots/prune", h.PruneSnapshots)
}

// POST /api/v1/analyze - run the triage pipeline over an event batch.
func (h *Handlers) Analyze(c *gin.Context) {
	var req services.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if len(req.Events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "events are required"})
		return
	}

	report, err := h.service.RunAnalysis(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
			return
		}
		h.logger.Error("analysis failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /api/v1/trends - fleet-wide trend summary.
func (h *Handlers) FleetTrends(c *gin.Context) {
	summary, err := h.service.FleetTrends(c.Request.Context())
	if err != nil {
		h.logger.Error("fleet trends failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to compute fleet trends"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /api/v1/trends/:monitor_id - per-monitor trend analysis.
func (h *Handlers) MonitorTrends(c *gin.Context) {
	analysis, err := h.service.MonitorTrends(c.Request.Context(), c.Param("monitor_id"))
	if err != nil {
		h.logger.Error("monitor trends failed",
			slog.String("monitor_id", c.Param("monitor_id")), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to compute monitor trends"})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// GET /api/v1/snapshots/weeks - stored snapshot weeks, newest first.
func (h *Handlers) ListWeeks(c *gin.Context) {
	weeks, err := h.service.ListWeeks(c.Request.Context())
	if err != nil {
		h.logger.Error("list weeks failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to list snapshot weeks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": weeks})
}

// POST /api/v1/snapshots/prune - delete weeks beyond retention.
func (h *Handlers) PruneSnapshots(c *gin.Context) {
	removed, err := h.service.PruneSnapshots(c.Request.Context())
	if err != nil {
		h.logger.Error("prune failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to prune snapshots"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// GET /health - liveness probe.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /ready - readiness probe: verifies the snapshot store answers.
func (h *Handlers) Ready(c *gin.Context) {
	if err := h.service.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
