// Package handlers is the gin layer: query-param parsing, status codes and
// error envelopes. All actual work happens in the stats aggregator.
package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"teledash/internal/database"
	"teledash/internal/models"
	"teledash/internal/stats"
)

// Version is set by main at startup.
var Version = "dev"

// Checker pings a backing dependency for the detailed health report.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Handlers holds the request handlers and their dependencies.
type Handlers struct {
	agg *stats.Aggregator
	db  Checker
}

func New(agg *stats.Aggregator, db Checker) *Handlers {
	return &Handlers{agg: agg, db: db}
}

// GetStats serves GET /api/stats?page=N&limit=M.
func (h *Handlers) GetStats(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 1 {
		limit = 0
	}

	resp, err := h.agg.Stats(c.Request.Context(), page, limit)
	if err != nil {
		h.storeError(c, "Failed to fetch stats", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetHistory serves GET /api/history?host=X&type=cpu|memory. A missing
// host is rejected before any store access; an unknown host returns an
// empty series.
func (h *Handlers) GetHistory(c *gin.Context) {
	host := c.Query("host")
	if host == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "host parameter is required",
		})
		return
	}
	metric := c.DefaultQuery("type", "cpu")

	points, err := h.agg.History(c.Request.Context(), host, metric)
	if err != nil {
		h.storeError(c, "Failed to fetch history", err)
		return
	}
	if points == nil {
		points = []models.HistoryPoint{}
	}

	c.JSON(http.StatusOK, points)
}

// storeError logs the failure and answers with a 500 envelope, surfacing
// the store's code and detail when the server reported one.
func (h *Handlers) storeError(c *gin.Context, msg string, err error) {
	log.Printf("❌ %s: %v", msg, err)

	body := gin.H{"error": msg}
	if code, detail, ok := database.ErrorDetails(err); ok {
		body["code"] = code
		body["details"] = detail
	}
	c.JSON(http.StatusInternalServerError, body)
}

// HealthCheck returns server health status.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// HealthCheckDetailed reports per-dependency health.
func (h *Handlers) HealthCheckDetailed(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := gin.H{
		"status":  "healthy",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.db.HealthCheck(ctx); err != nil {
		status["status"] = "unhealthy"
		status["database"] = gin.H{"status": "down", "error": err.Error()}
	} else {
		status["database"] = gin.H{"status": "up"}
	}

	if status["status"] == "healthy" {
		c.JSON(http.StatusOK, status)
	} else {
		c.JSON(http.StatusServiceUnavailable, status)
	}
}
