package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Index     string `json:"index"`
	Chunks    int    `json:"chunks"`
	BuildID   string `json:"build_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Health handles GET /health: 200 when an index is loaded and its backend answers,
// 503 otherwise.
func (h *Handler) Health(c *gin.Context) {
	response := HealthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.svc == nil {
		response.Status = "unhealthy"
		response.Index = "not loaded"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	response.Chunks = h.svc.Len()
	response.BuildID = h.svc.BuildID().String()

	if err := h.svc.Health(ctx); err != nil {
		h.logger.Warn("Health check failed", "error", err)
		response.Status = "unhealthy"
		response.Index = "disconnected"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Status = "healthy"
	response.Index = "ready"
	c.JSON(http.StatusOK, response)
}
