package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (map[string]interface{}, error)
}

// HealthCheckerFunc adapts a function to the HealthChecker interface.
type HealthCheckerFunc func(ctx context.Context) (map[string]interface{}, error)

func (f HealthCheckerFunc) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	return f(ctx)
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checkers map[string]HealthChecker
	started  time.Time
}

// NewHealthHandler creates a HealthHandler over the given dependency checks.
func NewHealthHandler(checkers map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		started:  time.Now(),
	}
}

// Liveness handles GET /live. It answers as long as the process is serving.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"uptime": time.Since(h.started).String(),
	})
}

// Readiness handles GET /ready. Any failing dependency makes the probe fail.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]interface{}, len(h.checkers))
	for name, checker := range h.checkers {
		info, err := checker.HealthCheck(ctx)
		if err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = gin.H{"status": "unhealthy", "error": err.Error()}
			continue
		}
		deps[name] = info
	}

	c.JSON(status, gin.H{
		"status":       httpStatusWord(status),
		"dependencies": deps,
	})
}

func httpStatusWord(status int) string {
	if status == http.StatusOK {
		return "ready"
	}
	return "degraded"
}
