package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency. Optional checks only degrade the
// status; a failing required check makes the endpoint return 503.
type HealthCheck struct {
	Name     string
	Required bool
	Probe    func(ctx context.Context) error
}

type HealthHandler struct {
	checks []HealthCheck
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	details := gin.H{}
	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			details[check.Name] = "unavailable: " + err.Error()
			if status == "ok" {
				status = "degraded"
			}
			if check.Required {
				code = http.StatusServiceUnavailable
			}
			continue
		}
		details[check.Name] = "available"
	}

	c.JSON(code, gin.H{"status": status, "details": details})
}
