package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"servicecatalog.io/catalog/internal/pkg/logger"
)

const (
	healthStatusOk       = "ok"
	healthStatusDegraded = "degraded"
)

type health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, health{Status: healthStatusOk})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	if s.db == nil {
		checks["database"] = "not_configured"
		allHealthy = false
	} else if err := s.db.Ping(c.Request.Context()); err != nil {
		logger.Warn("Readiness check failed", zap.String("check", "database"), zap.Error(err))
		checks["database"] = "error"
		allHealthy = false
	} else {
		checks["database"] = "ok"
	}

	status := healthStatusOk
	httpStatus := http.StatusOK
	if !allHealthy {
		status = healthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, health{Status: status, Checks: checks})
}
