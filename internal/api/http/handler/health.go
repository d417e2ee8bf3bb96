package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check reports process liveness.
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
