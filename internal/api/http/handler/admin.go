package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
)

type AdminHandler struct {
	agentService *agents.Service
}

func NewAdminHandler(agentService *agents.Service) *AdminHandler {
	return &AdminHandler{agentService: agentService}
}

// ListAgents returns every registered agent with a computed online flag.
// GET /api/admin/agents
func (h *AdminHandler) ListAgents(c *gin.Context) {
	list, err := h.agentService.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list agents", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to list agents"})
		return
	}

	now := time.Now().UTC()
	infos := make([]dto.AgentInfo, 0, len(list))
	for _, a := range list {
		infos = append(infos, dto.AgentInfo{
			ID:            a.ID,
			Name:          a.Name,
			Hostname:      a.Hostname,
			IPAddress:     a.IPAddress,
			Environment:   a.Environment,
			Status:        a.Status,
			Online:        a.IsOnlineAt(now),
			LastHeartbeat: a.LastHeartbeat,
			Version:       a.Version,
			Architecture:  a.Architecture,
			Metadata:      a.Metadata,
			CreatedAt:     a.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, dto.ListAgentsResponse{Agents: infos, Count: len(infos)})
}

// RotateToken replaces the agent's credential. The old token stops working
// immediately; the new one is returned exactly once.
// POST /api/admin/agents/:id/rotate-token
func (h *AdminHandler) RotateToken(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}

	token, err := h.agentService.RotateToken(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, agents.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "agent not found"})
			return
		}
		slog.Error("Failed to rotate agent token", "error", err, "agent_id", id)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to rotate token"})
		return
	}

	c.JSON(http.StatusOK, dto.RotateTokenResponse{
		Success:  true,
		AgentID:  id,
		APIToken: token,
		Message:  "Token rotated successfully",
	})
}
