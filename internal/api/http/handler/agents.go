package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
)

type AgentsHandler struct {
	agentService *agents.Service
}

func NewAgentsHandler(agentService *agents.Service) *AgentsHandler {
	return &AgentsHandler{agentService: agentService}
}

// Register creates or refreshes an agent.
// POST /api/agents/register
func (h *AgentsHandler) Register(c *gin.Context) {
	var req dto.RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	agent, created, err := h.agentService.Register(c.Request.Context(), agents.RegisterParams{
		Name:         req.Name,
		Hostname:     req.Hostname,
		IPAddress:    req.IPAddress,
		Environment:  req.Environment,
		Version:      req.Version,
		OSInfo:       req.OSInfo,
		Architecture: req.Architecture,
		Metadata:     req.Metadata,
	})
	if err != nil {
		slog.Error("Failed to register agent", "error", err, "hostname", req.Hostname)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to register agent"})
		return
	}

	status := http.StatusOK
	message := "Agent updated successfully"
	if created {
		status = http.StatusCreated
		message = "Agent registered successfully"
	}

	c.JSON(status, dto.RegisterAgentResponse{
		Success:  true,
		AgentID:  agent.ID,
		APIToken: agent.APIToken,
		Message:  message,
	})
}

// Heartbeat refreshes the agent's liveness timestamp.
// POST /api/agents/:id/heartbeat
func (h *AgentsHandler) Heartbeat(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}

	var req dto.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.agentService.Heartbeat(c.Request.Context(), id, req.Status, req.Metadata); err != nil {
		if errors.Is(err, agents.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "agent not found"})
			return
		}
		slog.Error("Failed to process heartbeat", "error", err, "agent_id", id)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to process heartbeat"})
		return
	}

	c.JSON(http.StatusOK, dto.HeartbeatResponse{
		Success:    true,
		Message:    "Heartbeat received",
		ServerTime: time.Now().UTC(),
	})
}

// Config returns the agent's effective collector configuration.
// GET /api/agents/:id/config
func (h *AgentsHandler) Config(c *gin.Context) {
	id, ok := agentID(c)
	if !ok {
		return
	}

	agent, err := h.agentService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, agents.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "agent not found"})
			return
		}
		slog.Error("Failed to get agent", "error", err, "agent_id", id)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get agent"})
		return
	}

	c.JSON(http.StatusOK, dto.AgentConfigResponse{
		Success: true,
		Config:  h.agentService.ResolveConfig(agent),
		Agent: dto.AgentSummary{
			ID:          agent.ID,
			Name:        agent.Name,
			Environment: agent.Environment,
		},
	})
}

func agentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid agent id"})
		return 0, false
	}
	return id, true
}
