package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAgentsRouter(h *AgentsHandler) *gin.Engine {
	r := gin.New()
	r.POST("/api/agents/register", h.Register)
	r.POST("/api/agents/:id/heartbeat", h.Heartbeat)
	r.GET("/api/agents/:id/config", h.Config)
	return r
}

func registerBody() dto.RegisterAgentRequest {
	return dto.RegisterAgentRequest{
		Name:        "web-01",
		Hostname:    "web-01.internal",
		IPAddress:   "10.0.0.5",
		Environment: "production",
	}
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAgent(t *testing.T) {
	svc := agents.NewService(agents.NewMemoryStore())
	r := setupAgentsRouter(NewAgentsHandler(svc))

	w := postJSON(t, r, "/api/agents/register", registerBody())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.RegisterAgentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.AgentID)
	assert.True(t, strings.HasPrefix(resp.APIToken, "at_"))
	assert.Equal(t, "Agent registered successfully", resp.Message)
}

func TestRegisterAgentIdempotent(t *testing.T) {
	svc := agents.NewService(agents.NewMemoryStore())
	r := setupAgentsRouter(NewAgentsHandler(svc))

	first := postJSON(t, r, "/api/agents/register", registerBody())
	require.Equal(t, http.StatusCreated, first.Code)
	var firstResp dto.RegisterAgentResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))

	second := postJSON(t, r, "/api/agents/register", registerBody())
	assert.Equal(t, http.StatusOK, second.Code)
	var secondResp dto.RegisterAgentResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
	assert.Equal(t, firstResp.AgentID, secondResp.AgentID)
	assert.Equal(t, firstResp.APIToken, secondResp.APIToken)
	assert.Equal(t, "Agent updated successfully", secondResp.Message)
}

func TestRegisterAgentMissingHostname(t *testing.T) {
	svc := agents.NewService(agents.NewMemoryStore())
	r := setupAgentsRouter(NewAgentsHandler(svc))

	body := registerBody()
	body.Hostname = ""
	w := postJSON(t, r, "/api/agents/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterAgentInvalidEnvironment(t *testing.T) {
	svc := agents.NewService(agents.NewMemoryStore())
	r := setupAgentsRouter(NewAgentsHandler(svc))

	body := registerBody()
	body.Environment = "qa"
	w := postJSON(t, r, "/api/agents/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterAgentInvalidIP(t *testing.T) {
	svc := agents.NewService(agents.NewMemoryStore())
	r := setupAgentsRouter(NewAgentsHandler(svc))

	body := registerBody()
	body.IPAddress = "not-an-ip"
	w := postJSON(t, r, "/api/agents/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHeartbeat(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAgentsRouter(NewAgentsHandler(svc))

	w := postJSON(t, r, "/api/agents/1/heartbeat", dto.HeartbeatRequest{
		Metadata: map[string]interface{}{"uptime": "3d"},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.HeartbeatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.ServerTime.IsZero())
}

func TestHeartbeatNotFound(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAgentsRouter(NewAgentsHandler(svc))

	w := postJSON(t, r, "/api/agents/404/heartbeat", dto.HeartbeatRequest{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHeartbeatInvalidID(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAgentsRouter(NewAgentsHandler(svc))

	w := postJSON(t, r, "/api/agents/abc/heartbeat", dto.HeartbeatRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHeartbeatInvalidStatus(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAgentsRouter(NewAgentsHandler(svc))

	w := postJSON(t, r, "/api/agents/1/heartbeat", map[string]string{"status": "rebooting"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAgentConfig(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAgentsRouter(NewAgentsHandler(svc))

	req, _ := http.NewRequest("GET", "/api/agents/1/config", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.AgentConfigResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Config, "log_sources")
	assert.Contains(t, resp.Config, "metric_collection")
	assert.Equal(t, "web-01", resp.Agent.Name)
	assert.Equal(t, "production", resp.Agent.Environment)
}

func TestAgentConfigNotFound(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAgentsRouter(NewAgentsHandler(svc))

	req, _ := http.NewRequest("GET", "/api/agents/404/config", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
