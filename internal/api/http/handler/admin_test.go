package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
	"github.com/logbookhq/logbook-server/internal/api/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-admin-key"

func setupAdminRouter(svc *agents.Service, apiKey string) *gin.Engine {
	h := NewAdminHandler(svc)
	r := gin.New()
	admin := r.Group("/api/admin", middleware.APIKeyAuth(apiKey))
	admin.GET("/agents", h.ListAgents)
	admin.POST("/agents/:id/rotate-token", h.RotateToken)
	return r
}

func adminGet(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListAgents(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAdminRouter(svc, testAPIKey)

	w := adminGet(r, "/api/admin/agents", testAPIKey)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListAgentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, "web-01", resp.Agents[0].Name)
	assert.True(t, resp.Agents[0].Online)
}

func TestListAgentsMissingKey(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAdminRouter(svc, testAPIKey)

	w := adminGet(r, "/api/admin/agents", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAgentsWrongKey(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAdminRouter(svc, testAPIKey)

	w := adminGet(r, "/api/admin/agents", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAgentsKeyNotConfigured(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAdminRouter(svc, "")

	w := adminGet(r, "/api/admin/agents", "anything")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRotateToken(t *testing.T) {
	svc, oldToken := newAgentService(t)
	r := setupAdminRouter(svc, testAPIKey)

	req, _ := http.NewRequest("POST", "/api/admin/agents/1/rotate-token", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.RotateTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.AgentID)
	assert.True(t, strings.HasPrefix(resp.APIToken, "at_"))
	assert.NotEqual(t, oldToken, resp.APIToken)
}

func TestRotateTokenNotFound(t *testing.T) {
	svc, _ := newAgentService(t)
	r := setupAdminRouter(svc, testAPIKey)

	req, _ := http.NewRequest("POST", "/api/admin/agents/404/rotate-token", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
