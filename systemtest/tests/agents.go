package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentLifecycle(t *testing.T, router *gin.Engine, adminKey string) {
	regBody := dto.RegisterAgentRequest{
		Name:        "sys-web-01",
		Hostname:    "sys-web-01.internal",
		IPAddress:   "10.0.1.5",
		Environment: "staging",
		Version:     "1.0.0",
	}

	var agentID int64
	var apiToken string

	t.Run("register", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/agents/register", regBody)
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.RegisterAgentResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotZero(t, resp.AgentID)
		assert.NotEmpty(t, resp.APIToken)

		agentID = resp.AgentID
		apiToken = resp.APIToken
	})

	t.Run("register again keeps id and token", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/agents/register", regBody)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.RegisterAgentResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, agentID, resp.AgentID)
		assert.Equal(t, apiToken, resp.APIToken)
	})

	t.Run("heartbeat", func(t *testing.T) {
		rr := doJSON(router, "POST", agentPath(agentID, "heartbeat"), dto.HeartbeatRequest{
			Metadata: map[string]interface{}{"uptime": "5m"},
		})
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("config", func(t *testing.T) {
		rr := doJSON(router, "GET", agentPath(agentID, "config"), nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AgentConfigResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Contains(t, resp.Config, "log_sources")
		assert.Contains(t, resp.Config, "metric_collection")
	})

	t.Run("admin list", func(t *testing.T) {
		rr := doJSONWithKey(router, "GET", "/api/admin/agents", nil, adminKey)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListAgentsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.GreaterOrEqual(t, resp.Count, 1)
	})

	t.Run("rotate token", func(t *testing.T) {
		rr := doJSONWithKey(router, "POST", agentAdminPath(agentID, "rotate-token"), nil, adminKey)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.RotateTokenResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEqual(t, apiToken, resp.APIToken)

		// the old token is dead
		ingestRR := doJSON(router, "POST", "/api/logs/ingest", map[string]interface{}{
			"agent_token": apiToken,
			"timestamp":   "2026-08-29T10:00:00Z",
			"level":       "info",
			"message":     "after rotation",
			"source":      "application",
			"hostname":    "sys-web-01.internal",
		})
		assert.Equal(t, http.StatusUnauthorized, ingestRR.Code)
	})
}
