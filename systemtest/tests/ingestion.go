package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
	"github.com/logbookhq/logbook-server/internal/ingest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/agents/%d/%s", id, suffix)
}

func agentAdminPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/admin/agents/%d/%s", id, suffix)
}

func registerIngestAgent(t *testing.T, router *gin.Engine, hostname string) string {
	t.Helper()
	rr := doJSON(router, "POST", "/api/agents/register", dto.RegisterAgentRequest{
		Name:        hostname,
		Hostname:    hostname,
		IPAddress:   "10.0.2.5",
		Environment: "staging",
	})
	require.Contains(t, []int{http.StatusCreated, http.StatusOK}, rr.Code)

	var resp dto.RegisterAgentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.APIToken
}

func TestLogIngestion(t *testing.T, router *gin.Engine) {
	token := registerIngestAgent(t, router, "sys-log-01.internal")

	logPayload := func() ingest.LogPayload {
		return ingest.LogPayload{
			Timestamp: "2026-08-29T10:00:00Z",
			Level:     "error",
			Message:   "disk read failure",
			Source:    "syslog",
			Hostname:  "sys-log-01.internal",
		}
	}

	t.Run("single", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/logs/ingest", dto.IngestLogRequest{
			AgentToken: token,
			LogPayload: logPayload(),
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.IngestLogResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotZero(t, resp.LogID)
		assert.NotEmpty(t, resp.ElasticsearchID)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/logs/ingest", dto.IngestLogRequest{
			AgentToken: "at_bogus",
			LogPayload: logPayload(),
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("validation", func(t *testing.T) {
		p := logPayload()
		p.Level = "fatal"
		rr := doJSON(router, "POST", "/api/logs/ingest", dto.IngestLogRequest{
			AgentToken: token,
			LogPayload: p,
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("batch with partial failure", func(t *testing.T) {
		invalid := logPayload()
		invalid.Message = ""
		rr := doJSON(router, "POST", "/api/logs/batch", dto.BatchLogRequest{
			AgentToken: token,
			Logs:       []ingest.LogPayload{logPayload(), invalid, logPayload()},
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.BatchResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 2, resp.Processed)
		assert.Equal(t, 3, resp.Total)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, 1, resp.Errors[0].Index)
	})
}

func TestMetricIngestion(t *testing.T, router *gin.Engine) {
	token := registerIngestAgent(t, router, "sys-metric-01.internal")

	metricPayload := func() ingest.MetricPayload {
		v := decimal.RequireFromString("87.25")
		return ingest.MetricPayload{
			Timestamp:   "2026-08-29T10:15:30Z",
			Measurement: "cpu",
			FieldKey:    "usage_percent",
			FieldValue:  &v,
		}
	}

	t.Run("single", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/metrics/ingest", dto.IngestMetricRequest{
			AgentToken:    token,
			MetricPayload: metricPayload(),
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.IngestMetricResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotZero(t, resp.MetricID)
		assert.NotZero(t, resp.InfluxDBTimestamp)
	})

	t.Run("missing field value", func(t *testing.T) {
		p := metricPayload()
		p.FieldValue = nil
		rr := doJSON(router, "POST", "/api/metrics/ingest", dto.IngestMetricRequest{
			AgentToken:    token,
			MetricPayload: p,
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("batch", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/metrics/batch", dto.BatchMetricRequest{
			AgentToken: token,
			Metrics:    []ingest.MetricPayload{metricPayload(), metricPayload()},
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.BatchResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Processed)
		assert.Empty(t, resp.Errors)
	})
}
