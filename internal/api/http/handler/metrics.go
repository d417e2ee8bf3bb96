package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
	"github.com/logbookhq/logbook-server/internal/ingest"
	"github.com/logbookhq/logbook-server/internal/metrics"
)

type MetricsHandler struct {
	coordinator *ingest.Coordinator[ingest.MetricPayload, *metrics.Entry]
}

func NewMetricsHandler(coordinator *ingest.Coordinator[ingest.MetricPayload, *metrics.Entry]) *MetricsHandler {
	return &MetricsHandler{coordinator: coordinator}
}

// Ingest stores a single metric sample durably and forwards it to the
// time-series store.
// POST /api/metrics/ingest
func (h *MetricsHandler) Ingest(c *gin.Context) {
	var req dto.IngestMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.coordinator.Ingest(c.Request.Context(), req.AgentToken, req.MetricPayload)
	if err != nil {
		respondIngestError(c, err)
		return
	}

	if result.SinkErr != nil {
		c.JSON(http.StatusCreated, dto.IngestMetricResponse{
			Success:  false,
			MetricID: result.ID,
			Error:    "metric stored but time-series write failed: " + result.SinkErr.Error(),
		})
		return
	}

	ts, _ := strconv.ParseInt(result.Ref, 10, 64)
	c.JSON(http.StatusCreated, dto.IngestMetricResponse{
		Success:           true,
		MetricID:          result.ID,
		InfluxDBTimestamp: ts,
		Message:           "Metric ingested successfully",
	})
}

// Batch stores up to 5000 metric samples with per-item error isolation.
// POST /api/metrics/batch
func (h *MetricsHandler) Batch(c *gin.Context) {
	var req dto.BatchMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.coordinator.IngestBatch(c.Request.Context(), req.AgentToken, req.Metrics)
	if err != nil {
		respondIngestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batchResponse(result))
}
