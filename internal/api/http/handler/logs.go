package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
	"github.com/logbookhq/logbook-server/internal/ingest"
	"github.com/logbookhq/logbook-server/internal/logs"
)

type LogsHandler struct {
	coordinator *ingest.Coordinator[ingest.LogPayload, *logs.Entry]
}

func NewLogsHandler(coordinator *ingest.Coordinator[ingest.LogPayload, *logs.Entry]) *LogsHandler {
	return &LogsHandler{coordinator: coordinator}
}

// Ingest stores a single log record durably and forwards it to the search
// index. A failed index write still returns the durable id so the caller
// can tell "stored but not indexed" from "rejected outright".
// POST /api/logs/ingest
func (h *LogsHandler) Ingest(c *gin.Context) {
	var req dto.IngestLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.coordinator.Ingest(c.Request.Context(), req.AgentToken, req.LogPayload)
	if err != nil {
		respondIngestError(c, err)
		return
	}

	if result.SinkErr != nil {
		c.JSON(http.StatusCreated, dto.IngestLogResponse{
			Success: false,
			LogID:   result.ID,
			Error:   "log stored but search indexing failed: " + result.SinkErr.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, dto.IngestLogResponse{
		Success:         true,
		LogID:           result.ID,
		ElasticsearchID: result.Ref,
		Message:         "Log ingested successfully",
	})
}

// Batch stores up to 1000 log records with per-item error isolation.
// POST /api/logs/batch
func (h *LogsHandler) Batch(c *gin.Context) {
	var req dto.BatchLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.coordinator.IngestBatch(c.Request.Context(), req.AgentToken, req.Logs)
	if err != nil {
		respondIngestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batchResponse(result))
}
