package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/api/http/dto"
	"github.com/logbookhq/logbook-server/internal/ingest"
)

// respondIngestError maps coordinator errors onto the wire. Everything here
// happened before the durability boundary, so the caller may simply retry.
func respondIngestError(c *gin.Context, err error) {
	var verr *ingest.ValidationError
	switch {
	case errors.Is(err, ingest.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid agent token"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, ingest.ErrDurableWrite):
		slog.Error("Durable write failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to store record"})
	default:
		slog.Error("Ingestion failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func batchResponse(result *ingest.BatchResult) dto.BatchResponse {
	resp := dto.BatchResponse{
		Success:   true,
		Processed: result.Processed,
		Total:     result.Total,
		Errors:    result.Errors,
		Message:   result.Message,
	}
	if resp.Errors == nil {
		resp.Errors = []ingest.ItemError{}
	}
	if result.SinkErr != nil {
		resp.Error = result.SinkErr.Error()
	}
	return resp
}
