package dto

import "github.com/logbookhq/logbook-server/internal/ingest"

type IngestLogRequest struct {
	AgentToken string `json:"agent_token" binding:"required"`
	ingest.LogPayload
}

type IngestLogResponse struct {
	Success         bool   `json:"success"`
	LogID           int64  `json:"log_id"`
	ElasticsearchID string `json:"elasticsearch_id,omitempty"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
}

type BatchLogRequest struct {
	AgentToken string              `json:"agent_token" binding:"required"`
	Logs       []ingest.LogPayload `json:"logs" binding:"required"`
}

type BatchResponse struct {
	Success   bool               `json:"success"`
	Processed int                `json:"processed"`
	Total     int                `json:"total"`
	Errors    []ingest.ItemError `json:"errors"`
	Message   string             `json:"message,omitempty"`
	Error     string             `json:"error,omitempty"`
}
