package dto

import "github.com/logbookhq/logbook-server/internal/ingest"

type IngestMetricRequest struct {
	AgentToken string `json:"agent_token" binding:"required"`
	ingest.MetricPayload
}

type IngestMetricResponse struct {
	Success           bool   `json:"success"`
	MetricID          int64  `json:"metric_id"`
	InfluxDBTimestamp int64  `json:"influxdb_timestamp,omitempty"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
}

type BatchMetricRequest struct {
	AgentToken string                 `json:"agent_token" binding:"required"`
	Metrics    []ingest.MetricPayload `json:"metrics" binding:"required"`
}
