package ingest

import (
	"time"

	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/logs"
)

// LogBatchCap is the maximum number of log records in one batch request.
const LogBatchCap = 1000

// LogPayload is one log record as submitted by an agent.
type LogPayload struct {
	Timestamp   string                 `json:"timestamp"`
	Level       string                 `json:"level"`
	Message     string                 `json:"message"`
	Source      string                 `json:"source"`
	Facility    string                 `json:"facility,omitempty"`
	Hostname    string                 `json:"hostname"`
	ProcessName string                 `json:"process_name,omitempty"`
	ProcessID   *int                   `json:"process_id,omitempty"`
	Tags        map[string]interface{} `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewLogCoordinator instantiates the ingestion pipeline for log records:
// durable rows in the log store, search index as the secondary sink.
func NewLogCoordinator(agentService *agents.Service, store DurableStore[*logs.Entry], snk Sink[*logs.Entry]) *Coordinator[LogPayload, *logs.Entry] {
	return NewCoordinator("log", agentService, store, snk, logCodec(), LogBatchCap)
}

func logCodec() Codec[LogPayload, *logs.Entry] {
	return Codec[LogPayload, *logs.Entry]{
		Validate: validateLogPayload,
		ToRow:    logPayloadToRow,
	}
}

func validateLogPayload(p LogPayload) *ValidationError {
	fields := map[string]string{}

	if p.Timestamp == "" {
		fields["timestamp"] = "timestamp is required"
	} else if _, err := ParseTimestamp(p.Timestamp); err != nil {
		fields["timestamp"] = "timestamp is not a valid date"
	}
	if p.Level == "" {
		fields["level"] = "level is required"
	} else if !logs.ValidLevel(p.Level) {
		fields["level"] = "level must be one of emergency, alert, critical, error, warning, notice, info, debug"
	}
	if p.Message == "" {
		fields["message"] = "message is required"
	}
	if p.Source == "" {
		fields["source"] = "source is required"
	} else if !logs.ValidSource(p.Source) {
		fields["source"] = "source must be one of syslog, journald, nginx, apache, application, custom"
	}
	if p.Hostname == "" {
		fields["hostname"] = "hostname is required"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func logPayloadToRow(p LogPayload, agent *agents.Agent) *logs.Entry {
	ts, _ := ParseTimestamp(p.Timestamp)
	return &logs.Entry{
		AgentID:     agent.ID,
		AgentName:   agent.Name,
		Timestamp:   ts,
		Level:       p.Level,
		Message:     p.Message,
		Source:      p.Source,
		Facility:    p.Facility,
		Hostname:    p.Hostname,
		ProcessName: p.ProcessName,
		ProcessID:   p.ProcessID,
		Environment: agent.Environment,
		Tags:        p.Tags,
		Metadata:    p.Metadata,
		CreatedAt:   time.Now().UTC(),
	}
}
