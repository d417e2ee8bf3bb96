package ingest

import (
	"time"

	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/metrics"
	"github.com/shopspring/decimal"
)

// MetricBatchCap is the maximum number of metric records in one batch
// request.
const MetricBatchCap = 5000

// MetricPayload is one numeric sample as submitted by an agent. FieldValue
// is decimal so the durable row and the time-series point agree exactly.
type MetricPayload struct {
	Timestamp   string                 `json:"timestamp"`
	Measurement string                 `json:"measurement"`
	FieldKey    string                 `json:"field_key"`
	FieldValue  *decimal.Decimal       `json:"field_value"`
	Tags        map[string]interface{} `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewMetricCoordinator instantiates the ingestion pipeline for metric
// records: durable rows in the metric store, time-series store as the
// secondary sink.
func NewMetricCoordinator(agentService *agents.Service, store DurableStore[*metrics.Entry], snk Sink[*metrics.Entry]) *Coordinator[MetricPayload, *metrics.Entry] {
	return NewCoordinator("metric", agentService, store, snk, metricCodec(), MetricBatchCap)
}

func metricCodec() Codec[MetricPayload, *metrics.Entry] {
	return Codec[MetricPayload, *metrics.Entry]{
		Validate: validateMetricPayload,
		ToRow:    metricPayloadToRow,
	}
}

func validateMetricPayload(p MetricPayload) *ValidationError {
	fields := map[string]string{}

	if p.Timestamp == "" {
		fields["timestamp"] = "timestamp is required"
	} else if _, err := ParseTimestamp(p.Timestamp); err != nil {
		fields["timestamp"] = "timestamp is not a valid date"
	}
	if p.Measurement == "" {
		fields["measurement"] = "measurement is required"
	}
	if p.FieldKey == "" {
		fields["field_key"] = "field_key is required"
	}
	if p.FieldValue == nil {
		fields["field_value"] = "field_value is required and must be numeric"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func metricPayloadToRow(p MetricPayload, agent *agents.Agent) *metrics.Entry {
	ts, _ := ParseTimestamp(p.Timestamp)
	return &metrics.Entry{
		AgentID:       agent.ID,
		AgentName:     agent.Name,
		AgentHostname: agent.Hostname,
		Timestamp:     ts,
		Measurement:   p.Measurement,
		FieldKey:      p.FieldKey,
		FieldValue:    *p.FieldValue,
		Tags:          p.Tags,
		Environment:   agent.Environment,
		Metadata:      p.Metadata,
		CreatedAt:     time.Now().UTC(),
	}
}
