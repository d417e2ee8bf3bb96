package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Well-known measurements. The measurement field itself is free-form; these
// cover what the stock collectors emit.
const (
	MeasurementCPU     = "cpu"
	MeasurementMemory  = "memory"
	MeasurementDisk    = "disk"
	MeasurementNetwork = "network"
	MeasurementLoad    = "load"
	MeasurementProcess = "process"
)

// Entry is one numeric sample. FieldValue is fixed-point decimal so the
// durable row and the time-series point cannot drift through float rounding.
// Environment is stamped from the owning agent at write time.
type Entry struct {
	ID                int64
	AgentID           int64
	Timestamp         time.Time
	Measurement       string
	FieldKey          string
	FieldValue        decimal.Decimal
	Tags              map[string]interface{}
	Environment       string
	Metadata          map[string]interface{}
	InfluxDBTimestamp *int64
	CreatedAt         time.Time

	// AgentName and AgentHostname are carried for the time-series point
	// tags; they are not columns.
	AgentName     string
	AgentHostname string
}

// SetID records the durable id assigned on insert.
func (e *Entry) SetID(id int64) {
	e.ID = id
}
