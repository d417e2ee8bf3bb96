// Package timeseries forwards metric entries to the InfluxDB time-series
// store.
package timeseries

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/logbookhq/logbook-server/internal/metrics"
	"github.com/logbookhq/logbook-server/internal/sink"
)

const defaultTimeout = 5 * time.Second

type Config struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Org     string        `mapstructure:"org"`
	Bucket  string        `mapstructure:"bucket"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Writer converts metric entries to points and writes them at second
// precision, timestamped by the sample's event time.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	timeout  time.Duration
}

func NewWriter(cfg Config) *Writer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		timeout:  timeout,
	}
}

// NewWriterWithAPI wires an existing write API. Used in tests.
func NewWriterWithAPI(writeAPI api.WriteAPIBlocking, timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Writer{writeAPI: writeAPI, timeout: timeout}
}

func (w *Writer) Close() {
	if w.client != nil {
		w.client.Close()
	}
}

func toPoint(e *metrics.Entry) *write.Point {
	tags := map[string]string{
		"agent_id":    strconv.FormatInt(e.AgentID, 10),
		"agent_name":  e.AgentName,
		"environment": e.Environment,
		"hostname":    e.AgentHostname,
	}
	for k, v := range e.Tags {
		tags[k] = fmt.Sprint(v)
	}

	fields := map[string]interface{}{
		e.FieldKey: e.FieldValue.InexactFloat64(),
	}

	// Second precision, event time.
	return write.NewPoint(e.Measurement, tags, fields, time.Unix(e.Timestamp.Unix(), 0))
}

func pointRef(e *metrics.Entry) string {
	return strconv.FormatInt(e.Timestamp.Unix(), 10)
}

// WriteOne writes a single point and returns the point timestamp in unix
// seconds as the external confirmation.
func (w *Writer) WriteOne(ctx context.Context, e *metrics.Entry) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.writeAPI.WritePoint(ctx, toPoint(e)); err != nil {
		return "", sink.MapContextError(fmt.Errorf("%w: %s", sink.ErrUnavailable, err))
	}
	return pointRef(e), nil
}

// WriteBulk writes all points in one call. The line-protocol write is
// all-or-nothing, so a failure is reported as a whole-call failure rather
// than per item; on success every slot carries its point timestamp.
func (w *Writer) WriteBulk(ctx context.Context, entries []*metrics.Entry) ([]sink.Result, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	points := make([]*write.Point, len(entries))
	for i, e := range entries {
		points[i] = toPoint(e)
	}

	if err := w.writeAPI.WritePoint(ctx, points...); err != nil {
		return nil, sink.MapContextError(fmt.Errorf("%w: %s", sink.ErrUnavailable, err))
	}

	results := make([]sink.Result, len(entries))
	for i, e := range entries {
		results[i] = sink.Result{Ref: pointRef(e)}
	}
	return results, nil
}
