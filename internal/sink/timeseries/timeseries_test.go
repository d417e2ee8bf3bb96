package timeseries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/logbookhq/logbook-server/internal/metrics"
	"github.com/logbookhq/logbook-server/internal/sink"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriteAPI struct {
	calls [][]*write.Point
	err   error
}

func (f *fakeWriteAPI) WriteRecord(ctx context.Context, line ...string) error {
	return f.err
}

func (f *fakeWriteAPI) WritePoint(ctx context.Context, point ...*write.Point) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, point)
	return nil
}

func (f *fakeWriteAPI) EnableBatching() {}

func (f *fakeWriteAPI) Flush(ctx context.Context) error { return nil }

func metricEntry() *metrics.Entry {
	return &metrics.Entry{
		ID:            7,
		AgentID:       3,
		AgentName:     "web-01",
		AgentHostname: "web-01.internal",
		Timestamp:     time.Date(2026, 8, 29, 10, 15, 30, 500000000, time.UTC),
		Measurement:   "cpu",
		FieldKey:      "usage_percent",
		FieldValue:    decimal.RequireFromString("87.25"),
		Environment:   "production",
		Tags:          map[string]interface{}{"core": 2},
	}
}

func TestWriteOne(t *testing.T) {
	api := &fakeWriteAPI{}
	w := NewWriterWithAPI(api, time.Second)

	ref, err := w.WriteOne(context.Background(), metricEntry())
	require.NoError(t, err)

	// ref is the point timestamp in unix seconds
	assert.Equal(t, "1787998530", ref)

	require.Len(t, api.calls, 1)
	require.Len(t, api.calls[0], 1)
	point := api.calls[0][0]
	assert.Equal(t, "cpu", point.Name())

	// point time is truncated to second precision
	assert.Equal(t, time.Unix(1787998530, 0), point.Time())

	tags := map[string]string{}
	for _, tag := range point.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, "3", tags["agent_id"])
	assert.Equal(t, "web-01", tags["agent_name"])
	assert.Equal(t, "production", tags["environment"])
	assert.Equal(t, "web-01.internal", tags["hostname"])
	assert.Equal(t, "2", tags["core"])

	fields := map[string]interface{}{}
	for _, field := range point.FieldList() {
		fields[field.Key] = field.Value
	}
	assert.Equal(t, 87.25, fields["usage_percent"])
}

func TestWriteOneUnavailable(t *testing.T) {
	api := &fakeWriteAPI{err: errors.New("connection refused")}
	w := NewWriterWithAPI(api, time.Second)

	_, err := w.WriteOne(context.Background(), metricEntry())
	assert.ErrorIs(t, err, sink.ErrUnavailable)
}

func TestWriteBulkSingleCall(t *testing.T) {
	api := &fakeWriteAPI{}
	w := NewWriterWithAPI(api, time.Second)

	entries := []*metrics.Entry{metricEntry(), metricEntry(), metricEntry()}
	entries[1].Timestamp = entries[1].Timestamp.Add(time.Minute)

	results, err := w.WriteBulk(context.Background(), entries)
	require.NoError(t, err)

	// one write call for the whole batch
	require.Len(t, api.calls, 1)
	assert.Len(t, api.calls[0], 3)

	require.Len(t, results, 3)
	assert.Equal(t, "1787998530", results[0].Ref)
	assert.Equal(t, "1787998590", results[1].Ref)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestWriteBulkUnavailable(t *testing.T) {
	api := &fakeWriteAPI{err: errors.New("connection refused")}
	w := NewWriterWithAPI(api, time.Second)

	_, err := w.WriteBulk(context.Background(), []*metrics.Entry{metricEntry()})
	assert.ErrorIs(t, err, sink.ErrUnavailable)
}

func TestWriteBulkEmpty(t *testing.T) {
	api := &fakeWriteAPI{}
	w := NewWriterWithAPI(api, time.Second)

	results, err := w.WriteBulk(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Empty(t, api.calls)
}
