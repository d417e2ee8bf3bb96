package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/logs"
	"github.com/logbookhq/logbook-server/internal/metrics"
	"github.com/logbookhq/logbook-server/internal/sink"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLogStore struct {
	nextID   int64
	attached map[int64]string
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{attached: make(map[int64]string)}
}

func (s *fakeLogStore) Insert(ctx context.Context, e *logs.Entry) (int64, error) {
	s.nextID++
	return s.nextID, nil
}

func (s *fakeLogStore) InsertBatch(ctx context.Context, entries []*logs.Entry) ([]int64, []error, error) {
	ids := make([]int64, len(entries))
	for i := range entries {
		s.nextID++
		ids[i] = s.nextID
	}
	return ids, make([]error, len(entries)), nil
}

func (s *fakeLogStore) AttachRef(ctx context.Context, id int64, ref string) error {
	s.attached[id] = ref
	return nil
}

type fakeLogSink struct {
	err error
}

func (s *fakeLogSink) WriteOne(ctx context.Context, e *logs.Entry) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("es-%d", e.ID), nil
}

func (s *fakeLogSink) WriteBulk(ctx context.Context, entries []*logs.Entry) ([]sink.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	results := make([]sink.Result, len(entries))
	for i, e := range entries {
		results[i] = sink.Result{Ref: fmt.Sprintf("es-%d", e.ID)}
	}
	return results, nil
}

type fakeMetricStore struct {
	nextID   int64
	attached map[int64]string
}

func newFakeMetricStore() *fakeMetricStore {
	return &fakeMetricStore{attached: make(map[int64]string)}
}

func (s *fakeMetricStore) Insert(ctx context.Context, e *metrics.Entry) (int64, error) {
	s.nextID++
	return s.nextID, nil
}

func (s *fakeMetricStore) InsertBatch(ctx context.Context, entries []*metrics.Entry) ([]int64, []error, error) {
	ids := make([]int64, len(entries))
	for i := range entries {
		s.nextID++
		ids[i] = s.nextID
	}
	return ids, make([]error, len(entries)), nil
}

func (s *fakeMetricStore) AttachRef(ctx context.Context, id int64, ref string) error {
	s.attached[id] = ref
	return nil
}

type fakeMetricSink struct {
	err error
}

func (s *fakeMetricSink) WriteOne(ctx context.Context, e *metrics.Entry) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("%d", e.Timestamp.Unix()), nil
}

func (s *fakeMetricSink) WriteBulk(ctx context.Context, entries []*metrics.Entry) ([]sink.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	results := make([]sink.Result, len(entries))
	for i, e := range entries {
		results[i] = sink.Result{Ref: fmt.Sprintf("%d", e.Timestamp.Unix())}
	}
	return results, nil
}

// newAgentService registers one agent and returns the service plus the
// agent's token.
func newAgentService(t *testing.T) (*agents.Service, string) {
	t.Helper()
	svc := agents.NewService(agents.NewMemoryStore())
	agent, _, err := svc.Register(context.Background(), agents.RegisterParams{
		Name:        "web-01",
		Hostname:    "web-01.internal",
		IPAddress:   "10.0.0.5",
		Environment: agents.EnvProduction,
	})
	require.NoError(t, err)
	return svc, agent.APIToken
}
