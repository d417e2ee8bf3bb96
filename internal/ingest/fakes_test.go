package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/logs"
	"github.com/logbookhq/logbook-server/internal/sink"
	"github.com/stretchr/testify/require"
)

type fakeLogStore struct {
	nextID    int64
	inserted  []*logs.Entry
	attached  map[int64]string
	insertErr error
	batchErr  error
	itemErrs  map[int]error
	attachErr error
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{attached: make(map[int64]string)}
}

func (s *fakeLogStore) Insert(ctx context.Context, e *logs.Entry) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.nextID++
	s.inserted = append(s.inserted, e)
	return s.nextID, nil
}

func (s *fakeLogStore) InsertBatch(ctx context.Context, entries []*logs.Entry) ([]int64, []error, error) {
	if s.batchErr != nil {
		return nil, nil, s.batchErr
	}
	ids := make([]int64, len(entries))
	itemErrs := make([]error, len(entries))
	for i, e := range entries {
		if err, ok := s.itemErrs[i]; ok {
			itemErrs[i] = err
			continue
		}
		s.nextID++
		ids[i] = s.nextID
		s.inserted = append(s.inserted, e)
	}
	return ids, itemErrs, nil
}

func (s *fakeLogStore) AttachRef(ctx context.Context, id int64, ref string) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	s.attached[id] = ref
	return nil
}

type fakeLogSink struct {
	wrote   []*logs.Entry
	oneErr  error
	bulkErr error
	rejects map[int]error
}

func (s *fakeLogSink) WriteOne(ctx context.Context, e *logs.Entry) (string, error) {
	if s.oneErr != nil {
		return "", s.oneErr
	}
	s.wrote = append(s.wrote, e)
	return fmt.Sprintf("es-%d", e.ID), nil
}

func (s *fakeLogSink) WriteBulk(ctx context.Context, entries []*logs.Entry) ([]sink.Result, error) {
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	results := make([]sink.Result, len(entries))
	for i, e := range entries {
		if err, ok := s.rejects[i]; ok {
			results[i] = sink.Result{Err: err}
			continue
		}
		s.wrote = append(s.wrote, e)
		results[i] = sink.Result{Ref: fmt.Sprintf("es-%d", e.ID)}
	}
	return results, nil
}

// newTestAgentService registers one agent and returns the service plus the
// agent's token.
func newTestAgentService(t *testing.T) (*agents.Service, string) {
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
