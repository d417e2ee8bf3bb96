package agents

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	agents map[int64]*Agent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		agents: make(map[int64]*Agent),
	}
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return copyAgent(agent), nil
}

func (s *MemoryStore) GetByToken(ctx context.Context, token string) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, agent := range s.agents {
		if agent.APIToken == token {
			return copyAgent(agent), nil
		}
	}
	return nil, ErrAgentNotFound
}

func (s *MemoryStore) GetByHostnameEnv(ctx context.Context, hostname, environment string) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, agent := range s.agents {
		if agent.Hostname == hostname && agent.Environment == environment {
			return copyAgent(agent), nil
		}
	}
	return nil, ErrAgentNotFound
}

func (s *MemoryStore) Create(ctx context.Context, agent *Agent) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	stored := copyAgent(agent)
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.nextID++
	s.agents[stored.ID] = stored
	return copyAgent(stored), nil
}

func (s *MemoryStore) UpdateRegistration(ctx context.Context, agent *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.agents[agent.ID]
	if !ok {
		return ErrAgentNotFound
	}
	stored.Name = agent.Name
	stored.IPAddress = agent.IPAddress
	stored.Status = agent.Status
	stored.LastHeartbeat = agent.LastHeartbeat
	stored.Version = agent.Version
	stored.OSInfo = agent.OSInfo
	stored.Architecture = agent.Architecture
	stored.Metadata = agent.Metadata
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateHeartbeat(ctx context.Context, id int64, status string, metadata map[string]interface{}, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	stored.Status = status
	stored.LastHeartbeat = &at
	stored.Metadata = metadata
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateToken(ctx context.Context, id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.agents[id]
	if !ok {
		return ErrAgentNotFound
	}
	stored.APIToken = token
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Agent, 0, len(s.agents))
	for id := int64(1); id < s.nextID; id++ {
		if agent, ok := s.agents[id]; ok {
			result = append(result, *copyAgent(agent))
		}
	}
	return result, nil
}

func (s *MemoryStore) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, agent := range s.agents {
		if agent.Status == StatusActive && agent.LastHeartbeat != nil && agent.LastHeartbeat.Before(cutoff) {
			agent.Status = StatusInactive
			agent.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func copyAgent(a *Agent) *Agent {
	dup := *a
	if a.LastHeartbeat != nil {
		t := *a.LastHeartbeat
		dup.LastHeartbeat = &t
	}
	dup.OSInfo = copyMap(a.OSInfo)
	dup.Metadata = copyMap(a.Metadata)
	dup.ConfigOverlay = copyMap(a.ConfigOverlay)
	return &dup
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	dup := make(map[string]interface{}, len(m))
	for k, v := range m {
		dup[k] = v
	}
	return dup
}
