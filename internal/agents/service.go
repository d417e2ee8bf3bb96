package agents

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	tokenPrefix = "at_"
	tokenLength = 32 // 32 bytes = 256 bits
)

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrInvalidToken  = errors.New("invalid agent token")
)

// Store is the persistence contract for the agent registry.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Agent, error)
	GetByToken(ctx context.Context, token string) (*Agent, error)
	GetByHostnameEnv(ctx context.Context, hostname, environment string) (*Agent, error)
	Create(ctx context.Context, agent *Agent) (*Agent, error)
	UpdateRegistration(ctx context.Context, agent *Agent) error
	UpdateHeartbeat(ctx context.Context, id int64, status string, metadata map[string]interface{}, at time.Time) error
	UpdateToken(ctx context.Context, id int64, token string) error
	List(ctx context.Context) ([]Agent, error)
	MarkStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GenerateToken creates a new agent API token with crypto/rand.
func GenerateToken() (string, error) {
	bytes := make([]byte, tokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(bytes), nil
}

// RegisterParams carries the fields an agent submits on registration.
type RegisterParams struct {
	Name         string
	Hostname     string
	IPAddress    string
	Environment  string
	Version      string
	OSInfo       map[string]interface{}
	Architecture string
	Metadata     map[string]interface{}
}

// Register creates or refreshes an agent. Registration is idempotent by
// (hostname, environment): a matching agent has its mutable fields updated,
// is forced back to active with a fresh heartbeat, and keeps its existing
// token. A second token is never issued for the same hostname+environment.
// Created reports whether a new agent row was made.
func (s *Service) Register(ctx context.Context, params RegisterParams) (agent *Agent, created bool, err error) {
	existing, err := s.store.GetByHostnameEnv(ctx, params.Hostname, params.Environment)
	if err != nil && !errors.Is(err, ErrAgentNotFound) {
		return nil, false, fmt.Errorf("failed to look up agent: %w", err)
	}

	now := time.Now()

	if existing != nil {
		existing.Name = params.Name
		existing.IPAddress = params.IPAddress
		if params.Version != "" {
			existing.Version = params.Version
		}
		if params.OSInfo != nil {
			existing.OSInfo = params.OSInfo
		}
		if params.Architecture != "" {
			existing.Architecture = params.Architecture
		}
		if params.Metadata != nil {
			existing.Metadata = params.Metadata
		}
		existing.Status = StatusActive
		existing.LastHeartbeat = &now

		if err := s.store.UpdateRegistration(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to update agent: %w", err)
		}

		slog.Info("Agent re-registered",
			"agent_id", existing.ID,
			"hostname", existing.Hostname,
			"environment", existing.Environment)
		return existing, false, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate token: %w", err)
	}

	agent, err = s.store.Create(ctx, &Agent{
		Name:          params.Name,
		Hostname:      params.Hostname,
		IPAddress:     params.IPAddress,
		Environment:   params.Environment,
		Status:        StatusActive,
		LastHeartbeat: &now,
		APIToken:      token,
		Version:       params.Version,
		OSInfo:        params.OSInfo,
		Architecture:  params.Architecture,
		Metadata:      params.Metadata,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create agent: %w", err)
	}

	slog.Info("Agent registered",
		"agent_id", agent.ID,
		"hostname", agent.Hostname,
		"environment", agent.Environment)
	return agent, true, nil
}

// Authenticate resolves an agent from its API token via the unique token
// index. Every ingestion call runs through here before any store is touched.
func (s *Service) Authenticate(ctx context.Context, token string) (*Agent, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	agent, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to authenticate agent: %w", err)
	}
	return agent, nil
}

// Heartbeat refreshes last_heartbeat to now. Status defaults to active when
// not supplied; metadata is shallow-merged, incoming keys overwriting and
// existing keys surviving.
func (s *Service) Heartbeat(ctx context.Context, id int64, status string, metadata map[string]interface{}) error {
	agent, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if status == "" {
		status = StatusActive
	}
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status: %s", status)
	}

	merged := agent.Metadata
	if merged == nil {
		merged = map[string]interface{}{}
	}
	for k, v := range metadata {
		merged[k] = v
	}

	if err := s.store.UpdateHeartbeat(ctx, id, status, merged, time.Now()); err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	return nil
}

// RotateToken invalidates the agent's token and issues a new one in a single
// update. Admin surface only; never exposed to the ingestion path.
func (s *Service) RotateToken(ctx context.Context, id int64) (string, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return "", err
	}

	token, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.store.UpdateToken(ctx, id, token); err != nil {
		return "", fmt.Errorf("failed to rotate token: %w", err)
	}

	slog.Info("Agent token rotated", "agent_id", id)
	return token, nil
}

// GetByID retrieves an agent by ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Agent, error) {
	return s.store.GetByID(ctx, id)
}

// List returns all registered agents.
func (s *Service) List(ctx context.Context) ([]Agent, error) {
	return s.store.List(ctx)
}

// ResolveConfig returns the agent's effective collector configuration: the
// static defaults deep-merged with the agent's stored overlay.
func (s *Service) ResolveConfig(agent *Agent) map[string]interface{} {
	config := DefaultCollectorConfig()
	if agent.ConfigOverlay != nil {
		config = MergeConfig(config, agent.ConfigOverlay)
	}
	return config
}

// MarkStale flips active agents whose last heartbeat predates cutoff to
// inactive. Used by the housekeeping sweep.
func (s *Service) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.store.MarkStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale agents: %w", err)
	}
	if n > 0 {
		slog.Info("Stale agents marked inactive", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
