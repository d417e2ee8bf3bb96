package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists agents in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const agentColumns = `id, name, hostname, ip_address, environment, status,
	last_heartbeat, api_token, version, os_info, architecture, metadata,
	collector_config, created_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

func (s *PostgresStore) GetByToken(ctx context.Context, token string) (*Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE api_token = $1`, token)
	return scanAgent(row)
}

func (s *PostgresStore) GetByHostnameEnv(ctx context.Context, hostname, environment string) (*Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE hostname = $1 AND environment = $2`,
		hostname, environment)
	return scanAgent(row)
}

func (s *PostgresStore) Create(ctx context.Context, agent *Agent) (*Agent, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO agents (name, hostname, ip_address, environment, status,
			last_heartbeat, api_token, version, os_info, architecture, metadata,
			collector_config)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+agentColumns,
		agent.Name, agent.Hostname, agent.IPAddress, agent.Environment,
		agent.Status, timestampOrNull(agent.LastHeartbeat), agent.APIToken,
		textOrNull(agent.Version), jsonOrNull(agent.OSInfo),
		textOrNull(agent.Architecture), jsonOrNull(agent.Metadata),
		jsonOrNull(agent.ConfigOverlay))
	return scanAgent(row)
}

func (s *PostgresStore) UpdateRegistration(ctx context.Context, agent *Agent) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE agents
		 SET name = $2, ip_address = $3, status = $4, last_heartbeat = $5,
		     version = $6, os_info = $7, architecture = $8, metadata = $9,
		     updated_at = now()
		 WHERE id = $1`,
		agent.ID, agent.Name, agent.IPAddress, agent.Status,
		timestampOrNull(agent.LastHeartbeat), textOrNull(agent.Version),
		jsonOrNull(agent.OSInfo), textOrNull(agent.Architecture),
		jsonOrNull(agent.Metadata))
	if err != nil {
		return fmt.Errorf("failed to update agent registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateHeartbeat(ctx context.Context, id int64, status string, metadata map[string]interface{}, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE agents
		 SET status = $2, last_heartbeat = $3, metadata = $4, updated_at = now()
		 WHERE id = $1`,
		id, status, at, jsonOrNull(metadata))
	if err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateToken(ctx context.Context, id int64, token string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE agents SET api_token = $2, updated_at = now() WHERE id = $1`,
		id, token)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var result []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func (s *PostgresStore) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents
		 SET status = $1, updated_at = now()
		 WHERE status = $2 AND last_heartbeat IS NOT NULL AND last_heartbeat < $3`,
		StatusInactive, StatusActive, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanAgent(row pgxRow) (*Agent, error) {
	var (
		agent         Agent
		lastHeartbeat pgtype.Timestamptz
		version       pgtype.Text
		architecture  pgtype.Text
		osInfo        []byte
		metadata      []byte
		overlay       []byte
	)

	err := row.Scan(&agent.ID, &agent.Name, &agent.Hostname, &agent.IPAddress,
		&agent.Environment, &agent.Status, &lastHeartbeat, &agent.APIToken,
		&version, &osInfo, &architecture, &metadata, &overlay,
		&agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("failed to scan agent: %w", err)
	}

	if lastHeartbeat.Valid {
		t := lastHeartbeat.Time
		agent.LastHeartbeat = &t
	}
	agent.Version = version.String
	agent.Architecture = architecture.String
	if len(osInfo) > 0 {
		_ = json.Unmarshal(osInfo, &agent.OSInfo)
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &agent.Metadata)
	}
	if len(overlay) > 0 {
		_ = json.Unmarshal(overlay, &agent.ConfigOverlay)
	}
	return &agent, nil
}

func timestampOrNull(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func jsonOrNull(m map[string]interface{}) []byte {
	if m == nil {
		return nil
	}
	data, _ := json.Marshal(m)
	return data
}
