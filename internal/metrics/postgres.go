package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists metric entries in PostgreSQL, the system of record.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const insertMetricSQL = `
	INSERT INTO metrics (agent_id, timestamp, measurement, field_key,
		field_value, tags, environment, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`

func insertMetricArgs(e *Entry) []any {
	return []any{
		e.AgentID, e.Timestamp, e.Measurement, e.FieldKey,
		e.FieldValue.String(), jsonOrNull(e.Tags), e.Environment,
		jsonOrNull(e.Metadata),
	}
}

// Insert writes one sample and returns its durable id.
func (s *Store) Insert(ctx context.Context, e *Entry) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, insertMetricSQL, insertMetricArgs(e)...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert metric entry: %w", err)
	}
	return id, nil
}

// InsertBatch inserts entries inside one transaction with a savepoint per
// item; a failing item rolls back alone while its siblings commit. The
// returned slices are aligned with entries.
func (s *Store) InsertBatch(ctx context.Context, entries []*Entry) (ids []int64, itemErrs []error, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids = make([]int64, len(entries))
	itemErrs = make([]error, len(entries))

	for i, e := range entries {
		sub, err := tx.Begin(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create savepoint: %w", err)
		}

		var id int64
		if err := sub.QueryRow(ctx, insertMetricSQL, insertMetricArgs(e)...).Scan(&id); err != nil {
			itemErrs[i] = err
			_ = sub.Rollback(ctx)
			continue
		}
		if err := sub.Commit(ctx); err != nil {
			itemErrs[i] = err
			continue
		}
		ids[i] = id
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return ids, itemErrs, nil
}

// AttachRef records the time-series write confirmation on an already-durable
// entry. The ref is the point timestamp in unix seconds, as returned by the
// time-series sink.
func (s *Store) AttachRef(ctx context.Context, id int64, ref string) error {
	ts, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid point timestamp %q: %w", ref, err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE metrics SET influxdb_timestamp = $2 WHERE id = $1`, id, ts)
	if err != nil {
		return fmt.Errorf("failed to attach point timestamp: %w", err)
	}
	return nil
}

// DeleteOlderThan removes samples whose event timestamp predates cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM metrics WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old metrics: %w", err)
	}
	return tag.RowsAffected(), nil
}

func jsonOrNull(m map[string]interface{}) []byte {
	if m == nil {
		return nil
	}
	data, _ := json.Marshal(m)
	return data
}
