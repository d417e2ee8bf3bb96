package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists log entries in PostgreSQL, the system of record.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const insertLogSQL = `
	INSERT INTO logs (agent_id, timestamp, level, message, source, facility,
		hostname, process_name, process_id, environment, tags, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING id`

func insertLogArgs(e *Entry) []any {
	return []any{
		e.AgentID, e.Timestamp, e.Level, e.Message, e.Source,
		pgtype.Text{String: e.Facility, Valid: e.Facility != ""},
		e.Hostname,
		pgtype.Text{String: e.ProcessName, Valid: e.ProcessName != ""},
		e.ProcessID, e.Environment, jsonOrNull(e.Tags), jsonOrNull(e.Metadata),
	}
}

// Insert writes one entry and returns its durable id. Once this commits the
// entry is a system fact regardless of what the search index does next.
func (s *Store) Insert(ctx context.Context, e *Entry) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, insertLogSQL, insertLogArgs(e)...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert log entry: %w", err)
	}
	return id, nil
}

// InsertBatch inserts entries inside one transaction with a savepoint per
// item, so a failing item is rolled back alone and its siblings still
// commit. The returned slices are aligned with entries: ids[i] is valid when
// itemErrs[i] is nil.
func (s *Store) InsertBatch(ctx context.Context, entries []*Entry) (ids []int64, itemErrs []error, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids = make([]int64, len(entries))
	itemErrs = make([]error, len(entries))

	for i, e := range entries {
		// tx.Begin on an open transaction issues a savepoint.
		sub, err := tx.Begin(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create savepoint: %w", err)
		}

		var id int64
		if err := sub.QueryRow(ctx, insertLogSQL, insertLogArgs(e)...).Scan(&id); err != nil {
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

// AttachRef records the search-index document id on an already-durable
// entry. This is the only mutation a log entry ever receives.
func (s *Store) AttachRef(ctx context.Context, id int64, ref string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE logs SET elasticsearch_id = $2 WHERE id = $1`, id, ref)
	if err != nil {
		return fmt.Errorf("failed to attach elasticsearch id: %w", err)
	}
	return nil
}

// DeleteOlderThan removes entries whose event timestamp predates cutoff.
// Used by the retention sweep.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnindexed reports entries that committed durably but never received a
// search-index id. This is the backlog a reconciliation sweep would work
// from; none is built in, the gap is reported instead.
func (s *Store) CountUnindexed(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM logs WHERE elasticsearch_id IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unindexed logs: %w", err)
	}
	return n, nil
}

func jsonOrNull(m map[string]interface{}) []byte {
	if m == nil {
		return nil
	}
	data, _ := json.Marshal(m)
	return data
}
