// Package ingest implements the dual-write pipeline that keeps the durable
// record store and the secondary sinks consistent under partial failure.
//
// The consistency model is at-least-once-durable, best-effort-indexed: once
// the durable insert commits, the record is a system fact; a failed sink
// write degrades the response but never loses or rolls back the record. The
// coordinator performs no retries — records missing a sink reference stay
// queryable in the durable store for an external reconciliation sweep.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/sink"
)

// DurableStore is the system-of-record side of the pipeline. InsertBatch
// runs inside one transaction with per-item isolation: a failing item rolls
// back alone, siblings commit. Its return slices are aligned with the input.
type DurableStore[R any] interface {
	Insert(ctx context.Context, rec R) (int64, error)
	InsertBatch(ctx context.Context, recs []R) (ids []int64, itemErrs []error, err error)
	AttachRef(ctx context.Context, id int64, ref string) error
}

// Sink is the secondary-store side. WriteBulk reports per-item outcomes; a
// whole-call error means the backend was unreachable.
type Sink[R any] interface {
	WriteOne(ctx context.Context, rec R) (string, error)
	WriteBulk(ctx context.Context, recs []R) ([]sink.Result, error)
}

// Codec is the record-kind capability set the coordinator is parameterized
// over. The two record kinds (log, metric) are two instantiations of the
// same pipeline, not two implementations.
type Codec[P any, R any] struct {
	// Validate checks the payload structurally and returns field-scoped
	// errors. Nothing is written when it fails.
	Validate func(P) *ValidationError
	// ToRow converts a valid payload into a durable row, stamping the
	// environment from the authenticated agent.
	ToRow func(P, *agents.Agent) R
}

// Result is the outcome of a single-item ingestion. SinkErr set with ID
// present is a degraded success: stored but not indexed.
type Result struct {
	ID      int64
	Ref     string
	Indexed bool
	SinkErr error
}

// BatchResult is the batch response envelope. SinkErr reports a bulk
// secondary-store failure; the durable Processed count stays accurate.
type BatchResult struct {
	Processed int
	Total     int
	Errors    []ItemError
	Message   string
	SinkErr   error
}

type Coordinator[P any, R interface{ SetID(int64) }] struct {
	kind     string
	agents   *agents.Service
	store    DurableStore[R]
	sink     Sink[R]
	codec    Codec[P, R]
	batchCap int
}

func NewCoordinator[P any, R interface{ SetID(int64) }](kind string, agentService *agents.Service, store DurableStore[R], snk Sink[R], codec Codec[P, R], batchCap int) *Coordinator[P, R] {
	return &Coordinator[P, R]{
		kind:     kind,
		agents:   agentService,
		store:    store,
		sink:     snk,
		codec:    codec,
		batchCap: batchCap,
	}
}

// Ingest runs the single-item path: authenticate, validate, durable write,
// sink write, attach the external reference. A sink failure after the
// durable commit returns a Result with the durable id and SinkErr set, not
// an error.
func (c *Coordinator[P, R]) Ingest(ctx context.Context, token string, payload P) (*Result, error) {
	agent, err := c.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	if verr := c.codec.Validate(payload); verr != nil {
		return nil, verr
	}

	row := c.codec.ToRow(payload, agent)
	id, err := c.store.Insert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDurableWrite, err)
	}
	row.SetID(id)

	ref, err := c.sink.WriteOne(ctx, row)
	if err != nil {
		slog.Warn("Secondary store write failed, record kept durable",
			"kind", c.kind, "id", id, "agent_id", agent.ID, "error", err)
		return &Result{ID: id, SinkErr: err}, nil
	}

	if err := c.store.AttachRef(ctx, id, ref); err != nil {
		// The record is durable and indexed; only the back-reference is
		// missing. Report success and leave the gap to reconciliation.
		slog.Warn("Failed to attach sink reference",
			"kind", c.kind, "id", id, "ref", ref, "error", err)
	}

	return &Result{ID: id, Ref: ref, Indexed: true}, nil
}

// IngestBatch runs the batch path: authenticate once, validate and insert
// per item inside one transaction without aborting on item failure, then
// issue exactly one bulk sink call for the durably-written items. An
// all-items-invalid batch is still a success envelope with Processed 0.
func (c *Coordinator[P, R]) IngestBatch(ctx context.Context, token string, payloads []P) (*BatchResult, error) {
	agent, err := c.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	if len(payloads) == 0 {
		return nil, &ValidationError{Fields: map[string]string{
			"items": "at least one item is required",
		}}
	}
	if len(payloads) > c.batchCap {
		return nil, &ValidationError{Fields: map[string]string{
			"items": fmt.Sprintf("batch exceeds maximum of %d items", c.batchCap),
		}}
	}

	result := &BatchResult{Total: len(payloads)}

	var (
		rows    []R
		rowIdxs []int
	)
	for i, p := range payloads {
		if verr := c.codec.Validate(p); verr != nil {
			result.Errors = append(result.Errors, ItemError{Index: i, Error: verr.Error()})
			continue
		}
		rows = append(rows, c.codec.ToRow(p, agent))
		rowIdxs = append(rowIdxs, i)
	}

	var (
		durable    []R
		durableIDs []int64
	)
	if len(rows) > 0 {
		ids, itemErrs, err := c.store.InsertBatch(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrDurableWrite, err)
		}
		for j := range rows {
			if itemErrs[j] != nil {
				result.Errors = append(result.Errors, ItemError{Index: rowIdxs[j], Error: itemErrs[j].Error()})
				continue
			}
			rows[j].SetID(ids[j])
			durable = append(durable, rows[j])
			durableIDs = append(durableIDs, ids[j])
			result.Processed++
		}
	}

	sort.Slice(result.Errors, func(a, b int) bool {
		return result.Errors[a].Index < result.Errors[b].Index
	})

	if len(durable) > 0 {
		c.forwardBulk(ctx, agent, durable, durableIDs, result)
	}

	result.Message = fmt.Sprintf("Processed %d of %d %s records", result.Processed, result.Total, c.kind)
	return result, nil
}

// forwardBulk issues the single bulk sink call for the batch and attaches
// references for the items the sink accepted. Sink failure, whole or per
// item, never touches the already-committed durable rows.
func (c *Coordinator[P, R]) forwardBulk(ctx context.Context, agent *agents.Agent, durable []R, durableIDs []int64, result *BatchResult) {
	results, err := c.sink.WriteBulk(ctx, durable)
	if err != nil {
		result.SinkErr = err
		slog.Warn("Bulk secondary store write failed, records kept durable",
			"kind", c.kind, "count", len(durable), "agent_id", agent.ID, "error", err)
		return
	}

	for k, r := range results {
		if r.Err != nil {
			slog.Warn("Secondary store rejected batch item, record kept durable",
				"kind", c.kind, "id", durableIDs[k], "error", r.Err)
			continue
		}
		if err := c.store.AttachRef(ctx, durableIDs[k], r.Ref); err != nil {
			slog.Warn("Failed to attach sink reference",
				"kind", c.kind, "id", durableIDs[k], "ref", r.Ref, "error", err)
		}
	}
}

func (c *Coordinator[P, R]) authenticate(ctx context.Context, token string) (*agents.Agent, error) {
	agent, err := c.agents.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, agents.ErrInvalidToken) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return agent, nil
}
