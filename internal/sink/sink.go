// Package sink defines the uniform write contract shared by the secondary
// store adapters. The secondary stores are query-optimized sinks, never the
// source of truth for existence; a failed sink write leaves the durable row
// valid and unindexed.
package sink

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable means the backend could not be reached, or timed out.
// Timeouts are deliberately indistinguishable from an unreachable backend.
var ErrUnavailable = errors.New("sink unavailable")

// RejectedError means the backend accepted the connection but refused the
// record.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("sink rejected record: %s", e.Reason)
}

// Result is the per-item outcome of a bulk write. Ref is set only when Err
// is nil.
type Result struct {
	Ref string
	Err error
}

// MapContextError normalizes a context deadline on a sink call into
// ErrUnavailable so a slow backend and a dead one are handled the same way.
func MapContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	return err
}
