package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized means the agent token resolved to nothing. Rejected
	// before any store is touched.
	ErrUnauthorized = errors.New("unauthorized: invalid agent token")

	// ErrDurableWrite means the system of record refused the write. The
	// whole operation fails; nothing is reported as success.
	ErrDurableWrite = errors.New("durable write failed")
)

// ValidationError carries the specific fields at fault. Raised before any
// write, so no partial state exists.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ItemError reports one failed item of a batch, keyed by its submitted
// index.
type ItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}
