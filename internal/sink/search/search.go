// Package search forwards log entries to the Elasticsearch index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/logbookhq/logbook-server/internal/logs"
	"github.com/logbookhq/logbook-server/internal/sink"
)

const defaultTimeout = 5 * time.Second

type Config struct {
	Addresses   []string      `mapstructure:"addresses"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	IndexPrefix string        `mapstructure:"index_prefix"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Writer indexes log entries into daily indices named by the entry's event
// timestamp, so late-arriving records land in the day they happened.
type Writer struct {
	client  *elasticsearch.Client
	prefix  string
	timeout time.Duration
}

func NewWriter(cfg Config) (*Writer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = "logbook"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Writer{client: client, prefix: prefix, timeout: timeout}, nil
}

// document is the search-index shape of a log entry.
type document struct {
	ID          int64                  `json:"id"`
	AgentID     int64                  `json:"agent_id"`
	AgentName   string                 `json:"agent_name"`
	Timestamp   time.Time              `json:"timestamp"`
	Level       string                 `json:"level"`
	Message     string                 `json:"message"`
	Source      string                 `json:"source"`
	Facility    string                 `json:"facility,omitempty"`
	Hostname    string                 `json:"hostname"`
	ProcessName string                 `json:"process_name,omitempty"`
	ProcessID   *int                   `json:"process_id,omitempty"`
	Environment string                 `json:"environment"`
	Tags        map[string]interface{} `json:"tags"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   time.Time              `json:"created_at"`
}

func toDocument(e *logs.Entry) document {
	tags := e.Tags
	if tags == nil {
		tags = map[string]interface{}{}
	}
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return document{
		ID:          e.ID,
		AgentID:     e.AgentID,
		AgentName:   e.AgentName,
		Timestamp:   e.Timestamp,
		Level:       e.Level,
		Message:     e.Message,
		Source:      e.Source,
		Facility:    e.Facility,
		Hostname:    e.Hostname,
		ProcessName: e.ProcessName,
		ProcessID:   e.ProcessID,
		Environment: e.Environment,
		Tags:        tags,
		Metadata:    metadata,
		CreatedAt:   e.CreatedAt,
	}
}

// indexName partitions by the record's event date, not receipt time.
func (w *Writer) indexName(ts time.Time) string {
	return fmt.Sprintf("%s-logs-%s", w.prefix, ts.UTC().Format("2006.01.02"))
}

// WriteOne indexes a single entry and returns the document id assigned by
// the index.
func (w *Writer) WriteOne(ctx context.Context, e *logs.Entry) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	body, err := json.Marshal(toDocument(e))
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := w.client.Index(
		w.indexName(e.Timestamp),
		bytes.NewReader(body),
		w.client.Index.WithContext(ctx),
	)
	if err != nil {
		return "", sink.MapContextError(fmt.Errorf("%w: %s", sink.ErrUnavailable, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode >= 500 {
			return "", fmt.Errorf("%w: status %d", sink.ErrUnavailable, res.StatusCode)
		}
		return "", &sink.RejectedError{Reason: res.String()}
	}

	var indexed struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&indexed); err != nil {
		return "", fmt.Errorf("failed to decode index response: %w", err)
	}
	return indexed.ID, nil
}

// WriteBulk indexes entries through the _bulk API and maps the per-item
// responses back onto the input order. One malformed record never aborts the
// whole call; its slot carries the rejection instead.
func (w *Writer) WriteBulk(ctx context.Context, entries []*logs.Entry) ([]sink.Result, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var buf bytes.Buffer
	for _, e := range entries {
		action, _ := json.Marshal(map[string]interface{}{
			"index": map[string]interface{}{"_index": w.indexName(e.Timestamp)},
		})
		doc, err := json.Marshal(toDocument(e))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := w.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		w.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, sink.MapContextError(fmt.Errorf("%w: %s", sink.ErrUnavailable, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: status %d", sink.ErrUnavailable, res.StatusCode)
	}

	var bulk struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if len(bulk.Items) != len(entries) {
		return nil, fmt.Errorf("bulk response has %d items, expected %d", len(bulk.Items), len(entries))
	}

	results := make([]sink.Result, len(entries))
	for i, item := range bulk.Items {
		outcome, ok := item["index"]
		if !ok {
			results[i] = sink.Result{Err: fmt.Errorf("bulk item %d missing index outcome", i)}
			continue
		}
		if outcome.Error != nil {
			results[i] = sink.Result{Err: &sink.RejectedError{
				Reason: fmt.Sprintf("%s: %s", outcome.Error.Type, outcome.Error.Reason),
			}}
			continue
		}
		results[i] = sink.Result{Ref: outcome.ID}
	}
	return results, nil
}

// EnsureIndexTemplate installs the index template for the daily log indices.
// Idempotent; called once at startup.
func (w *Writer) EnsureIndexTemplate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	template := map[string]interface{}{
		"index_patterns": []string{w.prefix + "-logs-*"},
		"template": map[string]interface{}{
			"settings": map[string]interface{}{
				"number_of_shards":       1,
				"number_of_replicas":     0,
				"index.refresh_interval": "30s",
			},
			"mappings": map[string]interface{}{
				"properties": map[string]interface{}{
					"id":           map[string]string{"type": "long"},
					"agent_id":     map[string]string{"type": "long"},
					"agent_name":   map[string]string{"type": "keyword"},
					"timestamp":    map[string]string{"type": "date"},
					"level":        map[string]string{"type": "keyword"},
					"message":      map[string]string{"type": "text"},
					"source":       map[string]string{"type": "keyword"},
					"facility":     map[string]string{"type": "keyword"},
					"hostname":     map[string]string{"type": "keyword"},
					"process_name": map[string]string{"type": "keyword"},
					"process_id":   map[string]string{"type": "integer"},
					"environment":  map[string]string{"type": "keyword"},
					"tags":         map[string]string{"type": "object"},
					"metadata":     map[string]string{"type": "object"},
					"created_at":   map[string]string{"type": "date"},
				},
			},
		},
	}

	body, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal index template: %w", err)
	}

	res, err := w.client.Indices.PutIndexTemplate(
		w.prefix+"-logs-template",
		strings.NewReader(string(body)),
		w.client.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return sink.MapContextError(fmt.Errorf("%w: %s", sink.ErrUnavailable, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to put index template: %s", res.String())
	}

	slog.Info("Elasticsearch index template ensured", "prefix", w.prefix)
	return nil
}
