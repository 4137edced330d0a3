// Package synclog keeps a history of finished inquiry syncs.
package synclog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"inquiry-sync-workers/internal/models"
)

// SyncEvent describes one finished sync invocation.
type SyncEvent struct {
	AttemptID   string            `json:"attemptId"`
	ServiceArea string            `json:"serviceArea"`
	InquiryID   string            `json:"inquiryId"`
	FormType    models.FormType   `json:"formType"`
	Status      models.SyncStatus `json:"status"`
	LeadID      *int64            `json:"leadId,omitempty"`
	LeadURL     *string           `json:"leadUrl,omitempty"`
	Error       string            `json:"error,omitempty"`
	ErrorCode   string            `json:"errorCode,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
	DurationMs  int64             `json:"durationMs"`
}

// Recorder stores sync events.
type Recorder interface {
	Record(ctx context.Context, event SyncEvent) error
}

// NopRecorder discards events.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, SyncEvent) error { return nil }

// IndexMapping is the mapping of the sync history index.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "attemptId":   {"type": "keyword"},
      "serviceArea": {"type": "keyword"},
      "inquiryId":   {"type": "keyword"},
      "formType":    {"type": "keyword"},
      "status":      {"type": "keyword"},
      "leadId":      {"type": "long"},
      "leadUrl":     {"type": "keyword", "index": false},
      "error":       {"type": "text"},
      "errorCode":   {"type": "keyword"},
      "warnings":    {"type": "text"},
      "startedAt":   {"type": "date"},
      "durationMs":  {"type": "long"}
    }
  }
}`

// ElasticsearchRecorder indexes one document per sync, keyed by attempt id.
type ElasticsearchRecorder struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchRecorder(client *elasticsearch.Client, index string) *ElasticsearchRecorder {
	return &ElasticsearchRecorder{client: client, index: index}
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, event SyncEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode sync event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: event.AttemptID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to index sync event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index sync event: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the history index when it does not exist yet.
func (r *ElasticsearchRecorder) EnsureIndex(ctx context.Context) error {
	exists, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", r.index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	res, err := r.client.Indices.Create(
		r.index,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(bytes.NewReader([]byte(IndexMapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", r.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to create index %s: %s", r.index, res.Status())
	}
	return nil
}
