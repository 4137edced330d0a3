package synclog

import (
	"context"

	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/database"
)

// Open returns an Elasticsearch recorder when an endpoint is configured and a
// NopRecorder otherwise. The history index is created on first use.
func Open(ctx context.Context, es config.ElasticsearchConfig, index string) (Recorder, error) {
	if !es.Enabled() {
		return NopRecorder{}, nil
	}

	client, err := database.NewElasticsearch(es)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}

	recorder := NewElasticsearchRecorder(client.Client, index)
	if err := recorder.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return recorder, nil
}
