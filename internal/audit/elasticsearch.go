// Package audit ships immutable booking transition events to Elasticsearch.
// The trail is append-only: entries are indexed once and never updated.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"skybook/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Recorder receives booking events after each successful transition.
// Recording is best effort; failures are logged, never propagated into the
// booking flow.
type Recorder interface {
	Record(ctx context.Context, event *models.BookingEvent) error
}

// NopRecorder drops events. Used when the audit sink is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *models.BookingEvent) error { return nil }

type ElasticsearchConfig struct {
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
	Enabled    bool
}

// ElasticsearchRecorder indexes booking events into a single index.
type ElasticsearchRecorder struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchRecorder(cfg ElasticsearchConfig) (*ElasticsearchRecorder, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	recorder := &ElasticsearchRecorder{client: es, index: cfg.Index}

	if err := recorder.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return recorder, nil
}

func (r *ElasticsearchRecorder) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{r.index},
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", r.index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"booking_id":  map[string]interface{}{"type": "long"},
				"type":        map[string]interface{}{"type": "keyword"},
				"actor":       map[string]interface{}{"type": "keyword"},
				"from_status": map[string]interface{}{"type": "keyword"},
				"to_status":   map[string]interface{}{"type": "keyword"},
				"occurred_at": map[string]interface{}{
					"type":   "date",
					"format": "strict_date_optional_time||epoch_millis",
				},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: r.index,
		Body:  bytes.NewReader(body),
	}

	createRes, err := createReq.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("index creation failed: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", r.index)
	return nil
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, event *models.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	req := esapi.IndexRequest{
		Index: r.index,
		Body:  bytes.NewReader(body),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to index booking event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing booking event failed: %s", res.String())
	}

	return nil
}
