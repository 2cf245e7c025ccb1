package client

import (
	"context"
	"errors"

	"github.com/elastic/go-elasticsearch/v8"
)

const SearchResultSize = 10

type RefreshRate string

const (
	// Wait for the changes made by the request to be made visible by a refresh before replying.
	Wait RefreshRate = "wait_for"
	// Immediate Refresh the relevant primary and replica shards (not the whole index) immediately after the operation occurs.
	Immediate RefreshRate = "true"
	// Async Take no refresh related actions. The changes made by this request will be made visible at some point after the request returns.
	Async RefreshRate = "false"
)

// CollectorClient is the narrow document-store surface the ingestion
// pipeline depends on: id-keyed get/put upserts for span and trace
// documents, plus search for trace-scoped lookups.
type CollectorClient interface {
	// GetDocument fetches a single document by id.
	// Returns ErrDocumentNotFound when the id is absent from the index.
	GetDocument(ctx context.Context, index string, id string) (map[string]interface{}, error)
	// PutDocument inserts or fully overwrites a single document keyed by id.
	PutDocument(ctx context.Context, index string, id string, document interface{}) error
	// BulkPut inserts or fully overwrites multiple documents keyed by their ids.
	BulkPut(ctx context.Context, index string, ids []string, documents []interface{}) error
	// Search searches for documents in the index
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/search-search.html
	// queryResultSize is the number of results to return, -1 for default
	Search(ctx context.Context, query string, indices []string, queryResultSize *int) ([]map[string]interface{}, error)
	// BulkUpdate partially updates multiple documents in the same index
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/docs-bulk.html
	BulkUpdate(ctx context.Context, ids []string, fieldList []map[string]interface{}, index string) error
	// Count counts the number of documents in the index matching the query
	Count(ctx context.Context, query string, indices []string) (int64, error)
}

type CollectorClientImpl struct {
	es          *elasticsearch.Client
	refreshRate string
}

func NewCollectorClientImpl(es *elasticsearch.Client, refreshRate RefreshRate) *CollectorClientImpl {
	return &CollectorClientImpl{es: es, refreshRate: string(refreshRate)}
}

var ErrDocumentNotFound = errors.New("document not found in index")
