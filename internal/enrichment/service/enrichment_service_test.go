package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	collectorModel "github.com/langwatch/collector/internal/collector/model"
	"github.com/langwatch/collector/internal/db/elasticsearch/bootstrapper"
	"github.com/langwatch/collector/internal/db/elasticsearch/client"
	"github.com/langwatch/collector/internal/enrichment/model"
)

func TestHandleJob(t *testing.T) {
	job := model.EnrichmentJob{
		ProjectId:  "project-123",
		TraceId:    "trace-1",
		InputText:  "what does jane.doe@example.com want",
		OutputText: "a refund",
	}

	t.Run("should scrub PII and attach embeddings to the trace", func(t *testing.T) {
		store := newEnrichmentStore()
		store.traceDocs["trace-1"] = map[string]interface{}{"id": "trace-1"}
		enrichmentService := newTestEnrichmentService(t, store, &fixedEmbeddingService{vector: []float32{0.1, 0.2}})

		err := enrichmentService.HandleJob(job)
		assert.Nil(t, err)

		traceDoc := store.traceDocs["trace-1"]
		input := traceDoc["input"].(map[string]interface{})
		assert.Equal(t, "what does [REDACTED] want", input["value"])
		assert.Equal(t, []float32{0.1, 0.2}, input["openai_embeddings"])
		output := traceDoc["output"].(map[string]interface{})
		assert.Equal(t, "a refund", output["value"])
		searchEmbeddings := traceDoc["search_embeddings"].(map[string]interface{})
		assert.Equal(t, []float32{0.1, 0.2}, searchEmbeddings["openai_embeddings"])
	})

	t.Run("should scrub stored span text containing PII", func(t *testing.T) {
		store := newEnrichmentStore()
		store.traceDocs["trace-1"] = map[string]interface{}{"id": "trace-1"}
		store.spanDocs["span-1"] = spanDocument("span-1", `"email jane.doe@example.com now"`, `"ok"`)
		enrichmentService := newTestEnrichmentService(t, store, nil)

		err := enrichmentService.HandleJob(job)
		assert.Nil(t, err)

		spanDoc := store.spanDocs["span-1"]
		input := spanDoc["input"].(collectorModel.SpanInputOutput)
		assert.Equal(t, `"email [REDACTED] now"`, input.Value)
		// the clean output side is left untouched
		_, outputsUpdated := spanDoc["outputs"].([]collectorModel.SpanInputOutput)
		assert.False(t, outputsUpdated)
	})

	t.Run("should still update text when the embedding service is absent", func(t *testing.T) {
		store := newEnrichmentStore()
		store.traceDocs["trace-1"] = map[string]interface{}{"id": "trace-1"}
		enrichmentService := newTestEnrichmentService(t, store, nil)

		err := enrichmentService.HandleJob(job)
		assert.Nil(t, err)

		input := store.traceDocs["trace-1"]["input"].(map[string]interface{})
		assert.Equal(t, "what does [REDACTED] want", input["value"])
		assert.NotContains(t, input, "openai_embeddings")
	})

	t.Run("should keep enriching when embedding computation fails", func(t *testing.T) {
		store := newEnrichmentStore()
		store.traceDocs["trace-1"] = map[string]interface{}{"id": "trace-1"}
		enrichmentService := newTestEnrichmentService(t, store, &fixedEmbeddingService{err: assert.AnError})

		err := enrichmentService.HandleJob(job)
		assert.Nil(t, err)

		input := store.traceDocs["trace-1"]["input"].(map[string]interface{})
		assert.Equal(t, "what does [REDACTED] want", input["value"])
		assert.NotContains(t, input, "openai_embeddings")
	})

	t.Run("should do nothing for a job with no text", func(t *testing.T) {
		store := newEnrichmentStore()
		enrichmentService := newTestEnrichmentService(t, store, nil)

		err := enrichmentService.HandleJob(model.EnrichmentJob{ProjectId: "project-123", TraceId: "trace-1"})
		assert.Nil(t, err)
		assert.Empty(t, store.traceDocs)
	})
}

func newTestEnrichmentService(
	t *testing.T,
	store *enrichmentStore,
	embeddings EmbeddingService,
) *EnrichmentService {
	t.Helper()
	return NewEnrichmentService(store, embeddings, NewPIIScrubber(), time.Second*10, zaptest.NewLogger(t))
}

func spanDocument(id string, input string, output string) map[string]interface{} {
	span := collectorModel.Span{
		Id:      id,
		TraceId: "trace-1",
		Type:    collectorModel.SpanTypeLLM,
		Input:   &collectorModel.SpanInputOutput{Type: collectorModel.SpanValueTypeText, Value: input},
		Outputs: []collectorModel.SpanInputOutput{
			{Type: collectorModel.SpanValueTypeText, Value: output},
		},
	}
	data, err := json.Marshal(span)
	if err != nil {
		panic(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		panic(err)
	}
	return doc
}

type fixedEmbeddingService struct {
	vector []float32
	err    error
}

func (f *fixedEmbeddingService) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// enrichmentStore is an in-memory CollectorClient covering the lookups and
// partial updates enrichment performs.
type enrichmentStore struct {
	spanDocs  map[string]map[string]interface{}
	traceDocs map[string]map[string]interface{}
}

func newEnrichmentStore() *enrichmentStore {
	return &enrichmentStore{
		spanDocs:  make(map[string]map[string]interface{}),
		traceDocs: make(map[string]map[string]interface{}),
	}
}

func (e *enrichmentStore) docsForIndex(index string) map[string]map[string]interface{} {
	if index == bootstrapper.TraceIndexName {
		return e.traceDocs
	}
	return e.spanDocs
}

func (e *enrichmentStore) GetDocument(
	_ context.Context,
	index string,
	id string,
) (map[string]interface{}, error) {
	doc, ok := e.docsForIndex(index)[id]
	if !ok {
		return nil, client.ErrDocumentNotFound
	}
	return doc, nil
}

func (e *enrichmentStore) PutDocument(
	_ context.Context,
	index string,
	id string,
	document interface{},
) error {
	data, err := json.Marshal(document)
	if err != nil {
		return err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	e.docsForIndex(index)[id] = doc
	return nil
}

func (e *enrichmentStore) BulkPut(
	ctx context.Context,
	index string,
	ids []string,
	documents []interface{},
) error {
	for i, id := range ids {
		if err := e.PutDocument(ctx, index, id, documents[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *enrichmentStore) Search(
	_ context.Context,
	_ string,
	indices []string,
	_ *int,
) ([]map[string]interface{}, error) {
	var results []map[string]interface{}
	for id, doc := range e.docsForIndex(indices[0]) {
		result := make(map[string]interface{}, len(doc)+1)
		for key, value := range doc {
			result[key] = value
		}
		result["_id"] = id
		results = append(results, result)
	}
	return results, nil
}

func (e *enrichmentStore) BulkUpdate(
	_ context.Context,
	ids []string,
	fieldList []map[string]interface{},
	index string,
) error {
	docs := e.docsForIndex(index)
	for i, id := range ids {
		doc, ok := docs[id]
		if !ok {
			return client.ErrDocumentNotFound
		}
		for field, value := range fieldList[i] {
			doc[field] = value
		}
	}
	return nil
}

func (e *enrichmentStore) Count(
	_ context.Context,
	_ string,
	indices []string,
) (int64, error) {
	return int64(len(e.docsForIndex(indices[0]))), nil
}
