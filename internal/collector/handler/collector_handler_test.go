package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/langwatch/collector/internal/collector/service"
	"github.com/langwatch/collector/internal/db/elasticsearch/bootstrapper"
	"github.com/langwatch/collector/internal/db/elasticsearch/client"
	enrichmentModel "github.com/langwatch/collector/internal/enrichment/model"
	projectModel "github.com/langwatch/collector/internal/project/model"
	projectService "github.com/langwatch/collector/internal/project/service"
)

const testApiKey = "test-auth-token"

func TestCollectorHandler(t *testing.T) {
	t.Run("should return 200 and store the batch on a valid request", func(t *testing.T) {
		store := newHandlerDocumentStore()
		recorder := serveCollectorRequest(t, store, http.MethodPost, testApiKey, validRequestBody())
		assert.Equal(t, http.StatusOK, recorder.Code)

		var response CollectorResponseDTO
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "ok", response.Status)
		assert.Contains(t, store.spanDocs, "span-1")
		assert.Contains(t, store.traceDocs, "trace-1")
	})

	t.Run("should return 405 on a non-POST method", func(t *testing.T) {
		store := newHandlerDocumentStore()
		recorder := serveCollectorRequest(t, store, http.MethodGet, testApiKey, validRequestBody())
		assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
		assert.Empty(t, store.spanDocs)
	})

	t.Run("should return 401 when the auth header is missing", func(t *testing.T) {
		store := newHandlerDocumentStore()
		recorder := serveCollectorRequest(t, store, http.MethodPost, "", validRequestBody())
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Empty(t, store.spanDocs)
	})

	t.Run("should return 401 on an unknown api key", func(t *testing.T) {
		store := newHandlerDocumentStore()
		recorder := serveCollectorRequest(t, store, http.MethodPost, "wrong-key", validRequestBody())
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Empty(t, store.spanDocs)
	})

	t.Run("should return 400 on a malformed JSON body", func(t *testing.T) {
		store := newHandlerDocumentStore()
		recorder := serveCollectorRequest(t, store, http.MethodPost, testApiKey, []byte(`{not json`))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Empty(t, store.spanDocs)
	})

	t.Run("should return 400 with span details on an invalid span", func(t *testing.T) {
		store := newHandlerDocumentStore()
		body := requestBody(map[string]interface{}{
			"trace_id": "trace-1",
			"spans": []map[string]interface{}{
				{
					"type":     "llm",
					"id":       "span-1",
					"trace_id": "trace-1",
					"timestamps": map[string]interface{}{
						"started_at":  200,
						"finished_at": 100,
					},
					"vendor": "openai",
					"model":  "gpt-3.5-turbo",
				},
			},
		})
		recorder := serveCollectorRequest(t, store, http.MethodPost, testApiKey, body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)

		var response ErrorResponseDTO
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "timestamp-inversion", response.Error.Kind)
		assert.Equal(t, "span-1", response.Error.SpanId)
		assert.Empty(t, store.spanDocs)
		assert.Empty(t, store.traceDocs)
	})

	t.Run("should return 400 on an empty span list", func(t *testing.T) {
		store := newHandlerDocumentStore()
		body := requestBody(map[string]interface{}{"trace_id": "trace-1", "spans": []interface{}{}})
		recorder := serveCollectorRequest(t, store, http.MethodPost, testApiKey, body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)

		var response ErrorResponseDTO
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "missing-field", response.Error.Kind)
		assert.Equal(t, "spans", response.Error.Field)
	})

	t.Run("should return 503 when the document store times out", func(t *testing.T) {
		store := newHandlerDocumentStore()
		store.searchErr = context.DeadlineExceeded
		recorder := serveCollectorRequest(t, store, http.MethodPost, testApiKey, validRequestBody())
		assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

		var response ErrorResponseDTO
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "downstream-timeout", response.Error.Kind)
	})

	t.Run("should return 500 without leaking detail on an unexpected store failure", func(t *testing.T) {
		store := newHandlerDocumentStore()
		store.searchErr = assert.AnError
		recorder := serveCollectorRequest(t, store, http.MethodPost, testApiKey, validRequestBody())
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)

		var response ErrorResponseDTO
		assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "internal", response.Error.Kind)
		assert.NotContains(t, recorder.Body.String(), assert.AnError.Error())
	})
}

func serveCollectorRequest(
	t *testing.T,
	store *handlerDocumentStore,
	method string,
	apiKey string,
	body []byte,
) *httptest.ResponseRecorder {
	t.Helper()
	logger := zaptest.NewLogger(t)
	collectorService := service.NewCollectorService(
		store,
		service.NewMetricCalculator(service.DefaultPricingTable()),
		&noopDispatcher{},
		time.Second*10,
		logger,
	)
	collectorHandler := CollectorHandler(&fixedProjectService{}, collectorService, logger)

	request := httptest.NewRequest(method, "/api/collector", bytes.NewReader(body))
	if apiKey != "" {
		request.Header.Set(AuthTokenHeader, apiKey)
	}
	recorder := httptest.NewRecorder()
	collectorHandler(recorder, request)
	return recorder
}

func validRequestBody() []byte {
	return requestBody(map[string]interface{}{
		"trace_id": "trace-1",
		"spans": []map[string]interface{}{
			{
				"type":     "llm",
				"id":       "span-1",
				"trace_id": "trace-1",
				"input":    map[string]interface{}{"type": "text", "value": "hello"},
				"outputs":  []map[string]interface{}{{"type": "text", "value": "world"}},
				"timestamps": map[string]interface{}{
					"started_at":  100,
					"finished_at": 110,
				},
				"vendor": "openai",
				"model":  "gpt-3.5-turbo",
			},
		},
	})
}

func requestBody(payload map[string]interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return data
}

type fixedProjectService struct{}

func (f *fixedProjectService) GetProjectByApiKey(
	_ context.Context,
	apiKey string,
) (*projectModel.Project, error) {
	if apiKey != testApiKey {
		return nil, projectService.ErrProjectNotFound
	}
	return &projectModel.Project{Id: "project-123", ApiKey: testApiKey}, nil
}

type noopDispatcher struct{}

func (n *noopDispatcher) Dispatch(_ enrichmentModel.EnrichmentJob) error {
	return nil
}

// handlerDocumentStore is a minimal in-memory document store for driving the
// handler through a real CollectorService.
type handlerDocumentStore struct {
	spanDocs  map[string]map[string]interface{}
	traceDocs map[string]map[string]interface{}
	searchErr error
}

func newHandlerDocumentStore() *handlerDocumentStore {
	return &handlerDocumentStore{
		spanDocs:  make(map[string]map[string]interface{}),
		traceDocs: make(map[string]map[string]interface{}),
	}
}

func (h *handlerDocumentStore) docsForIndex(index string) map[string]map[string]interface{} {
	if index == bootstrapper.TraceIndexName {
		return h.traceDocs
	}
	return h.spanDocs
}

func (h *handlerDocumentStore) GetDocument(
	_ context.Context,
	index string,
	id string,
) (map[string]interface{}, error) {
	doc, ok := h.docsForIndex(index)[id]
	if !ok {
		return nil, client.ErrDocumentNotFound
	}
	return doc, nil
}

func (h *handlerDocumentStore) PutDocument(
	_ context.Context,
	index string,
	id string,
	document interface{},
) error {
	h.docsForIndex(index)[id] = handlerToDocument(document)
	return nil
}

func (h *handlerDocumentStore) BulkPut(
	_ context.Context,
	index string,
	ids []string,
	documents []interface{},
) error {
	docs := h.docsForIndex(index)
	for i, id := range ids {
		docs[id] = handlerToDocument(documents[i])
	}
	return nil
}

func (h *handlerDocumentStore) Search(
	_ context.Context,
	_ string,
	indices []string,
	_ *int,
) ([]map[string]interface{}, error) {
	if h.searchErr != nil {
		return nil, h.searchErr
	}
	var results []map[string]interface{}
	for id, doc := range h.docsForIndex(indices[0]) {
		result := make(map[string]interface{}, len(doc)+1)
		for key, value := range doc {
			result[key] = value
		}
		result["_id"] = id
		results = append(results, result)
	}
	return results, nil
}

func (h *handlerDocumentStore) BulkUpdate(
	_ context.Context,
	ids []string,
	fieldList []map[string]interface{},
	index string,
) error {
	docs := h.docsForIndex(index)
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

func (h *handlerDocumentStore) Count(
	_ context.Context,
	_ string,
	indices []string,
) (int64, error) {
	return int64(len(h.docsForIndex(indices[0]))), nil
}

func handlerToDocument(document interface{}) map[string]interface{} {
	data, err := json.Marshal(document)
	if err != nil {
		panic(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		panic(err)
	}
	return doc
}
