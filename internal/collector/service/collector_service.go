package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/langwatch/collector/internal/collector/helper"
	"github.com/langwatch/collector/internal/collector/model"
	"github.com/langwatch/collector/internal/db/elasticsearch/bootstrapper"
	"github.com/langwatch/collector/internal/db/elasticsearch/client"
	enrichmentModel "github.com/langwatch/collector/internal/enrichment/model"
	"github.com/langwatch/collector/internal/enrichment/queue"
	projectModel "github.com/langwatch/collector/internal/project/model"
)

// spanFetchSize bounds how many stored spans are merged per trace.
const spanFetchSize = 1000

// CollectorService orchestrates one ingestion request: validation,
// normalization, metric computation, trace aggregation and the idempotent
// upsert of spans and trace. Validation failures reject the whole batch
// before any write happens.
type CollectorService struct {
	ac               client.CollectorClient
	metricCalculator *MetricCalculator
	dispatcher       queue.EnrichmentDispatcher
	storeTimeout     time.Duration
	logger           *zap.Logger
}

func NewCollectorService(
	ac client.CollectorClient,
	metricCalculator *MetricCalculator,
	dispatcher queue.EnrichmentDispatcher,
	storeTimeout time.Duration,
	logger *zap.Logger,
) *CollectorService {
	return &CollectorService{
		ac:               ac,
		metricCalculator: metricCalculator,
		dispatcher:       dispatcher,
		storeTimeout:     storeTimeout,
		logger:           logger,
	}
}

func (cs *CollectorService) ProcessTraceRequest(
	ctx context.Context,
	project *projectModel.Project,
	request *model.TraceRequest,
) error {
	if len(request.Spans) == 0 {
		return model.NewValidationError(
			model.ValidationKindMissingField,
			"",
			"spans",
			"spans must be a non-empty list",
		)
	}

	traceId := request.TraceId
	if traceId == "" {
		traceId = request.Spans[0].TraceId
	}

	spans := make([]model.Span, 0, len(request.Spans))
	for _, rawSpan := range request.Spans {
		span, err := NormalizeSpan(rawSpan, project.Id)
		if err != nil {
			return err
		}
		if span.TraceId != traceId {
			return model.NewValidationError(
				model.ValidationKindBadType,
				span.Id,
				"trace_id",
				"span trace_id does not match the request trace_id",
			)
		}
		cs.metricCalculator.CalculateSpanMetrics(&span)
		spans = append(spans, span)
	}

	storeCtx, cancel := context.WithTimeout(ctx, cs.storeTimeout)
	defer cancel()

	existingSpans, err := cs.getExistingSpans(storeCtx, project.Id, traceId)
	if err != nil {
		return mapStoreError("failed to fetch existing spans", err)
	}
	existingTrace, err := cs.getExistingTrace(storeCtx, traceId)
	if err != nil {
		return mapStoreError("failed to fetch existing trace", err)
	}

	mergedSpans := MergeSpans(existingSpans, spans)
	trace := AggregateSpansIntoTrace(traceId, project.Id, mergedSpans)
	applyRequestMetadata(&trace, request, existingTrace)
	if existingTrace != nil {
		trace.Timestamps.InsertedAt = existingTrace.Timestamps.InsertedAt
		carryOverEmbeddings(&trace, existingTrace)
	} else {
		trace.Timestamps.InsertedAt = time.Now().UnixMilli()
	}

	if err := cs.writeSpansAndTrace(storeCtx, spans, trace); err != nil {
		return err
	}

	cs.dispatchEnrichment(trace)
	return nil
}

func (cs *CollectorService) getExistingSpans(
	ctx context.Context,
	projectId string,
	traceId string,
) ([]model.Span, error) {
	query, err := BuildSpansByTraceIdQuery(projectId, traceId)
	if err != nil {
		return nil, err
	}
	querySize := spanFetchSize
	docs, err := cs.ac.Search(ctx, query, []string{bootstrapper.SpanIndexName}, &querySize)
	if err != nil {
		return nil, err
	}
	return helper.ConvertToSpanDocuments(docs)
}

func (cs *CollectorService) getExistingTrace(
	ctx context.Context,
	traceId string,
) (*model.Trace, error) {
	doc, err := cs.ac.GetDocument(ctx, bootstrapper.TraceIndexName, traceId)
	if err != nil {
		if errors.Is(err, client.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return helper.ConvertToTraceDocument(doc)
}

func (cs *CollectorService) writeSpansAndTrace(
	ctx context.Context,
	spans []model.Span,
	trace model.Trace,
) error {
	ids := make([]string, len(spans))
	documents := make([]interface{}, len(spans))
	for i, span := range spans {
		ids[i] = span.Id
		documents[i] = span
	}
	if err := cs.ac.BulkPut(ctx, bootstrapper.SpanIndexName, ids, documents); err != nil {
		return mapStoreError("failed to upsert spans", err)
	}
	if err := cs.ac.PutDocument(ctx, bootstrapper.TraceIndexName, trace.Id, trace); err != nil {
		return mapStoreError("failed to upsert trace", err)
	}
	return nil
}

// dispatchEnrichment hands the trace off for embedding computation and PII
// scrubbing. The contract ends at the job being dispatched: failures here
// never fail the ingestion request.
func (cs *CollectorService) dispatchEnrichment(trace model.Trace) {
	job := enrichmentModel.EnrichmentJob{
		ProjectId: trace.ProjectId,
		TraceId:   trace.Id,
	}
	if trace.Input != nil {
		job.InputText = trace.Input.Value
	}
	if trace.Output != nil {
		job.OutputText = trace.Output.Value
	}
	if err := cs.dispatcher.Dispatch(job); err != nil {
		cs.logger.Error(
			"Failed to dispatch enrichment job",
			zap.String("trace_id", trace.Id),
			zap.Error(err),
		)
	}
}

func applyRequestMetadata(trace *model.Trace, request *model.TraceRequest, existingTrace *model.Trace) {
	trace.ThreadId = request.ThreadId
	trace.UserId = request.UserId
	trace.CustomerId = request.CustomerId
	trace.Labels = request.Labels
	if existingTrace == nil {
		return
	}
	// metadata omitted on a follow-up ingestion keeps its previous value
	if trace.ThreadId == "" {
		trace.ThreadId = existingTrace.ThreadId
	}
	if trace.UserId == "" {
		trace.UserId = existingTrace.UserId
	}
	if trace.CustomerId == "" {
		trace.CustomerId = existingTrace.CustomerId
	}
	if len(trace.Labels) == 0 {
		trace.Labels = existingTrace.Labels
	}
}

// carryOverEmbeddings keeps previously computed vectors when the rollup text
// did not change, so a re-ingestion does not blank them out while the
// enrichment job is still in flight.
func carryOverEmbeddings(trace *model.Trace, existingTrace *model.Trace) {
	if trace.Input != nil && existingTrace.Input != nil &&
		trace.Input.Value == existingTrace.Input.Value {
		trace.Input.OpenAIEmbeddings = existingTrace.Input.OpenAIEmbeddings
	}
	if trace.Output != nil && existingTrace.Output != nil &&
		trace.Output.Value == existingTrace.Output.Value {
		trace.Output.OpenAIEmbeddings = existingTrace.Output.OpenAIEmbeddings
	}
	trace.SearchEmbeddings = existingTrace.SearchEmbeddings
}

func mapStoreError(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", message, model.ErrDownstreamTimeout)
	}
	return fmt.Errorf("%s: %w", message, err)
}
