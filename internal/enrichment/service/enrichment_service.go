package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/langwatch/collector/internal/collector/helper"
	collectorModel "github.com/langwatch/collector/internal/collector/model"
	collectorService "github.com/langwatch/collector/internal/collector/service"
	"github.com/langwatch/collector/internal/db/elasticsearch/bootstrapper"
	"github.com/langwatch/collector/internal/db/elasticsearch/client"
	"github.com/langwatch/collector/internal/enrichment/model"
)

// EnrichmentService performs the asynchronous post-ingestion work for one
// trace: PII scrubbing of the stored documents and embedding computation
// for search. It runs decoupled from the ingestion request; every failure
// here is logged and dropped, never surfaced to the caller.
type EnrichmentService struct {
	ac         client.CollectorClient
	embeddings EmbeddingService
	scrubber   *PIIScrubber
	timeout    time.Duration
	logger     *zap.Logger
}

func NewEnrichmentService(
	ac client.CollectorClient,
	embeddings EmbeddingService,
	scrubber *PIIScrubber,
	timeout time.Duration,
	logger *zap.Logger,
) *EnrichmentService {
	return &EnrichmentService{
		ac:         ac,
		embeddings: embeddings,
		scrubber:   scrubber,
		timeout:    timeout,
		logger:     logger,
	}
}

func (es *EnrichmentService) HandleJob(job model.EnrichmentJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), es.timeout)
	defer cancel()

	if err := es.enrichTrace(ctx, job); err != nil {
		return err
	}
	return es.scrubSpans(ctx, job)
}

func (es *EnrichmentService) enrichTrace(ctx context.Context, job model.EnrichmentJob) error {
	inputText := es.scrubber.Scrub(job.InputText)
	outputText := es.scrubber.Scrub(job.OutputText)

	fields := map[string]interface{}{}
	if inputText != "" {
		input := map[string]interface{}{"value": inputText}
		if vector := es.embed(ctx, inputText, job.TraceId); vector != nil {
			input["openai_embeddings"] = vector
		}
		fields["input"] = input
	}
	if outputText != "" {
		output := map[string]interface{}{"value": outputText}
		if vector := es.embed(ctx, outputText, job.TraceId); vector != nil {
			output["openai_embeddings"] = vector
		}
		fields["output"] = output
	}
	if searchText := joinNonEmpty(inputText, outputText); searchText != "" {
		if vector := es.embed(ctx, searchText, job.TraceId); vector != nil {
			fields["search_embeddings"] = map[string]interface{}{
				"openai_embeddings": vector,
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}

	return es.ac.BulkUpdate(
		ctx,
		[]string{job.TraceId},
		[]map[string]interface{}{fields},
		bootstrapper.TraceIndexName,
	)
}

func (es *EnrichmentService) scrubSpans(ctx context.Context, job model.EnrichmentJob) error {
	query, err := collectorService.BuildSpansByTraceIdQuery(job.ProjectId, job.TraceId)
	if err != nil {
		return err
	}
	querySize := 1000
	docs, err := es.ac.Search(ctx, query, []string{bootstrapper.SpanIndexName}, &querySize)
	if err != nil {
		return err
	}
	spans, err := helper.ConvertToSpanDocuments(docs)
	if err != nil {
		return err
	}

	var ids []string
	var fieldList []map[string]interface{}
	for _, span := range spans {
		fields := es.scrubSpanFields(span)
		if len(fields) == 0 {
			continue
		}
		ids = append(ids, span.Id)
		fieldList = append(fieldList, fields)
	}
	if len(ids) == 0 {
		return nil
	}
	return es.ac.BulkUpdate(ctx, ids, fieldList, bootstrapper.SpanIndexName)
}

func (es *EnrichmentService) scrubSpanFields(span collectorModel.Span) map[string]interface{} {
	fields := map[string]interface{}{}
	if span.Input != nil {
		if scrubbed := es.scrubber.Scrub(span.Input.Value); scrubbed != span.Input.Value {
			fields["input"] = collectorModel.SpanInputOutput{Type: span.Input.Type, Value: scrubbed}
		}
	}
	scrubbedOutputs := make([]collectorModel.SpanInputOutput, len(span.Outputs))
	outputsChanged := false
	for i, output := range span.Outputs {
		scrubbed := es.scrubber.Scrub(output.Value)
		if scrubbed != output.Value {
			outputsChanged = true
		}
		scrubbedOutputs[i] = collectorModel.SpanInputOutput{Type: output.Type, Value: scrubbed}
	}
	if outputsChanged {
		fields["outputs"] = scrubbedOutputs
	}
	if span.Error != nil {
		if scrubbed := es.scrubber.Scrub(span.Error.Message); scrubbed != span.Error.Message {
			fields["error"] = collectorModel.SpanError{
				Message:    scrubbed,
				Stacktrace: span.Error.Stacktrace,
			}
		}
	}
	return fields
}

// embed swallows embedding failures: a missing vector only degrades search,
// it must never poison the enrichment of the rest of the trace.
func (es *EnrichmentService) embed(ctx context.Context, text string, traceId string) []float32 {
	if es.embeddings == nil {
		return nil
	}
	vector, err := es.embeddings.CreateEmbedding(ctx, text)
	if err != nil {
		es.logger.Warn(
			"Failed to compute embedding",
			zap.String("trace_id", traceId),
			zap.Error(err),
		)
		return nil
	}
	return vector
}

func joinNonEmpty(inputText string, outputText string) string {
	if inputText == "" {
		return outputText
	}
	if outputText == "" {
		return inputText
	}
	return inputText + "\n\n" + outputText
}
