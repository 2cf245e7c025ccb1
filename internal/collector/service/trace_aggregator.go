package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/langwatch/collector/internal/collector/model"
)

// MergeSpans folds newly ingested spans over the previously stored set,
// newer span winning on id. The result is ordered by (started_at, id) so
// every downstream fold is deterministic under permutation of the input.
func MergeSpans(existingSpans []model.Span, incomingSpans []model.Span) []model.Span {
	merged := make(map[string]model.Span, len(existingSpans)+len(incomingSpans))
	for _, span := range existingSpans {
		merged[span.Id] = span
	}
	for _, span := range incomingSpans {
		merged[span.Id] = span
	}

	spans := make([]model.Span, 0, len(merged))
	for _, span := range merged {
		spans = append(spans, span)
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Timestamps.StartedAt != spans[j].Timestamps.StartedAt {
			return spans[i].Timestamps.StartedAt < spans[j].Timestamps.StartedAt
		}
		return spans[i].Id < spans[j].Id
	})
	return spans
}

// AggregateSpansIntoTrace folds the full current span set of a trace into
// its rollup document. It is pure: the same span set always produces the
// same trace document, which is what makes retried ingestions idempotent.
// The caller fills in inserted_at and the request passthrough metadata.
func AggregateSpansIntoTrace(traceId string, projectId string, spans []model.Span) model.Trace {
	spans = MergeSpans(nil, spans)

	trace := model.Trace{
		Id:        traceId,
		ProjectId: projectId,
	}
	if len(spans) == 0 {
		return trace
	}

	minStartedAt := spans[0].Timestamps.StartedAt
	maxFinishedAt := spans[0].Timestamps.FinishedAt
	var firstTokenAt *int64
	for _, span := range spans {
		if span.Timestamps.StartedAt < minStartedAt {
			minStartedAt = span.Timestamps.StartedAt
		}
		if span.Timestamps.FinishedAt > maxFinishedAt {
			maxFinishedAt = span.Timestamps.FinishedAt
		}
		if span.Timestamps.FirstTokenAt != nil {
			if firstTokenAt == nil || *span.Timestamps.FirstTokenAt < *firstTokenAt {
				firstTokenAt = span.Timestamps.FirstTokenAt
			}
		}
	}

	trace.Timestamps.StartedAt = minStartedAt
	trace.Metrics = aggregateMetrics(spans, minStartedAt, maxFinishedAt, firstTokenAt)
	trace.Error = firstSpanError(spans)

	inputSpan, outputSpan := selectRootSpans(spans)
	if inputSpan != nil && inputSpan.Input != nil {
		trace.Input = &model.TraceInputOutput{Value: PlainText(inputSpan.Input)}
	}
	if outputSpan != nil {
		if text := lastOutputText(outputSpan.Outputs); text != "" {
			trace.Output = &model.TraceInputOutput{Value: text}
		}
	}

	return trace
}

func aggregateMetrics(
	spans []model.Span,
	minStartedAt int64,
	maxFinishedAt int64,
	firstTokenAt *int64,
) model.TraceMetrics {
	promptTokens := 0
	completionTokens := 0
	tokensEstimated := false
	totalCost := decimal.Zero
	for _, span := range spans {
		if span.Metrics.PromptTokens != nil {
			promptTokens += *span.Metrics.PromptTokens
		}
		if span.Metrics.CompletionTokens != nil {
			completionTokens += *span.Metrics.CompletionTokens
		}
		if span.Metrics.TotalCost != nil {
			totalCost = totalCost.Add(decimal.NewFromFloat(*span.Metrics.TotalCost))
		}
		if span.Metrics.TokensEstimated {
			tokensEstimated = true
		}
	}

	metrics := model.TraceMetrics{
		TotalTimeMs:      maxFinishedAt - minStartedAt,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TokensEstimated:  tokensEstimated,
	}
	metrics.TotalCost, _ = totalCost.Float64()
	if firstTokenAt != nil {
		firstTokenMs := *firstTokenAt - minStartedAt
		metrics.FirstTokenMs = &firstTokenMs
	}
	return metrics
}

// firstSpanError picks the first non-nil span error in (started_at, id)
// order; spans arrive already sorted.
func firstSpanError(spans []model.Span) *model.SpanError {
	for _, span := range spans {
		if span.Error != nil {
			return span.Error
		}
	}
	return nil
}

// selectRootSpans picks the span the trace input derives from and the span
// the trace output derives from. Among root spans (no parent_id), input
// comes from the one that started first and output from the one that
// finished last: what kicked the trace off versus what concluded it. Traces
// with no root span fall back to the llm spans by the same ordering.
func selectRootSpans(spans []model.Span) (*model.Span, *model.Span) {
	var candidates []*model.Span
	for i := range spans {
		if spans[i].ParentId == nil {
			candidates = append(candidates, &spans[i])
		}
	}
	if len(candidates) == 0 {
		for i := range spans {
			if spans[i].Type == model.SpanTypeLLM {
				candidates = append(candidates, &spans[i])
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	inputSpan := candidates[0]
	outputSpan := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Timestamps.StartedAt < inputSpan.Timestamps.StartedAt {
			inputSpan = candidate
		}
		if candidate.Timestamps.FinishedAt > outputSpan.Timestamps.FinishedAt {
			outputSpan = candidate
		}
	}
	return inputSpan, outputSpan
}

func lastOutputText(outputs []model.SpanInputOutput) string {
	for i := len(outputs) - 1; i >= 0; i-- {
		if text := PlainText(&outputs[i]); text != "" {
			return text
		}
	}
	return ""
}
