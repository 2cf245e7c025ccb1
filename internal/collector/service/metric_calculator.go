package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/langwatch/collector/internal/collector/model"
)

// charactersPerToken is the fixed estimation heuristic used whenever the
// client did not report exact token counts.
const charactersPerToken = 4

type MetricCalculator struct {
	pricing PricingTable
}

func NewMetricCalculator(pricing PricingTable) *MetricCalculator {
	return &MetricCalculator{pricing: pricing}
}

// CalculateSpanMetrics fills in the derived metrics of a normalized span.
// Only llm spans get cost attribution; a pricing-table miss degrades to zero
// cost with the estimated flag raised, it never blocks ingestion.
func (mc *MetricCalculator) CalculateSpanMetrics(span *model.Span) {
	if span.Type != model.SpanTypeLLM {
		span.Metrics = model.SpanMetrics{}
		return
	}

	estimated := false
	promptTokens := 0
	if span.Metrics.PromptTokens != nil {
		promptTokens = *span.Metrics.PromptTokens
	} else {
		promptTokens = estimateTokens(PlainText(span.Input))
		estimated = true
	}
	completionTokens := 0
	if span.Metrics.CompletionTokens != nil {
		completionTokens = *span.Metrics.CompletionTokens
	} else {
		completionTokens = estimateTokens(outputsText(span.Outputs))
		estimated = true
	}

	totalCost := 0.0
	modelPrice, known := mc.pricing.Lookup(span.Vendor, span.Model)
	if known {
		cost := modelPrice.PromptTokenPrice.Mul(decimal.NewFromInt(int64(promptTokens))).
			Add(modelPrice.CompletionTokenPrice.Mul(decimal.NewFromInt(int64(completionTokens))))
		totalCost, _ = cost.Float64()
	} else {
		estimated = true
	}

	span.Metrics = model.SpanMetrics{
		PromptTokens:     &promptTokens,
		CompletionTokens: &completionTokens,
		TotalCost:        &totalCost,
		TokensEstimated:  estimated,
	}
}

func estimateTokens(text string) int {
	return len(text) / charactersPerToken
}

func outputsText(outputs []model.SpanInputOutput) string {
	var parts []string
	for i := range outputs {
		if text := PlainText(&outputs[i]); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
