package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/langwatch/collector/internal/collector/model"
)

func TestCalculateSpanMetrics(t *testing.T) {
	calculator := NewMetricCalculator(DefaultPricingTable())

	t.Run("should price exact client-reported token counts", func(t *testing.T) {
		span := normalizedLLMSpan(t)
		promptTokens := 1
		completionTokens := 1
		span.Metrics = model.SpanMetrics{
			PromptTokens:     &promptTokens,
			CompletionTokens: &completionTokens,
		}
		calculator.CalculateSpanMetrics(&span)
		assert.False(t, span.Metrics.TokensEstimated)
		assert.Equal(t, 1, *span.Metrics.PromptTokens)
		assert.Equal(t, 1, *span.Metrics.CompletionTokens)
		assert.Equal(t, 0.0000035, *span.Metrics.TotalCost)
	})

	t.Run("should estimate tokens from text length when counts are absent", func(t *testing.T) {
		span := normalizedLLMSpan(t)
		calculator.CalculateSpanMetrics(&span)
		assert.True(t, span.Metrics.TokensEstimated)
		// "hello" and "world" are five characters each, one token apiece
		assert.Equal(t, 1, *span.Metrics.PromptTokens)
		assert.Equal(t, 1, *span.Metrics.CompletionTokens)
		assert.Equal(t, 0.0000035, *span.Metrics.TotalCost)
	})

	t.Run("should estimate only the missing side", func(t *testing.T) {
		span := normalizedLLMSpan(t)
		promptTokens := 8
		span.Metrics = model.SpanMetrics{PromptTokens: &promptTokens}
		calculator.CalculateSpanMetrics(&span)
		assert.True(t, span.Metrics.TokensEstimated)
		assert.Equal(t, 8, *span.Metrics.PromptTokens)
		assert.Equal(t, 1, *span.Metrics.CompletionTokens)
	})

	t.Run("should degrade to zero cost on an unknown model", func(t *testing.T) {
		span := normalizedLLMSpan(t)
		span.Model = "some-unlisted-model"
		promptTokens := 10
		completionTokens := 10
		span.Metrics = model.SpanMetrics{
			PromptTokens:     &promptTokens,
			CompletionTokens: &completionTokens,
		}
		calculator.CalculateSpanMetrics(&span)
		assert.True(t, span.Metrics.TokensEstimated)
		assert.Equal(t, 0.0, *span.Metrics.TotalCost)
	})

	t.Run("should zero out metrics on non-llm spans", func(t *testing.T) {
		span := normalizedLLMSpan(t)
		span.Type = model.SpanTypeChain
		span.Vendor = ""
		span.Model = ""
		calculator.CalculateSpanMetrics(&span)
		assert.Nil(t, span.Metrics.PromptTokens)
		assert.Nil(t, span.Metrics.TotalCost)
		assert.False(t, span.Metrics.TokensEstimated)
	})
}

func normalizedLLMSpan(t *testing.T) model.Span {
	t.Helper()
	span, err := NormalizeSpan(validRawSpan(), "project-123")
	assert.Nil(t, err)
	return span
}
