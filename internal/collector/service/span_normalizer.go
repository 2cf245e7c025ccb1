package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/langwatch/collector/internal/collector/model"
)

// DecodeRawSpan unmarshals a single span payload, mapping JSON type
// mismatches to a validation failure naming the offending field instead of
// rejecting the request with an opaque decode error.
func DecodeRawSpan(data json.RawMessage) (model.RawSpan, error) {
	var rawSpan model.RawSpan
	if err := json.Unmarshal(data, &rawSpan); err != nil {
		spanId := probeSpanId(data)
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			return model.RawSpan{}, model.NewValidationError(
				model.ValidationKindBadType,
				spanId,
				typeErr.Field,
				"unexpected "+typeErr.Value,
			)
		}
		return model.RawSpan{}, model.NewValidationError(
			model.ValidationKindBadType,
			spanId,
			"",
			err.Error(),
		)
	}
	return rawSpan, nil
}

// NormalizeSpan validates one raw span and canonicizes it into the stored
// span document. It is a pure function of its inputs; project_id always
// comes from the authenticated project, never from the payload.
func NormalizeSpan(rawSpan model.RawSpan, projectId string) (model.Span, error) {
	if rawSpan.Id == "" {
		return model.Span{}, missingField(rawSpan.Id, "id")
	}
	if rawSpan.TraceId == "" {
		return model.Span{}, missingField(rawSpan.Id, "trace_id")
	}
	if rawSpan.Type == "" {
		return model.Span{}, missingField(rawSpan.Id, "type")
	}
	spanType := model.SpanType(rawSpan.Type)
	if !spanType.IsValid() {
		return model.Span{}, model.NewValidationError(
			model.ValidationKindBadEnum,
			rawSpan.Id,
			"type",
			"unknown span type "+rawSpan.Type,
		)
	}

	timestamps, err := normalizeTimestamps(rawSpan)
	if err != nil {
		return model.Span{}, err
	}

	vendor := rawSpan.Vendor
	llmModel := rawSpan.Model
	if spanType == model.SpanTypeLLM {
		if vendor == "" {
			return model.Span{}, missingField(rawSpan.Id, "vendor")
		}
		if llmModel == "" {
			return model.Span{}, missingField(rawSpan.Id, "model")
		}
	} else {
		// vendor/model only make sense on llm spans
		vendor = ""
		llmModel = ""
	}

	var input *model.SpanInputOutput
	if rawSpan.Input != nil {
		normalized, err := normalizeValue(*rawSpan.Input, rawSpan.Id, "input")
		if err != nil {
			return model.Span{}, err
		}
		input = &normalized
	}

	var outputs []model.SpanInputOutput
	for _, rawOutput := range rawSpan.Outputs {
		normalized, err := normalizeValue(rawOutput, rawSpan.Id, "outputs")
		if err != nil {
			return model.Span{}, err
		}
		outputs = append(outputs, normalized)
	}

	metrics, err := normalizeClientMetrics(rawSpan)
	if err != nil {
		return model.Span{}, err
	}

	return model.Span{
		Id:          rawSpan.Id,
		ProjectId:   projectId,
		Type:        spanType,
		Name:        rawSpan.Name,
		ParentId:    rawSpan.ParentId,
		TraceId:     rawSpan.TraceId,
		Input:       input,
		Outputs:     outputs,
		Error:       rawSpan.Error,
		Timestamps:  timestamps,
		Vendor:      vendor,
		Model:       llmModel,
		Params:      rawSpan.Params,
		Metrics:     metrics,
		RawResponse: rawSpan.RawResponse,
	}, nil
}

func normalizeTimestamps(rawSpan model.RawSpan) (model.SpanTimestamps, error) {
	if rawSpan.Timestamps == nil {
		return model.SpanTimestamps{}, missingField(rawSpan.Id, "timestamps")
	}
	if rawSpan.Timestamps.StartedAt == nil {
		return model.SpanTimestamps{}, missingField(rawSpan.Id, "timestamps.started_at")
	}
	if rawSpan.Timestamps.FinishedAt == nil {
		return model.SpanTimestamps{}, missingField(rawSpan.Id, "timestamps.finished_at")
	}
	startedAt := *rawSpan.Timestamps.StartedAt
	finishedAt := *rawSpan.Timestamps.FinishedAt
	if finishedAt < startedAt {
		return model.SpanTimestamps{}, model.NewValidationError(
			model.ValidationKindTimestampInversion,
			rawSpan.Id,
			"timestamps.finished_at",
			"finished_at is earlier than started_at",
		)
	}
	return model.SpanTimestamps{
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		FirstTokenAt: rawSpan.Timestamps.FirstTokenAt,
	}, nil
}

// normalizeValue canonicizes a tagged value. The stored value is always the
// canonical JSON serialization of the client value, so the structured form
// survives for replay while search and embeddings work on one text slot.
func normalizeValue(rawValue model.RawSpanValue, spanId string, field string) (model.SpanInputOutput, error) {
	valueType := model.SpanValueType(rawValue.Type)
	if rawValue.Type == "" {
		valueType = inferValueType(rawValue.Value)
	}

	switch valueType {
	case model.SpanValueTypeText:
		var text string
		if err := json.Unmarshal(rawValue.Value, &text); err != nil {
			return model.SpanInputOutput{}, model.NewValidationError(
				model.ValidationKindBadType,
				spanId,
				field+".value",
				"text value is not a string",
			)
		}
	case model.SpanValueTypeChatMessages:
		var messages []model.ChatMessage
		if err := json.Unmarshal(rawValue.Value, &messages); err != nil {
			return model.SpanInputOutput{}, model.NewValidationError(
				model.ValidationKindBadType,
				spanId,
				field+".value",
				"chat_messages value is not a message list",
			)
		}
	case model.SpanValueTypeRaw:
	default:
		return model.SpanInputOutput{}, model.NewValidationError(
			model.ValidationKindBadEnum,
			spanId,
			field+".type",
			"unknown value type "+rawValue.Type,
		)
	}

	return model.SpanInputOutput{
		Type:  valueType,
		Value: canonicalJSON(rawValue.Value),
	}, nil
}

func inferValueType(value json.RawMessage) model.SpanValueType {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return model.SpanValueTypeRaw
	}
	switch trimmed[0] {
	case '"':
		return model.SpanValueTypeText
	case '[':
		return model.SpanValueTypeChatMessages
	default:
		return model.SpanValueTypeRaw
	}
}

func normalizeClientMetrics(rawSpan model.RawSpan) (model.SpanMetrics, error) {
	if rawSpan.Metrics == nil {
		return model.SpanMetrics{}, nil
	}
	if rawSpan.Metrics.PromptTokens != nil && *rawSpan.Metrics.PromptTokens < 0 {
		return model.SpanMetrics{}, model.NewValidationError(
			model.ValidationKindBadType,
			rawSpan.Id,
			"metrics.prompt_tokens",
			"token counts must be non-negative",
		)
	}
	if rawSpan.Metrics.CompletionTokens != nil && *rawSpan.Metrics.CompletionTokens < 0 {
		return model.SpanMetrics{}, model.NewValidationError(
			model.ValidationKindBadType,
			rawSpan.Id,
			"metrics.completion_tokens",
			"token counts must be non-negative",
		)
	}
	return model.SpanMetrics{
		PromptTokens:     rawSpan.Metrics.PromptTokens,
		CompletionTokens: rawSpan.Metrics.CompletionTokens,
	}, nil
}

// PlainText recovers the human-readable text from a normalized value, used
// for trace input/output rollups, token estimation and embeddings.
func PlainText(value *model.SpanInputOutput) string {
	if value == nil {
		return ""
	}
	switch value.Type {
	case model.SpanValueTypeText:
		var text string
		if err := json.Unmarshal([]byte(value.Value), &text); err != nil {
			return value.Value
		}
		return text
	case model.SpanValueTypeChatMessages:
		var messages []model.ChatMessage
		if err := json.Unmarshal([]byte(value.Value), &messages); err != nil {
			return value.Value
		}
		var parts []string
		for _, message := range messages {
			if message.Content != "" {
				parts = append(parts, message.Content)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return value.Value
	}
}

func canonicalJSON(value json.RawMessage) string {
	if len(value) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return string(value)
	}
	return buf.String()
}

func missingField(spanId string, field string) *model.ValidationError {
	return model.NewValidationError(
		model.ValidationKindMissingField,
		spanId,
		field,
		"required field is missing",
	)
}

func probeSpanId(data json.RawMessage) string {
	var probe struct {
		Id string `json:"id"`
	}
	_ = json.Unmarshal(data, &probe)
	return probe.Id
}
