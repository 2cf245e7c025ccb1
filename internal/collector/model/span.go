package model

import "encoding/json"

type SpanType string

const (
	SpanTypeSpan      SpanType = "span"
	SpanTypeLLM       SpanType = "llm"
	SpanTypeChain     SpanType = "chain"
	SpanTypeTool      SpanType = "tool"
	SpanTypeGuardrail SpanType = "guardrail"
)

func (st SpanType) IsValid() bool {
	switch st {
	case SpanTypeSpan, SpanTypeLLM, SpanTypeChain, SpanTypeTool, SpanTypeGuardrail:
		return true
	}
	return false
}

type SpanValueType string

const (
	SpanValueTypeText         SpanValueType = "text"
	SpanValueTypeChatMessages SpanValueType = "chat_messages"
	SpanValueTypeRaw          SpanValueType = "raw"
)

// RawSpan is the wire shape of a span as submitted by client SDKs,
// before validation and normalization.
type RawSpan struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name,omitempty"`
	Id          string                 `json:"id"`
	ParentId    *string                `json:"parent_id"`
	TraceId     string                 `json:"trace_id"`
	Input       *RawSpanValue          `json:"input,omitempty"`
	Outputs     []RawSpanValue         `json:"outputs,omitempty"`
	Error       *SpanError             `json:"error,omitempty"`
	Timestamps  *RawSpanTimestamps     `json:"timestamps"`
	Vendor      string                 `json:"vendor,omitempty"`
	Model       string                 `json:"model,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Metrics     *RawSpanMetrics        `json:"metrics,omitempty"`
	RawResponse json.RawMessage        `json:"raw_response,omitempty"`
}

// RawSpanValue is a tagged value as submitted by the client. The tag may be
// omitted, in which case it is inferred from the shape of the value.
type RawSpanValue struct {
	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value"`
}

type RawSpanTimestamps struct {
	StartedAt    *int64 `json:"started_at"`
	FinishedAt   *int64 `json:"finished_at"`
	FirstTokenAt *int64 `json:"first_token_at,omitempty"`
}

type RawSpanMetrics struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
}

// Span is the canonical, validated span document stored in the span index.
// Re-submitting the same id overwrites the stored document wholesale.
type Span struct {
	Id          string                 `json:"id"`
	ProjectId   string                 `json:"project_id"`
	Type        SpanType               `json:"type"`
	Name        string                 `json:"name,omitempty"`
	ParentId    *string                `json:"parent_id"`
	TraceId     string                 `json:"trace_id"`
	Input       *SpanInputOutput       `json:"input"`
	Outputs     []SpanInputOutput      `json:"outputs"`
	Error       *SpanError             `json:"error"`
	Timestamps  SpanTimestamps         `json:"timestamps"`
	Vendor      string                 `json:"vendor,omitempty"`
	Model       string                 `json:"model,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Metrics     SpanMetrics            `json:"metrics"`
	RawResponse json.RawMessage        `json:"raw_response,omitempty"`
}

// SpanInputOutput holds a normalized tagged value. Value is always the
// canonical JSON serialization of the client-supplied value, so a plain
// string arrives as `hello` and is stored as `"hello"`. The structured form
// can be recovered by unmarshalling Value.
type SpanInputOutput struct {
	Type  SpanValueType `json:"type"`
	Value string        `json:"value"`
}

// ChatMessage is the structured form carried by chat_messages values.
type ChatMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type SpanError struct {
	Message    string   `json:"message"`
	Stacktrace []string `json:"stacktrace,omitempty"`
}

// SpanTimestamps are epoch milliseconds. FinishedAt is always >= StartedAt.
type SpanTimestamps struct {
	StartedAt    int64  `json:"started_at"`
	FinishedAt   int64  `json:"finished_at"`
	FirstTokenAt *int64 `json:"first_token_at,omitempty"`
}

// SpanMetrics are derived server-side, never trusted from the client beyond
// explicit token counts.
type SpanMetrics struct {
	PromptTokens     *int     `json:"prompt_tokens,omitempty"`
	CompletionTokens *int     `json:"completion_tokens,omitempty"`
	TotalCost        *float64 `json:"total_cost,omitempty"`
	TokensEstimated  bool     `json:"tokens_estimated,omitempty"`
}
