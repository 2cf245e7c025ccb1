package handler

import "encoding/json"

// CollectorRequestDTO is the wire shape of one ingestion request. Spans are
// decoded individually so a malformed span can be reported by id and field.
type CollectorRequestDTO struct {
	TraceId    string            `json:"trace_id"`
	Spans      []json.RawMessage `json:"spans"`
	ThreadId   string            `json:"thread_id,omitempty"`
	UserId     string            `json:"user_id,omitempty"`
	CustomerId string            `json:"customer_id,omitempty"`
	Labels     []string          `json:"labels,omitempty"`
}

type CollectorResponseDTO struct {
	Status string `json:"status"`
}

type ErrorMessageDTO struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	SpanId  string `json:"span_id,omitempty"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponseDTO struct {
	Error ErrorMessageDTO `json:"error"`
}
