package model

// Trace is the rollup document for all spans sharing a trace id. Every
// metric on it is recomputable purely from the constituent spans.
type Trace struct {
	Id               string            `json:"id"`
	ProjectId        string            `json:"project_id"`
	Timestamps       TraceTimestamps   `json:"timestamps"`
	Input            *TraceInputOutput `json:"input,omitempty"`
	Output           *TraceInputOutput `json:"output,omitempty"`
	Metrics          TraceMetrics      `json:"metrics"`
	Error            *SpanError        `json:"error"`
	ThreadId         string            `json:"thread_id,omitempty"`
	UserId           string            `json:"user_id,omitempty"`
	CustomerId       string            `json:"customer_id,omitempty"`
	Labels           []string          `json:"labels,omitempty"`
	SearchEmbeddings SearchEmbeddings  `json:"search_embeddings"`
}

type TraceTimestamps struct {
	StartedAt int64 `json:"started_at"`
	// InsertedAt is set once when the trace is first created and never
	// overwritten by subsequent upserts.
	InsertedAt int64 `json:"inserted_at"`
}

type TraceInputOutput struct {
	Value            string    `json:"value"`
	OpenAIEmbeddings []float32 `json:"openai_embeddings,omitempty"`
}

type TraceMetrics struct {
	FirstTokenMs     *int64  `json:"first_token_ms"`
	TotalTimeMs      int64   `json:"total_time_ms"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalCost        float64 `json:"total_cost"`
	TokensEstimated  bool    `json:"tokens_estimated"`
}

type SearchEmbeddings struct {
	OpenAIEmbeddings []float32 `json:"openai_embeddings,omitempty"`
}

// TraceRequest is one ingestion request: a batch of raw spans for a single
// trace plus optional passthrough metadata.
type TraceRequest struct {
	TraceId    string
	Spans      []RawSpan
	ThreadId   string
	UserId     string
	CustomerId string
	Labels     []string
}
