package model

// EnrichmentJob is the unit of asynchronous post-ingestion work: computing
// search embeddings and scrubbing PII for one trace. Jobs may be retried or
// arrive out of order relative to the ingestion write.
type EnrichmentJob struct {
	ProjectId  string `json:"project_id"`
	TraceId    string `json:"trace_id"`
	InputText  string `json:"input_text,omitempty"`
	OutputText string `json:"output_text,omitempty"`
}
