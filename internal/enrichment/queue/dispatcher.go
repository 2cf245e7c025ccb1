package queue

import (
	"github.com/langwatch/collector/internal/enrichment/model"
)

// EnrichmentTopic is the channel enrichment jobs travel on, whichever
// backend carries them.
const EnrichmentTopic = "collector:enrichment_jobs"

// EnrichmentDispatcher decouples enrichment from the request/response
// lifecycle. Dispatch must not block on the enrichment work itself; the
// ingestion contract ends once the job has been handed over.
type EnrichmentDispatcher interface {
	Dispatch(job model.EnrichmentJob) error
}
