package queue

import (
	"encoding/json"
	"fmt"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/langwatch/collector/internal/enrichment/model"
)

// EventBusDispatcher runs enrichment in-process over an async event bus.
// It is the default when no durable queue is configured.
type EventBusDispatcher struct {
	eventBus EventBus.Bus
	logger   *zap.Logger
}

func NewEventBusDispatcher(eventBus EventBus.Bus, logger *zap.Logger) *EventBusDispatcher {
	return &EventBusDispatcher{
		eventBus: eventBus,
		logger:   logger,
	}
}

func (d *EventBusDispatcher) Dispatch(job model.EnrichmentJob) error {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment job: %w", err)
	}
	d.eventBus.Publish(EnrichmentTopic, string(jobJSON))
	return nil
}

// Subscribe registers a handler for dispatched jobs. Handler errors are
// logged and dropped: a failed enrichment never propagates anywhere.
func (d *EventBusDispatcher) Subscribe(handler func(job model.EnrichmentJob) error) error {
	err := d.eventBus.SubscribeAsync(
		EnrichmentTopic,
		func(arg string) {
			var job model.EnrichmentJob
			if err := json.Unmarshal([]byte(arg), &job); err != nil {
				d.logger.Error("Failed to unmarshal enrichment job",
					zap.Error(err),
				)
				return
			}
			if err := handler(job); err != nil {
				d.logger.Error("Failed to handle enrichment job",
					zap.String("trace_id", job.TraceId),
					zap.Error(err),
				)
			}
		},
		false,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", EnrichmentTopic, err)
	}
	return nil
}
