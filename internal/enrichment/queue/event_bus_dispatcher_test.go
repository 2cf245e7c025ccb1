package queue

import (
	"sync"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/langwatch/collector/internal/enrichment/model"
)

func TestEventBusDispatcher(t *testing.T) {
	t.Run("should deliver a dispatched job to the subscribed handler", func(t *testing.T) {
		eventBus := EventBus.New()
		dispatcher := NewEventBusDispatcher(eventBus, zaptest.NewLogger(t))

		var mutex sync.Mutex
		var received []model.EnrichmentJob
		err := dispatcher.Subscribe(func(job model.EnrichmentJob) error {
			mutex.Lock()
			defer mutex.Unlock()
			received = append(received, job)
			return nil
		})
		assert.Nil(t, err)

		job := model.EnrichmentJob{
			ProjectId:  "project-123",
			TraceId:    "trace-1",
			InputText:  "hello",
			OutputText: "world",
		}
		err = dispatcher.Dispatch(job)
		assert.Nil(t, err)
		eventBus.WaitAsync()

		mutex.Lock()
		defer mutex.Unlock()
		assert.Len(t, received, 1)
		assert.Equal(t, job, received[0])
	})

	t.Run("should swallow handler failures", func(t *testing.T) {
		eventBus := EventBus.New()
		dispatcher := NewEventBusDispatcher(eventBus, zaptest.NewLogger(t))

		err := dispatcher.Subscribe(func(job model.EnrichmentJob) error {
			return assert.AnError
		})
		assert.Nil(t, err)

		err = dispatcher.Dispatch(model.EnrichmentJob{TraceId: "trace-1"})
		assert.Nil(t, err)
		eventBus.WaitAsync()
	})
}
