package helper

import (
	"encoding/json"
	"fmt"

	"github.com/langwatch/collector/internal/collector/model"
)

// ConvertToSpanDocuments maps raw search hits back into typed span documents.
func ConvertToSpanDocuments(res []map[string]interface{}) ([]model.Span, error) {
	spans := make([]model.Span, 0, len(res))
	for _, hit := range res {
		data, err := json.Marshal(hit)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal span hit: %w", err)
		}
		var span model.Span
		if err := json.Unmarshal(data, &span); err != nil {
			return nil, fmt.Errorf("failed to unmarshal span hit: %w", err)
		}
		if span.Id == "" {
			return nil, fmt.Errorf("span hit without an id: %v", hit)
		}
		spans = append(spans, span)
	}
	return spans, nil
}

// ConvertToTraceDocument maps a raw document back into a typed trace document.
func ConvertToTraceDocument(doc map[string]interface{}) (*model.Trace, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trace document: %w", err)
	}
	var trace model.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace document: %w", err)
	}
	return &trace, nil
}
