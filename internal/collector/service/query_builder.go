package service

import (
	"encoding/json"
	"fmt"
)

func BuildSpansByTraceIdQuery(projectId string, traceId string) (string, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{
						"term": map[string]interface{}{
							"trace_id": traceId,
						},
					},
					{
						"term": map[string]interface{}{
							"project_id": projectId,
						},
					},
				},
			},
		},
	}
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("failed to marshal spans by trace id query: %w", err)
	}
	return string(queryJSON), nil
}
