package bootstrapper

const SpanIndexName = "span_index"

var spanIndex = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 1,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type": "keyword",
			},
			"project_id": map[string]interface{}{
				"type": "keyword",
			},
			"trace_id": map[string]interface{}{
				"type": "keyword",
			},
			"parent_id": map[string]interface{}{
				"type": "keyword",
			},
			"type": map[string]interface{}{
				"type": "keyword",
			},
			"name": map[string]interface{}{
				"type": "text",
			},
			"vendor": map[string]interface{}{
				"type": "keyword",
			},
			"model": map[string]interface{}{
				"type": "keyword",
			},
			"input": map[string]interface{}{
				"properties": map[string]interface{}{
					"type":  map[string]interface{}{"type": "keyword"},
					"value": map[string]interface{}{"type": "text"},
				},
			},
			"outputs": map[string]interface{}{
				"properties": map[string]interface{}{
					"type":  map[string]interface{}{"type": "keyword"},
					"value": map[string]interface{}{"type": "text"},
				},
			},
			"error": map[string]interface{}{
				"properties": map[string]interface{}{
					"message":    map[string]interface{}{"type": "text"},
					"stacktrace": map[string]interface{}{"type": "text"},
				},
			},
			"timestamps": map[string]interface{}{
				"properties": map[string]interface{}{
					"started_at":     map[string]interface{}{"type": "long"},
					"finished_at":    map[string]interface{}{"type": "long"},
					"first_token_at": map[string]interface{}{"type": "long"},
				},
			},
			"metrics": map[string]interface{}{
				"properties": map[string]interface{}{
					"prompt_tokens":     map[string]interface{}{"type": "integer"},
					"completion_tokens": map[string]interface{}{"type": "integer"},
					"total_cost":        map[string]interface{}{"type": "double"},
					"tokens_estimated":  map[string]interface{}{"type": "boolean"},
				},
			},
			"params": map[string]interface{}{
				"type":    "object",
				"enabled": false,
			},
			"raw_response": map[string]interface{}{
				"type":    "object",
				"enabled": false,
			},
		},
	},
}
