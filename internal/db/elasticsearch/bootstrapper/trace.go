package bootstrapper

const TraceIndexName = "trace_index"

const embeddingDimensions = 1536

var embeddingField = map[string]interface{}{
	"type":       "dense_vector",
	"dims":       embeddingDimensions,
	"index":      true,
	"similarity": "cosine",
}

var traceIndex = map[string]interface{}{
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
			"thread_id": map[string]interface{}{
				"type": "keyword",
			},
			"user_id": map[string]interface{}{
				"type": "keyword",
			},
			"customer_id": map[string]interface{}{
				"type": "keyword",
			},
			"labels": map[string]interface{}{
				"type": "keyword",
			},
			"timestamps": map[string]interface{}{
				"properties": map[string]interface{}{
					"started_at":  map[string]interface{}{"type": "long"},
					"inserted_at": map[string]interface{}{"type": "long"},
				},
			},
			"input": map[string]interface{}{
				"properties": map[string]interface{}{
					"value":             map[string]interface{}{"type": "text"},
					"openai_embeddings": embeddingField,
				},
			},
			"output": map[string]interface{}{
				"properties": map[string]interface{}{
					"value":             map[string]interface{}{"type": "text"},
					"openai_embeddings": embeddingField,
				},
			},
			"search_embeddings": map[string]interface{}{
				"properties": map[string]interface{}{
					"openai_embeddings": embeddingField,
				},
			},
			"metrics": map[string]interface{}{
				"properties": map[string]interface{}{
					"first_token_ms":    map[string]interface{}{"type": "long"},
					"total_time_ms":     map[string]interface{}{"type": "long"},
					"prompt_tokens":     map[string]interface{}{"type": "integer"},
					"completion_tokens": map[string]interface{}{"type": "integer"},
					"total_cost":        map[string]interface{}{"type": "double"},
					"tokens_estimated":  map[string]interface{}{"type": "boolean"},
				},
			},
			"error": map[string]interface{}{
				"properties": map[string]interface{}{
					"message":    map[string]interface{}{"type": "text"},
					"stacktrace": map[string]interface{}{"type": "text"},
				},
			},
		},
	},
}
