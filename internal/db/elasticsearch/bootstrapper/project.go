package bootstrapper

const ProjectIndexName = "project_index"

var projectIndex = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 1,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type": "keyword",
			},
			"api_key": map[string]interface{}{
				"type": "keyword",
			},
			"name": map[string]interface{}{
				"type": "text",
			},
			"language": map[string]interface{}{
				"type": "keyword",
			},
			"framework": map[string]interface{}{
				"type": "keyword",
			},
		},
	},
}
