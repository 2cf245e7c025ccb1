package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress     string        `env:"COLLECTOR_SERVER_ADDRESS" envDefault:":8080"`
	GrpcAddress       string        `env:"COLLECTOR_GRPC_ADDRESS" envDefault:":4317"`
	ElasticsearchURL  string        `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	OpenAIApiKey      string        `env:"OPENAI_API_KEY"`
	RedisURL          string        `env:"REDIS_URL"`
	StoreTimeout      time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`
	EnrichmentTimeout time.Duration `env:"ENRICHMENT_TIMEOUT" envDefault:"30s"`
	ProjectCacheTTL   time.Duration `env:"PROJECT_CACHE_TTL" envDefault:"60s"`
}

// Load reads the configuration from the environment, with an optional .env
// file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return cfg, nil
}
