package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/langwatch/collector/internal/db/elasticsearch/bootstrapper"
	"github.com/langwatch/collector/internal/db/elasticsearch/client"
	"github.com/langwatch/collector/internal/project/model"
)

var ErrProjectNotFound = errors.New("no project matches the given api key")

type ProjectService interface {
	GetProjectByApiKey(ctx context.Context, apiKey string) (*model.Project, error)
}

// ProjectServiceImpl resolves API keys against the project index, caching
// hits so the per-request auth check does not round-trip to the store.
type ProjectServiceImpl struct {
	ac       client.CollectorClient
	cache    *ristretto.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewProjectServiceImpl(
	ac client.CollectorClient,
	cache *ristretto.Cache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ProjectServiceImpl {
	return &ProjectServiceImpl{
		ac:       ac,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (ps *ProjectServiceImpl) GetProjectByApiKey(ctx context.Context, apiKey string) (*model.Project, error) {
	if cached, found := ps.cache.Get(apiKey); found {
		if project, ok := cached.(*model.Project); ok {
			return project, nil
		}
	}

	query, err := buildProjectByApiKeyQuery(apiKey)
	if err != nil {
		return nil, err
	}
	querySize := 1
	docs, err := ps.ac.Search(ctx, query, []string{bootstrapper.ProjectIndexName}, &querySize)
	if err != nil {
		return nil, fmt.Errorf("failed to query project by api key: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrProjectNotFound
	}

	project, err := convertToProject(docs[0])
	if err != nil {
		return nil, err
	}

	if set := ps.cache.SetWithTTL(apiKey, project, 1, ps.cacheTTL); !set {
		ps.logger.Warn("Failed to cache project", zap.String("project_id", project.Id))
	}
	return project, nil
}

func buildProjectByApiKeyQuery(apiKey string) (string, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"api_key": apiKey,
			},
		},
	}
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("failed to marshal project by api key query: %w", err)
	}
	return string(queryJSON), nil
}

func convertToProject(doc map[string]interface{}) (*model.Project, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project document: %w", err)
	}
	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project document: %w", err)
	}
	if project.Id == "" {
		return nil, fmt.Errorf("project document without an id: %v", doc)
	}
	return &project, nil
}
