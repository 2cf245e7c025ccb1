package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/langwatch/collector/internal/db/elasticsearch/model"
)

func (c *CollectorClientImpl) GetDocument(
	ctx context.Context,
	index string,
	id string,
) (map[string]interface{}, error) {
	res, err := c.es.Get(
		index, id,
		c.es.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, ErrDocumentNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to get document: %s", res.String())
	}

	var getResponse model.GetResponse
	if err := json.NewDecoder(res.Body).Decode(&getResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if !getResponse.Found {
		return nil, ErrDocumentNotFound
	}
	return getResponse.Source, nil
}

func (c *CollectorClientImpl) Search(
	ctx context.Context,
	query string,
	indices []string,
	queryResultSize *int,
) ([]map[string]interface{}, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indices...),
		c.es.Search.WithBody(strings.NewReader(query)),
		c.es.Search.WithSize(getQuerySize(queryResultSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to execute query: %s", res.String())
	}

	var esResponse model.EsResponse
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	var results []map[string]interface{}
	for _, hit := range esResponse.Hits.HitArray {
		results = append(results, hit.Source)
		results[len(results)-1]["_id"] = hit.ID
	}

	return results, nil
}

func (c *CollectorClientImpl) Count(
	ctx context.Context,
	query string,
	indices []string,
) (int64, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(indices...),
		c.es.Count.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("failed to execute query: %s", res.String())
	}

	var countResponse model.CountResponse
	if err := json.NewDecoder(res.Body).Decode(&countResponse); err != nil {
		return 0, fmt.Errorf("failed to decode response body: %w", err)
	}

	return int64(countResponse.Count), nil
}

func getQuerySize(querySize *int) int {
	if querySize == nil {
		return SearchResultSize
	} else {
		return *querySize
	}
}
