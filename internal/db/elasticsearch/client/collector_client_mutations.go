package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

func (c *CollectorClientImpl) PutDocument(
	ctx context.Context,
	index string,
	id string,
	document interface{},
) error {
	documentJSON, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("error marshaling document to put: %w", err)
	}

	res, err := c.es.Index(
		index,
		bytes.NewReader(documentJSON),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithRefresh(c.refreshRate),
	)
	if err != nil {
		return fmt.Errorf("failed to put document in Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("put document error: %s", res.String())
	}
	return nil
}

func (c *CollectorClientImpl) BulkPut(
	ctx context.Context,
	index string,
	ids []string,
	documents []interface{},
) error {
	var buf bytes.Buffer
	for i, document := range documents {
		meta := map[string]interface{}{
			"index": map[string]interface{}{
				"_id": ids[i],
			},
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("error marshaling meta to bulk put: %w", err)
		}
		buf.Write(metaJSON)
		buf.WriteByte('\n')

		documentJSON, err := json.Marshal(document)
		if err != nil {
			return fmt.Errorf("error marshaling document to bulk put: %w", err)
		}
		buf.Write(documentJSON)
		buf.WriteByte('\n')
	}

	res, err := c.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithIndex(index),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithRefresh(c.refreshRate),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk put in Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk put error: %s", res.String())
	}
	return nil
}

func (c *CollectorClientImpl) BulkUpdate(
	ctx context.Context,
	ids []string,
	fieldList []map[string]interface{},
	index string,
) error {
	var buf bytes.Buffer
	for i, fields := range fieldList {
		update := map[string]interface{}{
			"update": map[string]interface{}{
				"_id": ids[i],
			},
		}
		metaJSON, err := json.Marshal(update)
		if err != nil {
			return fmt.Errorf("error marshaling update: %w", err)
		}
		buf.Write(metaJSON)
		buf.WriteByte('\n')

		fieldJSON, err := json.Marshal(map[string]interface{}{"doc": fields})
		if err != nil {
			return fmt.Errorf("error marshaling field to update: %w", err)
		}
		buf.Write(fieldJSON)
		buf.WriteByte('\n')
	}

	res, err := c.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithIndex(index),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithRefresh(c.refreshRate),
	)
	if err != nil {
		return fmt.Errorf("failed to update in Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk update error: %s", res.String())
	}
	return nil
}
