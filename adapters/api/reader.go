package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/errors"

	"github.com/tidwall/gjson"
)

// GetDataset fetches a dataset and its whole preview. Row key order is
// taken from the payload as sent.
func (c *Client) GetDataset(ctx context.Context, id core.DatasetID) (*dataset.PreviewResponse, error) {
	if id.IsEmpty() {
		return nil, errors.InvalidInput("dataset id is required")
	}
	req, err := c.buildRequest(ctx, http.MethodGet, c.endpoint(pathUpload, id.String()), nil, "")
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parsePreview(body)
}

// ListDatasets returns every dataset the backend knows about
func (c *Client) ListDatasets(ctx context.Context) ([]dataset.Dataset, error) {
	req, err := c.buildRequest(ctx, http.MethodGet, c.endpoint(pathList), nil, "")
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp dataset.ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to parse dataset list: %w", err))
	}
	if resp.Datasets == nil {
		resp.Datasets = []dataset.Dataset{}
	}
	return resp.Datasets, nil
}

// parsePreview extracts the preview payload with gjson so each row keeps
// its column order.
func parsePreview(body []byte) (*dataset.PreviewResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("preview response is not valid JSON"))
	}
	root := gjson.ParseBytes(body)

	resp := &dataset.PreviewResponse{
		Success: root.Get("success").Bool(),
	}
	if meta := root.Get("dataset"); meta.IsObject() {
		if err := json.Unmarshal([]byte(meta.Raw), &resp.Dataset); err != nil {
			return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to parse dataset: %w", err))
		}
	}

	preview := root.Get("preview")
	if preview.Exists() && preview.Type != gjson.Null && !preview.IsArray() {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("preview is not an array"))
	}

	resp.Preview = make([]dataset.Row, 0, len(preview.Array()))
	var rowErr error
	preview.ForEach(func(_, value gjson.Result) bool {
		row, err := dataset.RowFromResult(value)
		if err != nil {
			rowErr = err
			return false
		}
		resp.Preview = append(resp.Preview, row)
		return true
	})
	if rowErr != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to parse preview row %d: %w", len(resp.Preview), rowErr))
	}
	return resp, nil
}
