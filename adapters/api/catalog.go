package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/errors"
)

// DeleteDataset removes a dataset from the backend
func (c *Client) DeleteDataset(ctx context.Context, id core.DatasetID) error {
	if id.IsEmpty() {
		return errors.InvalidInput("dataset id is required")
	}
	req, err := c.buildRequest(ctx, http.MethodDelete, c.endpoint(pathUpload, id.String()), nil, "")
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// UploadFile sends a CSV or Excel file as the multipart field "file"
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (*dataset.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upload")
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, errors.Wrap(err, "failed to read upload")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to build upload")
	}

	req, err := c.buildRequest(ctx, http.MethodPost, c.endpoint(pathUpload), &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp dataset.UploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to parse upload response: %w", err))
	}
	return &resp, nil
}

// CleanDataset asks the backend to apply cleaning actions to a dataset
func (c *Client) CleanDataset(ctx context.Context, request dataset.CleaningRequest) (*dataset.CleaningResponse, error) {
	if request.FileID == "" {
		return nil, errors.InvalidInput("file_id is required")
	}
	if len(request.Actions) == 0 {
		return nil, errors.InvalidInput("at least one cleaning action is required")
	}
	for _, a := range request.Actions {
		if !a.IsKnown() {
			return nil, errors.InvalidInput(fmt.Sprintf("unknown cleaning action %q", a))
		}
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode cleaning request")
	}
	req, err := c.buildRequest(ctx, http.MethodPost, c.endpoint(pathClean), bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp dataset.CleaningResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to parse cleaning response: %w", err))
	}
	return &resp, nil
}
