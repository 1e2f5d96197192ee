package ports

import (
	"context"
	"io"

	"mldash/domain/core"
	"mldash/domain/dataset"
)

// DatasetPreviewPort retrieves the full preview of one dataset. Every call
// transfers the complete preview; callers do their own windowing.
type DatasetPreviewPort interface {
	GetDataset(ctx context.Context, id core.DatasetID) (*dataset.PreviewResponse, error)
}

// DatasetCatalogPort lists and manages datasets on the backend
type DatasetCatalogPort interface {
	ListDatasets(ctx context.Context) ([]dataset.Dataset, error)
	DeleteDataset(ctx context.Context, id core.DatasetID) error
	UploadFile(ctx context.Context, filename string, content io.Reader) (*dataset.UploadResponse, error)
}

// CleaningPort asks the backend to run cleaning actions on a dataset.
// Callers are responsible for refreshing any session browsing that dataset.
type CleaningPort interface {
	CleanDataset(ctx context.Context, req dataset.CleaningRequest) (*dataset.CleaningResponse, error)
}

// BackendPort is everything the dashboard needs from the ML backend
type BackendPort interface {
	DatasetPreviewPort
	DatasetCatalogPort
	CleaningPort
}
