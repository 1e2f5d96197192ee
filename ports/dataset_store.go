package ports

import (
	"context"

	"mldash/domain/dataset"
)

// StoredDataset is a dataset as the development backend keeps it: the
// metadata plus every row of the file.
type StoredDataset struct {
	Meta dataset.Dataset
	Rows []dataset.Row
}

// DatasetStore defines storage operations for the development backend
type DatasetStore interface {
	Create(ctx context.Context, ds *StoredDataset) error
	Get(ctx context.Context, id string) (*StoredDataset, error)
	List(ctx context.Context) ([]dataset.Dataset, error)
	ReplaceRows(ctx context.Context, id string, rows []dataset.Row) error
	Delete(ctx context.Context, id string) error
}
