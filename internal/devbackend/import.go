package devbackend

import (
	"context"
	"io"
	"time"

	"mldash/adapters/excel"
	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/ports"

	"github.com/sirupsen/logrus"
)

func readTable(filename string, content io.Reader, log logrus.FieldLogger) (*excel.Table, error) {
	reader := excel.NewDataReader(filename, log)
	if !reader.Supported() {
		return nil, errors.InvalidInput("Unsupported file format. Upload a CSV or Excel file.")
	}
	return reader.Read(content)
}

// ImportFile parses a CSV or Excel file and stores it as a new dataset
func ImportFile(ctx context.Context, store ports.DatasetStore, filename string, content io.Reader, now time.Time, log logrus.FieldLogger) (*ports.StoredDataset, error) {
	table, err := readTable(filename, content, log)
	if err != nil {
		return nil, err
	}

	id := core.NewID().String()
	stored := &ports.StoredDataset{
		Meta: dataset.Dataset{
			ID:            id,
			FileName:      filename,
			FilePath:      "memory://" + id,
			Status:        dataset.StatusUploaded,
			Rows:          len(table.Rows),
			Columns:       len(table.Headers),
			ColumnTypes:   table.ColumnTypes,
			MissingValues: table.MissingValues,
			CreatedAt:     now.UTC(),
		},
		Rows: table.Rows,
	}
	if err := store.Create(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// ReplaceFile swaps the rows of dataset id for the rows of a new file.
// It returns the new row count.
func ReplaceFile(ctx context.Context, store ports.DatasetStore, id, filename string, content io.Reader, log logrus.FieldLogger) (int, error) {
	table, err := readTable(filename, content, log)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceRows(ctx, id, table.Rows); err != nil {
		return 0, err
	}
	return len(table.Rows), nil
}
