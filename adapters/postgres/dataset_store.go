package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/ports"

	"github.com/jmoiron/sqlx"
)

// datasetStore implements ports.DatasetStore on PostgreSQL
type datasetStore struct {
	db *sqlx.DB
}

// NewDatasetStore creates a new dataset store. The schema comes from
// internal/migration.
func NewDatasetStore(db *sqlx.DB) ports.DatasetStore {
	return &datasetStore{db: db}
}

type datasetRecord struct {
	dataset.Dataset
	ColumnTypesJSON   []byte `db:"column_types"`
	MissingValuesJSON []byte `db:"missing_values"`
}

func (r *datasetRecord) decode() (dataset.Dataset, error) {
	ds := r.Dataset
	if len(r.ColumnTypesJSON) > 0 {
		if err := json.Unmarshal(r.ColumnTypesJSON, &ds.ColumnTypes); err != nil {
			return ds, fmt.Errorf("failed to unmarshal column types: %w", err)
		}
	}
	if len(r.MissingValuesJSON) > 0 {
		if err := json.Unmarshal(r.MissingValuesJSON, &ds.MissingValues); err != nil {
			return ds, fmt.Errorf("failed to unmarshal missing values: %w", err)
		}
	}
	return ds, nil
}

const selectDataset = `SELECT
	id, file_name, file_path, status, row_count, column_count,
	column_types, missing_values, created_at, updated_at
FROM datasets`

// Create inserts a dataset and its rows in one transaction
func (s *datasetStore) Create(ctx context.Context, ds *ports.StoredDataset) error {
	types, err := json.Marshal(ds.Meta.ColumnTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal column types: %w", err)
	}
	missing, err := json.Marshal(ds.Meta.MissingValues)
	if err != nil {
		return fmt.Errorf("failed to marshal missing values: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO datasets (
		id, file_name, file_path, status, row_count, column_count,
		column_types, missing_values, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ds.Meta.ID, ds.Meta.FileName, ds.Meta.FilePath, ds.Meta.Status, len(ds.Rows), ds.Meta.Columns,
		types, missing, ds.Meta.CreatedAt, ds.Meta.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to create dataset", err)
	}

	if err := insertRows(ctx, tx, ds.Meta.ID, ds.Rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit dataset", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sqlx.Tx, id string, rows []dataset.Row) error {
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO dataset_rows (dataset_id, ordinal, row_data) VALUES ($1, $2, $3)`)
	if err != nil {
		return errors.DatabaseError("failed to prepare row insert", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, string(data)); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to insert row %d", i), err)
		}
	}
	return nil
}

// Get retrieves a dataset with all its rows in insertion order
func (s *datasetStore) Get(ctx context.Context, id string) (*ports.StoredDataset, error) {
	var rec datasetRecord
	err := s.db.GetContext(ctx, &rec, selectDataset+` WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("dataset " + id)
		}
		return nil, errors.DatabaseError("failed to get dataset", err)
	}
	meta, err := rec.decode()
	if err != nil {
		return nil, err
	}

	var raw []string
	err = s.db.SelectContext(ctx, &raw, `SELECT row_data FROM dataset_rows WHERE dataset_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, errors.DatabaseError("failed to load dataset rows", err)
	}

	rows := make([]dataset.Row, len(raw))
	for i, data := range raw {
		if err := rows[i].UnmarshalJSON([]byte(data)); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row %d: %w", i, err)
		}
	}
	return &ports.StoredDataset{Meta: meta, Rows: rows}, nil
}

// List returns dataset metadata, newest first
func (s *datasetStore) List(ctx context.Context) ([]dataset.Dataset, error) {
	var recs []datasetRecord
	if err := s.db.SelectContext(ctx, &recs, selectDataset+` ORDER BY created_at DESC`); err != nil {
		return nil, errors.DatabaseError("failed to list datasets", err)
	}

	out := make([]dataset.Dataset, 0, len(recs))
	for i := range recs {
		ds, err := recs[i].decode()
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// ReplaceRows swaps the rows of a dataset and updates its row count
func (s *datasetStore) ReplaceRows(ctx context.Context, id string, rows []dataset.Row) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE datasets SET row_count = $2, updated_at = $3 WHERE id = $1`, id, len(rows), time.Now().UTC())
	if err != nil {
		return errors.DatabaseError("failed to update dataset", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("dataset " + id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset_id = $1`, id); err != nil {
		return errors.DatabaseError("failed to delete dataset rows", err)
	}
	if err := insertRows(ctx, tx, id, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit rows", err)
	}
	return nil
}

// Delete removes a dataset; its rows go with it
func (s *datasetStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return errors.DatabaseError("failed to delete dataset", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("dataset " + id)
	}
	return nil
}
