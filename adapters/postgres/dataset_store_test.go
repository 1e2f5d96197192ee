package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/internal/migration"
	"mldash/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(context.Background(), db))
	return db
}

func TestDatasetStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewDatasetStore(db)
	ctx := context.Background()

	id := core.NewID().String()
	rows := []dataset.Row{
		dataset.RowFromPairs("zeta", 1, "alpha", "a", "flag", true),
		dataset.RowFromPairs("zeta", 2, "alpha", nil, "flag", false),
	}
	err := store.Create(ctx, &ports.StoredDataset{
		Meta: dataset.Dataset{
			ID:          id,
			FileName:    "order.csv",
			Status:      dataset.StatusUploaded,
			Columns:     3,
			ColumnTypes: map[string]string{"zeta": "int64", "alpha": "object", "flag": "bool"},
			CreatedAt:   time.Now().UTC(),
		},
		Rows: rows,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Delete(ctx, id) })

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Meta.Rows)
	assert.Equal(t, "int64", got.Meta.ColumnTypes["zeta"])
	require.Len(t, got.Rows, 2)
	assert.Equal(t, []string{"zeta", "alpha", "flag"}, got.Rows[0].Keys())

	require.NoError(t, store.ReplaceRows(ctx, id, rows[:1]))
	got, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Meta.Rows)
	assert.NotNil(t, got.Meta.UpdatedAt)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}
