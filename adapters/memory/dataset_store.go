package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/ports"
)

// DatasetStore keeps datasets in process memory. Used by the development
// backend when no database is configured.
type DatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*ports.StoredDataset
}

var _ ports.DatasetStore = (*DatasetStore)(nil)

// NewDatasetStore creates an empty store
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{datasets: make(map[string]*ports.StoredDataset)}
}

func (s *DatasetStore) Create(ctx context.Context, ds *ports.StoredDataset) error {
	if ds == nil || ds.Meta.ID == "" {
		return errors.ValidationError("dataset id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.datasets[ds.Meta.ID]; exists {
		return errors.ValidationError("dataset " + ds.Meta.ID + " already exists")
	}
	stored := clone(ds)
	stored.Meta.Rows = len(stored.Rows)
	s.datasets[ds.Meta.ID] = stored
	return nil
}

func (s *DatasetStore) Get(ctx context.Context, id string) (*ports.StoredDataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	if !ok {
		return nil, errors.NotFound("dataset " + id)
	}
	return clone(ds), nil
}

// List returns dataset metadata, newest first
func (s *DatasetStore) List(ctx context.Context) ([]dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dataset.Dataset, 0, len(s.datasets))
	for _, ds := range s.datasets {
		out = append(out, ds.Meta)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *DatasetStore) ReplaceRows(ctx context.Context, id string, rows []dataset.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[id]
	if !ok {
		return errors.NotFound("dataset " + id)
	}
	now := time.Now().UTC()
	ds.Rows = append([]dataset.Row(nil), rows...)
	ds.Meta.Rows = len(rows)
	ds.Meta.UpdatedAt = &now
	return nil
}

func (s *DatasetStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[id]; !ok {
		return errors.NotFound("dataset " + id)
	}
	delete(s.datasets, id)
	return nil
}

// clone copies the row slice; rows themselves are never mutated in place
func clone(ds *ports.StoredDataset) *ports.StoredDataset {
	return &ports.StoredDataset{
		Meta: ds.Meta,
		Rows: append([]dataset.Row(nil), ds.Rows...),
	}
}
