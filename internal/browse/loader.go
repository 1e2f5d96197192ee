package browse

import (
	"context"
	"sync"
	"sync/atomic"

	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/internal/logging"
	"mldash/ports"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrBusy is returned when a request of the same kind is still in flight.
	// The trigger is ignored, not queued.
	ErrBusy = errors.New(errors.CodeBusy, "a load of this kind is already in flight")

	// ErrStaleResponse is returned when a response arrives for a dataset or
	// load that is no longer active. It is discarded.
	ErrStaleResponse = errors.New(errors.CodeStaleResponse, "response is for a dataset or load that is no longer active")
)

type opKind int

const (
	opInitial opKind = iota
	opMore
	opRefresh
	opKinds
)

func (k opKind) String() string {
	switch k {
	case opInitial:
		return "initial"
	case opMore:
		return "more"
	case opRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// flight scopes in-flight guards to one active dataset. Switching datasets
// starts a new flight so the new dataset is never blocked by the old one.
type flight struct {
	guards [opKinds]*semaphore.Weighted
}

func newFlight() *flight {
	f := &flight{}
	for i := range f.guards {
		f.guards[i] = semaphore.NewWeighted(1)
	}
	return f
}

// Outcome describes a load that was applied to the buffer
type Outcome struct {
	Generation uint64
	Appended   int
	TotalRows  int
}

// LoaderState is a point-in-time copy of the loader
type LoaderState struct {
	DatasetID   core.DatasetID
	Generation  uint64
	Dataset     *dataset.Dataset
	Rows        []dataset.Row
	Columns     []string
	TotalRows   int
	Offset      int
	HasMore     bool
	Loading     bool
	LoadingMore bool
	Err         error
}

// Loader fetches a dataset preview and exposes it in fixed-size windows.
type Loader struct {
	source   ports.DatasetPreviewPort
	window   int
	log      logrus.FieldLogger
	requests atomic.Int64

	mu          sync.Mutex
	datasetID   core.DatasetID
	generation  uint64
	flight      *flight
	meta        *dataset.Dataset
	rows        []dataset.Row
	columns     []string
	total       int
	offset      int
	hasMore     bool
	loading     bool
	loadingMore bool
	lastErr     error
}

// NewLoader creates a loader reading from source in windows of windowSize rows
func NewLoader(source ports.DatasetPreviewPort, windowSize int, log logrus.FieldLogger) *Loader {
	if windowSize <= 0 {
		windowSize = DefaultOptions().WindowSize
	}
	return &Loader{
		source:  source,
		window:  windowSize,
		log:     logging.Component(log, "loader"),
		flight:  newFlight(),
		columns: []string{},
	}
}

// LoadInitial fetches the preview of id and keeps its first window.
func (l *Loader) LoadInitial(ctx context.Context, id core.DatasetID) (Outcome, error) {
	return l.load(ctx, opInitial, id)
}

// Refresh discards everything loaded for id and loads its first window
// again. Used after the dataset was changed on the backend.
func (l *Loader) Refresh(ctx context.Context, id core.DatasetID) (Outcome, error) {
	return l.load(ctx, opRefresh, id)
}

func (l *Loader) load(ctx context.Context, kind opKind, id core.DatasetID) (Outcome, error) {
	if id.IsEmpty() {
		l.Reset()
		return Outcome{}, nil
	}

	l.mu.Lock()
	if id != l.datasetID {
		l.flight = newFlight()
	}
	fl := l.flight
	if !fl.guards[kind].TryAcquire(1) {
		l.mu.Unlock()
		l.log.WithFields(logrus.Fields{"dataset_id": id, "op": kind}).Debug("ignoring trigger while in flight")
		return Outcome{}, ErrBusy
	}
	l.generation++
	gen := l.generation
	l.datasetID = id
	l.clearLocked()
	l.loading = true
	l.mu.Unlock()
	defer fl.guards[kind].Release(1)

	log := l.log.WithFields(logrus.Fields{"dataset_id": id, "op": kind, "generation": gen})
	log.Debug("loading preview")

	resp, err := l.fetch(ctx, id)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		log.Info("discarding stale preview response")
		return Outcome{Generation: gen}, ErrStaleResponse
	}
	l.loading = false
	if err != nil {
		log.WithError(err).Warn("preview load failed")
		return Outcome{Generation: gen}, l.failLocked(err)
	}

	preview := resp.Preview
	n := min(l.window, len(preview))
	l.rows = append(make([]dataset.Row, 0, n), preview[:n]...)
	l.columns = dataset.ColumnsOf(preview)
	meta := resp.Dataset
	l.meta = &meta
	l.total = len(preview)
	l.offset = l.window
	l.hasMore = len(preview) > l.window

	log.WithFields(logrus.Fields{"rows": n, "preview_rows": l.total}).Info("preview loaded")
	return Outcome{Generation: gen, Appended: n, TotalRows: l.total}, nil
}

// LoadMore appends the next window of id. It re-requests the full preview
// and slices it at the current offset. It is a no-op when nothing is left.
func (l *Loader) LoadMore(ctx context.Context, id core.DatasetID) (Outcome, error) {
	l.mu.Lock()
	if id.IsEmpty() || id != l.datasetID {
		l.mu.Unlock()
		return Outcome{}, ErrStaleResponse
	}
	gen := l.generation
	if !l.hasMore || l.loading {
		l.mu.Unlock()
		return Outcome{Generation: gen}, nil
	}
	fl := l.flight
	if !fl.guards[opMore].TryAcquire(1) {
		l.mu.Unlock()
		return Outcome{Generation: gen}, ErrBusy
	}
	offset := l.offset
	l.loadingMore = true
	l.mu.Unlock()
	defer fl.guards[opMore].Release(1)

	log := l.log.WithFields(logrus.Fields{"dataset_id": id, "op": opMore, "generation": gen, "offset": offset})

	resp, err := l.fetch(ctx, id)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		log.Info("discarding stale preview response")
		return Outcome{Generation: gen}, ErrStaleResponse
	}
	l.loadingMore = false
	if err != nil {
		log.WithError(err).Warn("loading more rows failed")
		return Outcome{Generation: gen}, l.failLocked(err)
	}

	preview := resp.Preview
	start := min(offset, len(preview))
	end := min(offset+l.window, len(preview))
	batch := preview[start:end]
	l.rows = append(l.rows, batch...)
	l.offset = offset + l.window
	l.total = len(preview)
	l.hasMore = l.offset < len(preview)
	meta := resp.Dataset
	l.meta = &meta

	log.WithFields(logrus.Fields{"appended": len(batch), "rows": len(l.rows), "has_more": l.hasMore}).Debug("window appended")
	return Outcome{Generation: gen, Appended: len(batch), TotalRows: l.total}, nil
}

// Reset forgets the active dataset without issuing a request. Responses
// still in flight become stale.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.datasetID = ""
	l.flight = newFlight()
	l.clearLocked()
	l.loading = false
}

// State returns a snapshot of the loader
func (l *Loader) State() LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoaderState{
		DatasetID:   l.datasetID,
		Generation:  l.generation,
		Dataset:     l.meta,
		Rows:        l.rows[:len(l.rows):len(l.rows)],
		Columns:     append([]string(nil), l.columns...),
		TotalRows:   l.total,
		Offset:      l.offset,
		HasMore:     l.hasMore,
		Loading:     l.loading,
		LoadingMore: l.loadingMore,
		Err:         l.lastErr,
	}
}

// Generation returns the current load generation. It changes on every
// initial load, refresh and reset.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Requests returns how many preview requests this loader has issued
func (l *Loader) Requests() int64 {
	return l.requests.Load()
}

func (l *Loader) fetch(ctx context.Context, id core.DatasetID) (*dataset.PreviewResponse, error) {
	l.requests.Add(1)
	resp, err := l.source.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp == nil || !resp.Success {
		return nil, errors.New(errors.CodeExternalService, "backend reported an unsuccessful preview")
	}
	return resp, nil
}

func (l *Loader) clearLocked() {
	l.meta = nil
	l.rows = nil
	l.columns = []string{}
	l.total = 0
	l.offset = 0
	l.hasMore = false
	l.loadingMore = false
	l.lastErr = nil
}

func (l *Loader) failLocked(cause error) error {
	id := l.datasetID
	l.clearLocked()
	l.loading = false
	l.lastErr = errors.LoadFailed(id.String(), cause)
	return l.lastErr
}
