package browse

import (
	"context"
	"io"
	"sync"

	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/internal/logging"
	"mldash/ports"

	"github.com/sirupsen/logrus"
)

// Session is one user's browsing state over one active dataset at a time.
// It is safe for concurrent use; network calls never hold its lock.
type Session struct {
	loader *Loader
	opts   Options
	log    logrus.FieldLogger

	mu               sync.Mutex
	epoch            uint64
	datasetID        core.DatasetID
	searchTerm       string
	currentPage      int
	pageBeforeSearch int
	windowCount      int
	columns          *ColumnVisibility
}

// NewSession creates an empty session reading previews from source
func NewSession(source ports.DatasetPreviewPort, opts Options, log logrus.FieldLogger) *Session {
	opts = opts.withDefaults()
	s := &Session{
		loader: NewLoader(source, opts.WindowSize, log),
		opts:   opts,
		log:    logging.Component(log, "session"),
	}
	s.resetViewLocked()
	return s
}

func (s *Session) resetViewLocked() {
	s.searchTerm = ""
	s.currentPage = 1
	s.pageBeforeSearch = 1
	s.windowCount = s.opts.WindowSize
	s.columns = NewColumnVisibility(nil, s.opts.DefaultColumns)
}

func (s *Session) syncColumnsLocked() {
	cols := s.loader.State().Columns
	if !s.columns.SameColumns(cols) {
		s.columns = NewColumnVisibility(cols, s.opts.DefaultColumns)
	}
}

// current reports whether a completion issued at epoch for generation gen
// may still modify the session. Callers hold s.mu.
func (s *Session) current(epoch, gen uint64) bool {
	return epoch == s.epoch && gen == s.loader.Generation()
}

// SwitchDataset makes id the active dataset: all view state is cleared and
// the first window is loaded. An empty id resets the session. Selecting the
// dataset whose first load is still running returns ErrBusy and leaves the
// session untouched.
func (s *Session) SwitchDataset(ctx context.Context, id core.DatasetID) error {
	s.mu.Lock()
	if !id.IsEmpty() && id == s.datasetID && s.loader.State().Loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.epoch++
	epoch := s.epoch
	s.datasetID = id
	s.resetViewLocked()
	s.mu.Unlock()

	if id.IsEmpty() {
		s.loader.Reset()
		return nil
	}

	out, err := s.loader.LoadInitial(ctx, id)
	return s.complete(epoch, out, err, func() {
		s.syncColumnsLocked()
	})
}

// LoadMore shows the next window of the active dataset
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	epoch, id := s.epoch, s.datasetID
	s.mu.Unlock()

	if id.IsEmpty() {
		return nil
	}

	out, err := s.loader.LoadMore(ctx, id)
	return s.complete(epoch, out, err, func() {
		if out.Appended > 0 {
			s.windowCount += s.opts.WindowSize
		}
	})
}

// Refresh reloads the active dataset after it changed on the backend. The
// window shrinks back to one; the page resets when the row count changed.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	epoch, id := s.epoch, s.datasetID
	s.mu.Unlock()

	if id.IsEmpty() {
		return nil
	}

	before := s.loader.State().TotalRows
	out, err := s.loader.Refresh(ctx, id)
	return s.complete(epoch, out, err, func() {
		s.windowCount = s.opts.WindowSize
		if out.TotalRows != before {
			s.currentPage = 1
			s.pageBeforeSearch = 1
		}
		s.syncColumnsLocked()
	})
}

// complete applies a finished load unless the session moved on meanwhile
func (s *Session) complete(epoch uint64, out Outcome, err error, apply func()) error {
	if errors.Is(err, ErrBusy) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// the column set always follows whatever the loader buffer holds now
	defer s.syncColumnsLocked()

	if errors.Is(err, ErrStaleResponse) || !s.current(epoch, out.Generation) {
		return ErrStaleResponse
	}
	if err != nil {
		return err
	}
	apply()
	return nil
}

// Reset clears the session without issuing a request
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.datasetID = ""
	s.resetViewLocked()
	s.loader.Reset()
}

// SetSearchTerm updates the search term. A non-blank term switches to
// search mode on page 1; a blank one returns to the page held before the
// search started.
func (s *Session) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := ModeFor(s.searchTerm)
	now := ModeFor(term)
	switch {
	case now == ModeSearch && was == ModeIncremental:
		s.pageBeforeSearch = s.currentPage
		s.currentPage = 1
	case now == ModeSearch:
		s.currentPage = 1
	case was == ModeSearch:
		s.currentPage = s.pageBeforeSearch
	}
	s.searchTerm = term
}

// ClearSearch returns to incremental mode
func (s *Session) ClearSearch() {
	s.SetSearchTerm("")
}

// GoToPage moves to page n, clamped to the available pages, and returns the
// resulting page. Outside search mode there are no pages and it is a no-op.
func (s *Session) GoToPage(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goToPageLocked(n)
}

func (s *Session) goToPageLocked(n int) int {
	if ModeFor(s.searchTerm) != ModeSearch {
		return s.currentPage
	}
	filtered := FilterRows(s.loader.State().Rows, s.searchTerm)
	s.currentPage = ClampPage(n, TotalPages(len(filtered), s.opts.PageSize))
	return s.currentPage
}

func (s *Session) NextPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goToPageLocked(s.currentPage + 1)
}

func (s *Session) PrevPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goToPageLocked(s.currentPage - 1)
}

// ToggleColumn shows or hides one column and returns whether it is visible
func (s *Session) ToggleColumn(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columns.Toggle(name)
}

// ToggleAllColumns switches between all columns and the default subset
func (s *Session) ToggleAllColumns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns.ToggleAll()
}

// View derives the render-ready state
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildView(viewInput{
		loader:      s.loader.State(),
		columns:     s.columns,
		term:        s.searchTerm,
		page:        s.currentPage,
		windowCount: s.windowCount,
		opts:        s.opts,
	})
}

// FilteredRows returns the search-filtered buffer, or the whole buffer
// when no search is active.
func (s *Session) FilteredRows() []dataset.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterRows(s.loader.State().Rows, s.searchTerm)
}

func (s *Session) exportSelection() ([]string, []dataset.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columns.Visible(), FilterRows(s.loader.State().Rows, s.searchTerm)
}

// ExportCSV writes the filtered rows restricted to the visible columns
func (s *Session) ExportCSV(w io.Writer) error {
	cols, rows := s.exportSelection()
	if err := WriteCSV(w, cols, rows, s.opts.LegacyCSVQuoting); err != nil {
		s.log.WithError(err).Warn("csv export failed")
		return err
	}
	s.log.WithFields(logrus.Fields{"rows": len(rows), "columns": len(cols)}).Debug("csv exported")
	return nil
}

// ExportXLSX writes the same selection as ExportCSV as a workbook
func (s *Session) ExportXLSX(w io.Writer) error {
	cols, rows := s.exportSelection()
	if err := WriteXLSX(w, cols, rows); err != nil {
		s.log.WithError(err).Warn("xlsx export failed")
		return err
	}
	s.log.WithFields(logrus.Fields{"rows": len(rows), "columns": len(cols)}).Debug("xlsx exported")
	return nil
}

// Export writes the selection in format
func (s *Session) Export(w io.Writer, format ExportFormat) error {
	if format == FormatXLSX {
		return s.ExportXLSX(w)
	}
	return s.ExportCSV(w)
}

// ExportFilename names an export taken now
func (s *Session) ExportFilename(format ExportFormat) string {
	return ExportFilename(s.opts.Now(), format)
}

// DatasetID returns the active dataset, empty when none is selected
func (s *Session) DatasetID() core.DatasetID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasetID
}

// Loader exposes the underlying loader
func (s *Session) Loader() *Loader {
	return s.loader
}
