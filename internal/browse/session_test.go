package browse

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSession(src *mockPreviewSource) *Session {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewSession(src, opts, logging.Discard())
}

// taggedPreview has 23 rows; the first 13 carry "Match" in their tag column
func taggedPreview() *dataset.PreviewResponse {
	resp := preview("ds", 23)
	for i := range resp.Preview {
		tag := "other"
		if i < 13 {
			tag = fmt.Sprintf("Match-%d", i+1)
		}
		resp.Preview[i].Append("tag", dataset.NewString(tag))
	}
	return resp
}

func TestSessionTwentyThreeRowScenario(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 23), nil)

	s := newTestSession(src)
	ctx := context.Background()
	require.NoError(t, s.SwitchDataset(ctx, "ds"))

	v := s.View()
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, ModeIncremental, v.Mode)
	assert.Len(t, v.Rows, 10)
	assert.True(t, v.HasMoreData)
	assert.True(t, v.CanLoadMore)

	require.NoError(t, s.LoadMore(ctx))
	v = s.View()
	assert.Len(t, v.Rows, 20)
	assert.True(t, v.HasMoreData)

	require.NoError(t, s.LoadMore(ctx))
	v = s.View()
	assert.Len(t, v.Rows, 23)
	assert.Equal(t, 30, v.WindowCount)
	assert.False(t, v.HasMoreData)
	assert.False(t, v.CanLoadMore)

	// nothing left: no request, no window growth
	require.NoError(t, s.LoadMore(ctx))
	assert.Equal(t, 30, s.View().WindowCount)
	src.AssertNumberOfCalls(t, "GetDataset", 3)
}

func TestSessionWindowGrowthInvariant(t *testing.T) {
	for _, total := range []int{0, 5, 10, 11, 37} {
		t.Run(fmt.Sprintf("total=%d", total), func(t *testing.T) {
			src := newMockSource()
			src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", total), nil)

			s := newTestSession(src)
			ctx := context.Background()
			require.NoError(t, s.SwitchDataset(ctx, "ds"))

			for n := 0; n <= 4; n++ {
				if n > 0 {
					require.NoError(t, s.LoadMore(ctx))
				}
				v := s.View()
				assert.Len(t, v.Rows, min(10+10*n, total), "n=%d", n)
				assert.Equal(t, 10+10*n < total, v.HasMoreData, "n=%d", n)
			}
		})
	}
}

func TestSessionSearchPagination(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(taggedPreview(), nil)

	s := newTestSession(src)
	ctx := context.Background()
	require.NoError(t, s.SwitchDataset(ctx, "ds"))
	require.NoError(t, s.LoadMore(ctx))
	require.NoError(t, s.LoadMore(ctx))
	require.Len(t, s.FilteredRows(), 23)

	s.SetSearchTerm("match")
	v := s.View()
	assert.Equal(t, ModeSearch, v.Mode)
	assert.Equal(t, 13, v.FilteredCount)
	assert.Equal(t, 2, v.TotalPages)
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, []int{1, 2}, v.PageNumbers)
	assert.False(t, v.CanLoadMore)
	assert.Equal(t, "ds-row-1", rowNames(v.Rows)[0])
	assert.Len(t, v.Rows, 10)

	assert.Equal(t, 2, s.NextPage())
	v = s.View()
	assert.Equal(t, []string{"ds-row-11", "ds-row-12", "ds-row-13"}, rowNames(v.Rows))

	assert.Equal(t, 2, s.NextPage(), "clamped at the last page")
	assert.Equal(t, 1, s.GoToPage(-4))
	assert.Equal(t, 2, s.GoToPage(99))
	assert.Equal(t, 1, s.PrevPage())
}

func TestSessionSearchIsPureFunctionOfTerm(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(taggedPreview(), nil)

	s := newTestSession(src)
	ctx := context.Background()
	require.NoError(t, s.SwitchDataset(ctx, "ds"))
	require.NoError(t, s.LoadMore(ctx))

	s.SetSearchTerm("lima")
	first := rowNames(s.FilteredRows())
	s.GoToPage(2)

	s.ClearSearch()
	assert.Equal(t, ModeIncremental, s.View().Mode)

	s.SetSearchTerm("lima")
	assert.Equal(t, first, rowNames(s.FilteredRows()))
	assert.Equal(t, 1, s.View().CurrentPage)
}

func TestSessionClearingSearchKeepsWindow(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 35), nil)

	s := newTestSession(src)
	ctx := context.Background()
	require.NoError(t, s.SwitchDataset(ctx, "ds"))
	require.NoError(t, s.LoadMore(ctx))

	s.SetSearchTerm("row")
	assert.Equal(t, 20, s.View().WindowCount)
	s.SetSearchTerm("")

	v := s.View()
	assert.Equal(t, ModeIncremental, v.Mode)
	assert.Equal(t, 20, v.WindowCount)
	assert.Len(t, v.Rows, 20)
	assert.Equal(t, 1, v.CurrentPage)
}

func TestSessionNoMatchesState(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 8), nil)

	s := newTestSession(src)
	require.NoError(t, s.SwitchDataset(context.Background(), "ds"))

	s.SetSearchTerm("nothing-like-this")
	v := s.View()
	assert.Equal(t, StateNoMatches, v.State)
	assert.Empty(t, v.Rows)
	assert.Equal(t, 0, v.TotalPages)
	assert.Equal(t, 1, v.CurrentPage)
	assert.Empty(t, v.PageNumbers)
}

func TestSessionDisplayStates(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("empty")).Return(preview("empty", 0), nil)
	src.On("GetDataset", mock.Anything, core.DatasetID("broken")).Return(nil, fmt.Errorf("timeout"))

	s := newTestSession(src)
	ctx := context.Background()
	assert.Equal(t, StateNoData, s.View().State)

	require.NoError(t, s.SwitchDataset(ctx, "empty"))
	v := s.View()
	assert.Equal(t, StateNoData, v.State)
	assert.Empty(t, v.Columns)

	err := s.SwitchDataset(ctx, "broken")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLoadFailed))
	v = s.View()
	assert.Equal(t, StateLoadFailed, v.State)
	assert.NotEmpty(t, v.Error)
	assert.False(t, v.HasMoreData)
	assert.Empty(t, v.Rows)
}

func TestSessionShowsLoadingWhileInFlight(t *testing.T) {
	src := newMockSource()
	release := make(chan time.Time)
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 3), nil).WaitUntil(release)

	s := newTestSession(src)
	done := make(chan error, 1)
	go func() { done <- s.SwitchDataset(context.Background(), "ds") }()
	<-src.entered

	v := s.View()
	assert.Equal(t, StateLoading, v.State)
	assert.True(t, v.Loading)
	assert.False(t, v.CanLoadMore)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, s.View().State)
}

func TestSessionColumns(t *testing.T) {
	rows := []dataset.Row{
		dataset.RowFromPairs("A", 1, "B", 2, "C", 3, "D", 4, "E", 5, "F", 6, "G", 7),
	}
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(&dataset.PreviewResponse{Success: true, Preview: rows}, nil)

	s := newTestSession(src)
	require.NoError(t, s.SwitchDataset(context.Background(), "ds"))

	v := s.View()
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, v.VisibleColumns)
	assert.Equal(t, [][]dataset.Value{{
		dataset.NewNumber(1), dataset.NewNumber(2), dataset.NewNumber(3), dataset.NewNumber(4), dataset.NewNumber(5),
	}}, v.Cells)

	s.ToggleColumn("C")
	s.ToggleAllColumns()
	v = s.View()
	assert.Len(t, v.VisibleColumns, 7)
	assert.True(t, v.AllColumnsShown)

	s.ToggleAllColumns()
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, s.View().VisibleColumns)
}

func TestSessionExportScope(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(taggedPreview(), nil)

	s := newTestSession(src)
	ctx := context.Background()
	require.NoError(t, s.SwitchDataset(ctx, "ds"))
	require.NoError(t, s.LoadMore(ctx))
	s.ToggleColumn("id")
	s.ToggleColumn("city")

	// no search: whole buffer, not just the window on screen
	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(&buf))
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "name,tag", lines[0])
	assert.Len(t, lines, 21)
	assert.Equal(t, `"ds-row-1","Match-1"`, lines[1])

	// search: filtered buffer, independent of the current page
	s.SetSearchTerm("match")
	s.GoToPage(2)
	buf.Reset()
	require.NoError(t, s.ExportCSV(&buf))
	lines = strings.Split(buf.String(), "\n")
	assert.Len(t, lines, 14)
	assert.Equal(t, `"ds-row-13","Match-13"`, lines[13])

	assert.Equal(t, "datos_filtrados_2024-05-01.csv", s.ExportFilename(FormatCSV))
}

func TestSessionExportFailureKeepsState(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 12), nil)

	s := newTestSession(src)
	require.NoError(t, s.SwitchDataset(context.Background(), "ds"))
	s.SetSearchTerm("row")
	before := s.View()

	err := s.ExportCSV(failingWriter{})
	assert.True(t, errors.HasCode(err, errors.CodeExportFailed))
	assert.Equal(t, before, s.View())
}

func TestSessionSwitchResetsViewState(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("a")).Return(preview("a", 40), nil)
	src.On("GetDataset", mock.Anything, core.DatasetID("b")).Return(preview("b", 40), nil)

	s := newTestSession(src)
	ctx := context.Background()
	require.NoError(t, s.SwitchDataset(ctx, "a"))
	require.NoError(t, s.LoadMore(ctx))
	s.SetSearchTerm("row")
	s.GoToPage(2)
	s.ToggleAllColumns()

	require.NoError(t, s.SwitchDataset(ctx, "b"))
	v := s.View()
	assert.Equal(t, core.DatasetID("b"), v.DatasetID)
	assert.Equal(t, ModeIncremental, v.Mode)
	assert.Equal(t, "", v.SearchTerm)
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, 10, v.WindowCount)
	assert.Len(t, v.Rows, 10)
	assert.False(t, v.AllColumnsShown)
	assert.Equal(t, "b-row-1", rowNames(v.Rows)[0])
}

func TestSessionRefresh(t *testing.T) {
	t.Run("row count changed", func(t *testing.T) {
		src := newMockSource()
		src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 40), nil).Times(2)
		src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 31), nil).Once()

		s := newTestSession(src)
		ctx := context.Background()
		require.NoError(t, s.SwitchDataset(ctx, "ds"))
		require.NoError(t, s.LoadMore(ctx))
		s.SetSearchTerm("row")
		s.GoToPage(2)

		require.NoError(t, s.Refresh(ctx))
		v := s.View()
		assert.Equal(t, 10, v.WindowCount)
		assert.Equal(t, 31, v.PreviewRows)
		assert.Equal(t, 1, v.CurrentPage)
		assert.Equal(t, "row", v.SearchTerm)
		src.AssertExpectations(t)
	})

	t.Run("row count unchanged", func(t *testing.T) {
		src := newMockSource()
		src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 40), nil)

		s := newTestSession(src)
		ctx := context.Background()
		require.NoError(t, s.SwitchDataset(ctx, "ds"))
		require.NoError(t, s.LoadMore(ctx))
		s.SetSearchTerm("row")
		s.GoToPage(2)

		require.NoError(t, s.Refresh(ctx))
		v := s.View()
		assert.Equal(t, 10, v.WindowCount)
		assert.Equal(t, 10, v.LoadedRows)
		// ten matches now fit on one page
		assert.Equal(t, 1, v.CurrentPage)
		assert.Equal(t, 1, v.TotalPages)
	})

	t.Run("without dataset", func(t *testing.T) {
		src := newMockSource()
		s := newTestSession(src)
		require.NoError(t, s.Refresh(context.Background()))
		src.AssertNotCalled(t, "GetDataset", mock.Anything, mock.Anything)
	})
}

func TestSessionStaleResponseAfterSwitch(t *testing.T) {
	src := newMockSource()
	release := make(chan time.Time)
	src.On("GetDataset", mock.Anything, core.DatasetID("old")).Return(preview("old", 50), nil).WaitUntil(release).Once()
	src.On("GetDataset", mock.Anything, core.DatasetID("new")).Return(preview("new", 12), nil)

	s := newTestSession(src)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.SwitchDataset(ctx, "old") }()
	require.Equal(t, core.DatasetID("old"), <-src.entered)

	require.NoError(t, s.SwitchDataset(ctx, "new"))
	before := s.View()

	close(release)
	assert.ErrorIs(t, <-done, ErrStaleResponse)

	after := s.View()
	assert.Equal(t, before, after)
	assert.Equal(t, core.DatasetID("new"), after.DatasetID)
	assert.Equal(t, 12, after.PreviewRows)
	assert.Equal(t, "new-row-1", rowNames(after.Rows)[0])
}

func TestSessionReselectWhileLoadingKeepsColumns(t *testing.T) {
	src := newMockSource()
	release := make(chan time.Time)
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 23), nil).WaitUntil(release).Once()

	s := newTestSession(src)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.SwitchDataset(ctx, "ds") }()
	require.Equal(t, core.DatasetID("ds"), <-src.entered)

	assert.ErrorIs(t, s.SwitchDataset(ctx, "ds"), ErrBusy)
	assert.Equal(t, StateLoading, s.View().State)

	close(release)
	require.NoError(t, <-done)

	v := s.View()
	assert.Equal(t, StateReady, v.State)
	assert.Len(t, v.Rows, 10)
	assert.Equal(t, []string{"id", "name", "city"}, v.Columns)
	assert.Equal(t, []string{"id", "name", "city"}, v.VisibleColumns)
	assert.Len(t, v.Cells[0], 3)
	src.AssertNumberOfCalls(t, "GetDataset", 1)
}

func TestSessionStaleLoadMoreAfterSwitch(t *testing.T) {
	src := newMockSource()
	release := make(chan time.Time)
	src.On("GetDataset", mock.Anything, core.DatasetID("old")).Return(preview("old", 50), nil).Once()
	src.On("GetDataset", mock.Anything, core.DatasetID("old")).Return(preview("old", 50), nil).WaitUntil(release).Once()
	src.On("GetDataset", mock.Anything, core.DatasetID("new")).Return(preview("new", 12), nil)

	s := newTestSession(src)
	ctx := context.Background()
	require.NoError(t, s.SwitchDataset(ctx, "old"))
	<-src.entered

	done := make(chan error, 1)
	go func() { done <- s.LoadMore(ctx) }()
	<-src.entered

	require.NoError(t, s.SwitchDataset(ctx, "new"))
	close(release)
	assert.ErrorIs(t, <-done, ErrStaleResponse)

	v := s.View()
	assert.Equal(t, 10, v.WindowCount)
	assert.Len(t, v.Rows, 10)
	assert.Equal(t, "new-row-1", rowNames(v.Rows)[0])
}

func TestSessionResetWithEmptyID(t *testing.T) {
	src := newMockSource()
	src.On("GetDataset", mock.Anything, core.DatasetID("ds")).Return(preview("ds", 12), nil).Once()

	s := newTestSession(src)
	ctx := context.Background()
	require.NoError(t, s.SwitchDataset(ctx, "ds"))
	require.NoError(t, s.SwitchDataset(ctx, ""))

	v := s.View()
	assert.True(t, v.DatasetID.IsEmpty())
	assert.Equal(t, StateNoData, v.State)
	assert.Empty(t, v.Columns)
	require.NoError(t, s.LoadMore(ctx))
	src.AssertExpectations(t)
}
