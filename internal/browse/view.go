package browse

import (
	"mldash/domain/core"
	"mldash/domain/dataset"
)

// DisplayState is what the table area should render
type DisplayState string

const (
	StateLoading    DisplayState = "loading"
	StateNoData     DisplayState = "no_data"
	StateLoadFailed DisplayState = "load_failed"
	StateNoMatches  DisplayState = "no_matches"
	StateReady      DisplayState = "ready"
)

// View is the derived, render-ready state of a session
type View struct {
	DatasetID       core.DatasetID    `json:"dataset_id"`
	Dataset         *dataset.Dataset  `json:"dataset,omitempty"`
	Mode            Mode              `json:"mode"`
	State           DisplayState      `json:"state"`
	Columns         []string          `json:"columns"`
	VisibleColumns  []string          `json:"visible_columns"`
	AllColumnsShown bool              `json:"all_columns_shown"`
	Rows            []dataset.Row     `json:"-"`
	Cells           [][]dataset.Value `json:"rows"`
	LoadedRows      int               `json:"loaded_rows"`
	PreviewRows     int               `json:"preview_rows"`
	FilteredCount   int               `json:"filtered_count"`
	WindowCount     int               `json:"window_count"`
	CurrentPage     int               `json:"current_page"`
	TotalPages      int               `json:"total_pages"`
	PageNumbers     []int             `json:"page_numbers"`
	HasMoreData     bool              `json:"has_more_data"`
	CanLoadMore     bool              `json:"can_load_more"`
	Loading         bool              `json:"loading"`
	LoadingMore     bool              `json:"loading_more"`
	SearchTerm      string            `json:"search_term"`
	Error           string            `json:"error,omitempty"`
}

// viewInput is everything a view is derived from
type viewInput struct {
	loader      LoaderState
	columns     *ColumnVisibility
	term        string
	page        int
	windowCount int
	opts        Options
}

func buildView(in viewInput) View {
	ls := in.loader
	mode := ModeFor(in.term)
	visible := in.columns.Visible()

	v := View{
		DatasetID:       ls.DatasetID,
		Dataset:         ls.Dataset,
		Mode:            mode,
		Columns:         in.columns.Columns(),
		VisibleColumns:  visible,
		AllColumnsShown: in.columns.Expanded(),
		LoadedRows:      len(ls.Rows),
		PreviewRows:     ls.TotalRows,
		WindowCount:     in.windowCount,
		HasMoreData:     ls.HasMore,
		Loading:         ls.Loading,
		LoadingMore:     ls.LoadingMore,
		SearchTerm:      in.term,
		PageNumbers:     []int{},
	}
	if ls.Err != nil {
		v.Error = ls.Err.Error()
	}

	filtered := FilterRows(ls.Rows, in.term)
	v.FilteredCount = len(filtered)

	if mode == ModeSearch {
		v.TotalPages = TotalPages(len(filtered), in.opts.PageSize)
		v.CurrentPage = ClampPage(in.page, v.TotalPages)
		if pages := PageNumbers(v.CurrentPage, v.TotalPages, in.opts.MaxPageLinks); pages != nil {
			v.PageNumbers = pages
		}
		v.Rows = PageSlice(filtered, v.CurrentPage, in.opts.PageSize)
	} else {
		v.CurrentPage = in.page
		v.Rows = ls.Rows[:min(in.windowCount, len(ls.Rows))]
		v.CanLoadMore = ls.HasMore && !ls.Loading && !ls.LoadingMore
	}

	switch {
	case ls.Loading:
		v.State = StateLoading
	case ls.Err != nil:
		v.State = StateLoadFailed
	case len(ls.Rows) == 0:
		v.State = StateNoData
	case mode == ModeSearch && len(filtered) == 0:
		v.State = StateNoMatches
	default:
		v.State = StateReady
	}

	v.Cells = make([][]dataset.Value, len(v.Rows))
	for i, row := range v.Rows {
		v.Cells[i] = row.Project(visible)
	}
	return v
}
