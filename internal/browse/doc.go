// Package browse implements incremental browsing of a dataset preview.
//
// The backend only offers a "whole preview" endpoint, so windowing is
// simulated: every load re-requests the complete preview and the Loader
// slices the next window out of it. A Session layers the view state on top
// of a Loader: search term, page, visible columns and the number of rows
// shown in incremental mode.
//
// Without a search term the session is in incremental mode and shows the
// first displayedWindowCount rows of the buffer, growing one window per
// successful LoadMore. With a non-empty term it is in search mode and
// filters the whole buffer, then pages the matches.
package browse
