package browse

import (
	"mldash/domain/dataset"
)

// TotalPages returns ceil(n/pageSize), or 0 for an empty set
func TotalPages(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}

// ClampPage keeps page inside [1, totalPages]. With no pages it returns 1.
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// PageSlice returns the rows of a 1-based page
func PageSlice(rows []dataset.Row, page, pageSize int) []dataset.Row {
	if pageSize <= 0 || page < 1 {
		return nil
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []dataset.Row{}
	}
	end := min(start+pageSize, len(rows))
	return rows[start:end]
}

// PageNumbers returns the page-number buttons to offer: at most maxLinks
// pages around current, pinned to the first or last pages near the edges.
func PageNumbers(current, totalPages, maxLinks int) []int {
	if totalPages <= 0 || maxLinks <= 0 {
		return nil
	}

	var first int
	half := maxLinks / 2
	switch {
	case totalPages <= maxLinks:
		first = 1
		maxLinks = totalPages
	case current <= half+1:
		first = 1
	case current >= totalPages-half:
		first = totalPages - maxLinks + 1
	default:
		first = current - half
	}

	pages := make([]int, maxLinks)
	for i := range pages {
		pages[i] = first + i
	}
	return pages
}
