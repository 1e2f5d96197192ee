package browse

import (
	"strings"

	"mldash/domain/dataset"
)

// Mode is the display mode derived from the search term
type Mode int

const (
	// ModeIncremental shows the loaded window without filtering
	ModeIncremental Mode = iota
	// ModeSearch filters the whole buffer and pages the matches
	ModeSearch
)

func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "incremental"
}

// MarshalText lets Mode encode as its name in JSON
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ModeFor returns ModeSearch when term has any non-whitespace content
func ModeFor(term string) Mode {
	if strings.TrimSpace(term) == "" {
		return ModeIncremental
	}
	return ModeSearch
}

// MatchesRow reports whether any value of row contains term, ignoring case.
// The term is used as typed; only the mode decision trims it.
func MatchesRow(row dataset.Row, term string) bool {
	needle := strings.ToLower(term)
	for _, cell := range row.Cells() {
		if strings.Contains(strings.ToLower(cell.Value.String()), needle) {
			return true
		}
	}
	return false
}

// FilterRows returns the rows matching term in buffer order. In
// incremental mode every row matches.
func FilterRows(rows []dataset.Row, term string) []dataset.Row {
	if ModeFor(term) == ModeIncremental {
		return rows
	}
	out := make([]dataset.Row, 0, len(rows))
	for _, row := range rows {
		if MatchesRow(row, term) {
			out = append(out, row)
		}
	}
	return out
}
