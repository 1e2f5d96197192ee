package browse

import "slices"

// ColumnVisibility tracks which columns of a column set are rendered.
// Visible columns are always reported in column-set order.
type ColumnVisibility struct {
	columns      []string
	visible      map[string]bool
	defaultCount int
	expanded     bool
}

// NewColumnVisibility shows the first defaultCount columns
func NewColumnVisibility(columns []string, defaultCount int) *ColumnVisibility {
	c := &ColumnVisibility{
		columns:      append([]string(nil), columns...),
		defaultCount: defaultCount,
	}
	c.collapse()
	return c
}

func (c *ColumnVisibility) collapse() {
	c.visible = make(map[string]bool, len(c.columns))
	for _, col := range c.columns[:min(c.defaultCount, len(c.columns))] {
		c.visible[col] = true
	}
	c.expanded = false
}

// Columns returns the full column set
func (c *ColumnVisibility) Columns() []string {
	return append([]string(nil), c.columns...)
}

// Visible returns the visible columns in column-set order
func (c *ColumnVisibility) Visible() []string {
	out := make([]string, 0, len(c.visible))
	for _, col := range c.columns {
		if c.visible[col] {
			out = append(out, col)
		}
	}
	return out
}

// IsVisible reports whether column is rendered
func (c *ColumnVisibility) IsVisible(column string) bool {
	return c.visible[column]
}

// Toggle flips one column and returns whether it is now visible. Columns
// outside the set are ignored.
func (c *ColumnVisibility) Toggle(column string) bool {
	if !slices.Contains(c.columns, column) {
		return false
	}
	if c.visible[column] {
		delete(c.visible, column)
		return false
	}
	c.visible[column] = true
	return true
}

// ToggleAll switches between all columns and the default subset. Going
// back to the default drops any manual toggles.
func (c *ColumnVisibility) ToggleAll() {
	if c.expanded {
		c.collapse()
		return
	}
	for _, col := range c.columns {
		c.visible[col] = true
	}
	c.expanded = true
}

// Expanded reports whether ToggleAll last showed every column
func (c *ColumnVisibility) Expanded() bool {
	return c.expanded
}

// SameColumns reports whether columns equals the tracked column set
func (c *ColumnVisibility) SameColumns(columns []string) bool {
	return slices.Equal(c.columns, columns)
}
