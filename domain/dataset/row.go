package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Cell is one named value of a row.
type Cell struct {
	Name  string
	Value Value
}

// Row is an ordered list of named cells. Column order is the key order the
// row was received or read in, so it survives JSON round trips.
type Row struct {
	cells []Cell
}

// NewRow builds a row from cells in order.
func NewRow(cells ...Cell) Row {
	return Row{cells: cells}
}

// RowFromPairs builds a row from alternating name/value arguments.
// It panics on an odd count or a non-string name; meant for fixtures.
func RowFromPairs(pairs ...interface{}) Row {
	if len(pairs)%2 != 0 {
		panic("dataset: RowFromPairs needs name/value pairs")
	}
	var r Row
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("dataset: column name at %d is %T", i, pairs[i]))
		}
		r.Append(name, FromInterface(pairs[i+1]))
	}
	return r
}

// Append adds a cell, replacing the value in place when name already exists.
func (r *Row) Append(name string, v Value) {
	for i := range r.cells {
		if r.cells[i].Name == name {
			r.cells[i].Value = v
			return
		}
	}
	r.cells = append(r.cells, Cell{Name: name, Value: v})
}

// Len returns the number of cells.
func (r Row) Len() int { return len(r.cells) }

// Cells returns the cells in order. The slice must not be modified.
func (r Row) Cells() []Cell { return r.cells }

// Keys returns the column names in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r.cells))
	for i, c := range r.cells {
		keys[i] = c.Name
	}
	return keys
}

// Get returns the value for name and whether the row has that column.
func (r Row) Get(name string) (Value, bool) {
	for _, c := range r.cells {
		if c.Name == name {
			return c.Value, true
		}
	}
	return Value{}, false
}

// Project returns the values for columns, in that order. Missing columns
// come back as null.
func (r Row) Project(columns []string) []Value {
	out := make([]Value, len(columns))
	for i, col := range columns {
		if v, ok := r.Get(col); ok {
			out[i] = v
		} else {
			out[i] = NullValue()
		}
	}
	return out
}

// MarshalJSON writes the row as a JSON object keeping cell order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := c.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid row JSON")
	}
	row, err := RowFromResult(gjson.ParseBytes(data))
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// RowFromResult converts a parsed JSON object into a Row in document order.
// Nested objects and arrays are kept as strings holding their raw JSON.
func RowFromResult(res gjson.Result) (Row, error) {
	if !res.IsObject() {
		return Row{}, fmt.Errorf("row must be a JSON object, got %s", res.Type)
	}
	var r Row
	res.ForEach(func(key, value gjson.Result) bool {
		r.Append(key.String(), ValueFromResult(value))
		return true
	})
	return r, nil
}

// ValueFromResult converts a parsed JSON scalar into a Value.
func ValueFromResult(res gjson.Result) Value {
	switch res.Type {
	case gjson.Null:
		return NullValue()
	case gjson.False:
		return NewBool(false)
	case gjson.True:
		return NewBool(true)
	case gjson.Number:
		return NewNumber(res.Float())
	case gjson.String:
		return NewString(res.String())
	default:
		return NewString(res.Raw)
	}
}

// ColumnsOf returns the column set of rows: the keys of the first row, or
// an empty slice when there are none.
func ColumnsOf(rows []Row) []string {
	if len(rows) == 0 {
		return []string{}
	}
	return rows[0].Keys()
}
