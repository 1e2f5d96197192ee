package dataset

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"null", NullValue(), "null"},
		{"string", NewString("Madrid"), "Madrid"},
		{"true", NewBool(true), "true"},
		{"false", NewBool(false), "false"},
		{"integer", NewNumber(42), "42"},
		{"negative zero", NewNumber(math.Copysign(0, -1)), "0"},
		{"fraction", NewNumber(3.25), "3.25"},
		{"large", NewNumber(123456789012), "123456789012"},
		{"tiny exponent", NewNumber(1.5e-7), "1.5e-7"},
		{"huge exponent", NewNumber(1e21), "1e+21"},
		{"small plain", NewNumber(0.000001), "0.000001"},
		{"nan", NewNumber(math.NaN()), "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.String())
		})
	}
}

func TestRowPreservesKeyOrder(t *testing.T) {
	payload := `{"zeta":1,"alpha":"a","mid":null,"flag":true}`

	var row Row
	require.NoError(t, json.Unmarshal([]byte(payload), &row))
	assert.Equal(t, []string{"zeta", "alpha", "mid", "flag"}, row.Keys())

	v, ok := row.Get("mid")
	require.True(t, ok)
	assert.True(t, v.IsNull())

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, payload, string(out))
}

func TestRowNestedValuesKeepRawJSON(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"tags":["a","b"]}`), &row))

	v, _ := row.Get("tags")
	assert.Equal(t, KindString, v.Kind)
	assert.Equal(t, `["a","b"]`, v.String())
}

func TestRowRejectsNonObject(t *testing.T) {
	var row Row
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &row))
}

func TestRowProjectFillsMissing(t *testing.T) {
	row := RowFromPairs("a", 1, "b", "x")

	values := row.Project([]string{"b", "missing", "a"})
	require.Len(t, values, 3)
	assert.Equal(t, "x", values[0].String())
	assert.True(t, values[1].IsNull())
	assert.Equal(t, "1", values[2].String())
}

func TestColumnsOf(t *testing.T) {
	assert.Equal(t, []string{}, ColumnsOf(nil))

	rows := []Row{
		RowFromPairs("id", 1, "name", "a"),
		RowFromPairs("id", 2, "name", "b", "extra", true),
	}
	assert.Equal(t, []string{"id", "name"}, ColumnsOf(rows))
}

func TestPreviewResponseDecoding(t *testing.T) {
	payload := `{"success":true,"dataset":{"id":"f1","file_name":"iris.csv","status":"uploaded","rows":2,"columns":2,"created_at":"2024-01-02T03:04:05Z"},
		"preview":[{"sepal":5.1,"species":"setosa"},{"sepal":4.9,"species":"setosa"}]}`

	var resp PreviewResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "iris.csv", resp.Dataset.FileName)
	assert.Equal(t, StatusUploaded, resp.Dataset.Status)
	require.Len(t, resp.Preview, 2)
	assert.Equal(t, []string{"sepal", "species"}, resp.Preview[1].Keys())
}

func TestCleaningActionIsKnown(t *testing.T) {
	assert.True(t, ActionDropNulls.IsKnown())
	assert.False(t, CleaningAction("shuffle").IsKnown())
}
