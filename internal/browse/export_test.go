package browse

import (
	"bytes"
	"testing"
	"time"

	"mldash/domain/dataset"
	"mldash/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportRows() []dataset.Row {
	return []dataset.Row{
		dataset.RowFromPairs("name", `Ana "La Jefa"`, "age", 31, "score", 0, "ok", false, "note", nil),
		dataset.RowFromPairs("name", "Luis", "age", 28, "score", 7.5, "ok", true),
	}
}

func TestWriteCSVQuoting(t *testing.T) {
	cols := []string{"name", "age", "score", "ok", "note"}

	tests := []struct {
		name   string
		legacy bool
		want   string
	}{
		{
			name:   "quote doubling",
			legacy: false,
			want: "name,age,score,ok,note\n" +
				`"Ana ""La Jefa""","31","0","false",""` + "\n" +
				`"Luis","28","7.5","true",""`,
		},
		{
			name:   "legacy unescaped",
			legacy: true,
			want: "name,age,score,ok,note\n" +
				`"Ana "La Jefa"","31","","",""` + "\n" +
				`"Luis","28","7.5","true",""`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, cols, exportRows(), tt.legacy))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"a", "b,c"}, nil, false))
	assert.Equal(t, `a,"b,c"`, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, assert.AnError }

func TestWriteCSVFailure(t *testing.T) {
	err := WriteCSV(failingWriter{}, []string{"a"}, exportRows(), false)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeExportFailed))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []string{"name", "age"}, exportRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "age"}, rows[0])
	assert.Equal(t, []string{`Ana "La Jefa"`, "31"}, rows[1])
	assert.Equal(t, []string{"Luis", "28"}, rows[2])
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, "datos_filtrados_2024-03-10.csv", ExportFilename(at, FormatCSV))
	assert.Equal(t, "datos_filtrados_2024-03-10.xlsx", ExportFilename(at, FormatXLSX))
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseExportFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, XLSXContentType, f.ContentType())

	_, err = ParseExportFormat("pdf")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}
