package browse

import (
	"bufio"
	"io"
	"math"
	"strings"
	"time"

	"mldash/domain/dataset"
	"mldash/internal/errors"

	"github.com/xuri/excelize/v2"
)

const (
	// CSVContentType is the MIME type of CSV exports
	CSVContentType = "text/csv;charset=utf-8"
	// XLSXContentType is the MIME type of spreadsheet exports
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	exportPrefix = "datos_filtrados_"
	exportSheet  = "Datos"
)

// ExportFormat selects the file type of an export
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "csv" (the default when empty) and "xlsx"
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", errors.InvalidInput("unsupported export format: " + s)
	}
}

// ContentType returns the MIME type for f
func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return XLSXContentType
	}
	return CSVContentType
}

// ExportFilename names an export after the UTC date of now
func ExportFilename(now time.Time, format ExportFormat) string {
	return exportPrefix + now.UTC().Format("2006-01-02") + "." + string(format)
}

// WriteCSV writes a header of columns and one line per row, every value
// double-quoted and lines joined by "\n". Missing and null values are
// written as "". Embedded quotes are doubled unless legacy is set, in
// which case values are written verbatim the way the old dashboard did.
func WriteCSV(w io.Writer, columns []string, rows []dataset.Row, legacy bool) error {
	bw := bufio.NewWriter(w)

	header := make([]string, len(columns))
	for i, col := range columns {
		if legacy {
			header[i] = col
		} else {
			header[i] = quoteHeader(col)
		}
	}
	bw.WriteString(strings.Join(header, ","))

	fields := make([]string, len(columns))
	for _, row := range rows {
		for i, v := range row.Project(columns) {
			fields[i] = csvField(v, legacy)
		}
		bw.WriteByte('\n')
		bw.WriteString(strings.Join(fields, ","))
	}

	if err := bw.Flush(); err != nil {
		return errors.ExportFailed(err)
	}
	return nil
}

func csvField(v dataset.Value, legacy bool) string {
	if legacy {
		if isFalsy(v) {
			return `""`
		}
		return `"` + v.String() + `"`
	}
	if v.IsNull() {
		return `""`
	}
	return `"` + strings.ReplaceAll(v.String(), `"`, `""`) + `"`
}

// isFalsy mirrors the legacy `value || ''` fallback
func isFalsy(v dataset.Value) bool {
	switch v.Kind {
	case dataset.KindNull:
		return true
	case dataset.KindString:
		return v.Str == ""
	case dataset.KindNumber:
		return v.Num == 0 || math.IsNaN(v.Num)
	case dataset.KindBool:
		return !v.Bool
	}
	return false
}

func quoteHeader(col string) string {
	if strings.ContainsAny(col, ",\"\r\n") {
		return `"` + strings.ReplaceAll(col, `"`, `""`) + `"`
	}
	return col
}

// WriteXLSX writes the same selection as WriteCSV to a single-sheet
// workbook, keeping numbers and booleans typed.
func WriteXLSX(w io.Writer, columns []string, rows []dataset.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return errors.ExportFailed(err)
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return errors.ExportFailed(err)
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errors.ExportFailed(err)
	}

	for r, row := range rows {
		values := row.Project(columns)
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v.Interface()
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return errors.ExportFailed(err)
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return errors.ExportFailed(err)
		}
	}

	if err := sw.Flush(); err != nil {
		return errors.ExportFailed(err)
	}
	if err := f.Write(w); err != nil {
		return errors.ExportFailed(err)
	}
	return nil
}
