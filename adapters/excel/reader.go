package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// DataReader reads uploaded Excel and CSV files into rows
type DataReader struct {
	fileName string
	fileType string // "xlsx" or "csv"
	log      logrus.FieldLogger
}

// NewDataReader picks the format from the file extension
func NewDataReader(fileName string, log logrus.FieldLogger) *DataReader {
	ext := strings.ToLower(filepath.Ext(fileName))
	fileType := ""
	switch ext {
	case ".csv":
		fileType = "csv"
	case ".xlsx", ".xlsm":
		fileType = "xlsx"
	}
	return &DataReader{
		fileName: fileName,
		fileType: fileType,
		log:      logging.Component(log, "reader").WithField("file", fileName),
	}
}

// Supported reports whether the file extension is one the reader handles
func (r *DataReader) Supported() bool {
	return r.fileType != ""
}

// Read parses the whole file. The first record is the header.
func (r *DataReader) Read(src io.Reader) (*Table, error) {
	start := time.Now()

	var records [][]string
	var err error
	switch r.fileType {
	case "csv":
		records, err = r.readCSV(src)
	case "xlsx":
		records, err = r.readExcel(src)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type: %s (use .csv or .xlsx)", r.fileName))
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s has no header row", r.fileName))
	}

	table := processRecords(records)
	r.log.WithFields(logrus.Fields{
		"type":     r.fileType,
		"columns":  len(table.Headers),
		"rows":     len(table.Rows),
		"duration": time.Since(start),
	}).Info("file parsed")
	return table, nil
}

func (r *DataReader) readCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("failed to read CSV file: %v", err))
	}
	return records, nil
}

func (r *DataReader) readExcel(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("failed to open Excel file: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.InvalidInput("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("failed to read sheet %s: %v", sheets[0], err))
	}
	return rows, nil
}

// processRecords turns string records into typed rows. Short records are
// padded with nulls and extra cells are dropped.
func processRecords(records [][]string) *Table {
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = h
	}

	rows := make([]dataset.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		var row dataset.Row
		for j, h := range headers {
			v := dataset.NullValue()
			if j < len(rec) {
				v = ParseCell(rec[j])
			}
			row.Append(h, v)
		}
		rows = append(rows, row)
	}

	return &Table{
		Headers:       headers,
		Rows:          rows,
		ColumnTypes:   InferColumnTypes(headers, rows),
		MissingValues: CountMissing(headers, rows),
	}
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseCell infers a typed value from raw text: empty is null, true/false
// are booleans, finite decimals are numbers, anything else stays a string.
func ParseCell(raw string) dataset.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return dataset.NullValue()
	}
	switch strings.ToLower(s) {
	case "true":
		return dataset.NewBool(true)
	case "false":
		return dataset.NewBool(false)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) && looksNumeric(s) {
		return dataset.NewNumber(f)
	}
	return dataset.NewString(s)
}

// looksNumeric rejects forms ParseFloat accepts but a spreadsheet would
// not treat as numbers, such as hex and underscores.
func looksNumeric(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.', c == '-', c == '+', c == 'e', c == 'E':
		default:
			return false
		}
	}
	return true
}

// InferColumnTypes names each column's type the way the backend reports
// it: int64, float64, bool or object.
func InferColumnTypes(headers []string, rows []dataset.Row) map[string]string {
	types := make(map[string]string, len(headers))
	for _, h := range headers {
		var ints, floats, bools, others int
		for _, row := range rows {
			v, _ := row.Get(h)
			switch v.Kind {
			case dataset.KindNumber:
				if v.Num == math.Trunc(v.Num) {
					ints++
				} else {
					floats++
				}
			case dataset.KindBool:
				bools++
			case dataset.KindString:
				others++
			}
		}
		switch {
		case others > 0 || (bools > 0 && ints+floats > 0):
			types[h] = "object"
		case bools > 0:
			types[h] = "bool"
		case floats > 0:
			types[h] = "float64"
		case ints > 0:
			types[h] = "int64"
		default:
			types[h] = "object"
		}
	}
	return types
}

// CountMissing counts null cells per column
func CountMissing(headers []string, rows []dataset.Row) map[string]int {
	missing := make(map[string]int, len(headers))
	for _, h := range headers {
		missing[h] = 0
		for _, row := range rows {
			if v, _ := row.Get(h); v.IsNull() {
				missing[h]++
			}
		}
	}
	return missing
}
