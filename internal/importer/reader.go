// Package importer reads bulk-import spreadsheets and writes invoice exports.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("only .csv and .xlsx files are supported")

// Row is one data row keyed by normalized header name.
type Row struct {
	Line   int
	Values map[string]string
}

func (r Row) Get(key string) string {
	return strings.TrimSpace(r.Values[key])
}

// ReadRows parses a CSV or XLSX upload chosen by file extension. The first
// row is the header; blank rows are skipped. XLSX uploads use their first
// sheet.
func ReadRows(filename string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func readCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return toRows(records), nil
}

func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %w", err)
	}
	return toRows(records), nil
}

func toRows(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = NormalizeHeader(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		values := make(map[string]string, len(header))
		for col, name := range header {
			if col < len(record) && name != "" {
				values[name] = record[col]
			}
		}
		rows = append(rows, Row{Line: i + 2, Values: values})
	}
	return rows
}

var headerReplacer = strings.NewReplacer(" ", "_", "-", "_")

// NormalizeHeader lower-cases a column title and joins words with "_", so
// "PIC Name", "pic-name" and "pic_name" all match.
func NormalizeHeader(h string) string {
	return headerReplacer.Replace(strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))))
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
