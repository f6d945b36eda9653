package pool

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies how a source's bytes are decoded.
type Format string

const (
	FormatAuto Format = ""
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks a decoder from an explicit format, the source name's
// extension, a Content-Type, or finally the leading bytes.
func DetectFormat(explicit Format, name, contentType string, data []byte) Format {
	if explicit != FormatAuto {
		return explicit
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "spreadsheetml"):
		return FormatXLSX
	case strings.Contains(ct, "text/csv"):
		return FormatCSV
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// Table is a decoded tabular source: a header row and the data rows below it.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable builds a Table, indexing header names for lookup.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	return t
}

// Column returns the index of the named column. A header that differs from
// name only by trailing whitespace is accepted as the same column.
func (t *Table) Column(name string) (int, bool) {
	if i, ok := t.index[name]; ok {
		return i, true
	}
	if i, ok := t.index[name+" "]; ok {
		return i, true
	}
	want := strings.TrimRight(name, " \t")
	for i, h := range t.Header {
		if strings.TrimRight(h, " \t") == want {
			return i, true
		}
	}
	return -1, false
}

// Cell returns row[col], or "" when the row is shorter than the header.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// DecodeTable reads the first sheet (xlsx) or the whole file (csv). The first
// row is the header; fully blank rows are dropped.
func DecodeTable(format Format, data []byte) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatXLSX:
		records, err = readXLSX(data)
	case FormatCSV:
		records, err = readCSV(data)
	default:
		return nil, fmt.Errorf("unsupported source format %q", format)
	}
	if err != nil {
		return nil, err
	}

	var kept [][]string
	for _, r := range records {
		if !blankRow(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil, errors.New("source has no header row")
	}
	return NewTable(kept[0], kept[1:]), nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("malformed workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("malformed csv: %w", err)
		}
		out = append(out, rec)
	}
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
