package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"kuberdash/pkg/contracts/domain"
)

// Supported upload extensions
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// ParseFile reads a dataset, choosing the reader from the file extension.
// The table is named after the file without its extension.
func ParseFile(filename string, r io.Reader) (*domain.Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	switch ext {
	case ExtCSV:
		return ParseCSV(r, name)
	case ExtXLSX:
		return ParseXLSX(r, name)
	default:
		return nil, fmt.Errorf("%w: file extension %q", domain.ErrUnsupportedFormat, ext)
	}
}

// ParseCSV reads comma separated text. The first record is the header.
func ParseCSV(r io.Reader, name string) (*domain.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: csv has no header row", domain.ErrInvalidTable)
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\uFEFF")
	}
	return buildTable(name, records[0], records[1:])
}

// ParseXLSX reads the first worksheet of an Excel workbook. The first row
// is the header.
func ParseXLSX(r io.Reader, name string) (*domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrInvalidTable)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", domain.ErrInvalidTable, sheets[0])
	}
	return buildTable(name, rows[0], rows[1:])
}

// buildTable pads ragged rows, fixes up the header and infers column types
func buildTable(name string, header []string, body [][]string) (*domain.Table, error) {
	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, fmt.Errorf("%w: no columns", domain.ErrInvalidTable)
	}

	names := headerNames(header, width)
	columns := make([]domain.Column, width)
	for j := 0; j < width; j++ {
		raw := make([]string, len(body))
		for i, row := range body {
			if j < len(row) {
				raw[i] = row[j]
			}
		}
		columns[j] = BuildColumn(names[j], raw)
	}

	table, err := domain.NewTable(name, columns...)
	if err != nil {
		return nil, errors.Join(errors.New("failed to build table"), err)
	}
	return table, nil
}

// headerNames trims header cells, names blank ones "Unnamed: <i>" and
// suffixes repeats with ".1", ".2", ...
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]struct{}, width)
	counts := make(map[string]int, width)

	for j := 0; j < width; j++ {
		base := ""
		if j < len(header) {
			base = strings.TrimSpace(header[j])
		}
		if base == "" {
			base = "Unnamed: " + strconv.Itoa(j)
		}

		candidate := base
		for {
			if _, taken := used[candidate]; !taken {
				break
			}
			counts[base]++
			candidate = base + "." + strconv.Itoa(counts[base])
		}
		used[candidate] = struct{}{}
		names[j] = candidate
	}
	return names
}
