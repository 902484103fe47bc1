package exporter

import (
	"fmt"
	"strings"

	"kuberdash/pkg/contracts/domain"
)

// Format is an export file format
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

const (
	csvContentType   = "text/csv"
	excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// data URI mime for CSV links; browsers download it instead of opening it
	csvLinkMime = "file/csv"
)

// ParseFormat validates a format name. Matching is case-insensitive and
// "xlsx" is accepted as an alias of excel.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, s)
}

// ContentType returns the HTTP content type of the format
func (f Format) ContentType() string {
	if f == FormatExcel {
		return excelContentType
	}
	return csvContentType
}

// Extension returns the file extension, dot included
func (f Format) Extension() string {
	if f == FormatExcel {
		return ".xlsx"
	}
	return ".csv"
}

// Filename returns base with the format's extension
func (f Format) Filename(base string) string {
	base = strings.TrimSuffix(base, f.Extension())
	if base == "" {
		base = "data"
	}
	return base + f.Extension()
}

func (f Format) linkMime() string {
	if f == FormatExcel {
		return excelContentType
	}
	return csvLinkMime
}
