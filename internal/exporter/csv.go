package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"kuberdash/internal/config"
	"kuberdash/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes tables as CSV
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer. paths may be nil when only
// stream output is used.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	Comma     rune
}

// Write writes the header row and every record of t to w
func (cw *CSVWriter) Write(w io.Writer, t *domain.Table, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if options.Comma != 0 {
		writer.Comma = options.Comma
	}

	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range t.Records() {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes t to the exports directory and returns the full path
func (cw *CSVWriter) WriteFile(filename string, t *domain.Table, options WriteOptions) (string, error) {
	if cw.paths == nil {
		return "", fmt.Errorf("no export directory configured")
	}
	fullPath := cw.paths.GetExportPath(FormatCSV.Filename(filename))

	cw.logger.Info("Writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", t.NumRows()))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := cw.Write(file, t, options); err != nil {
		file.Close()
		return "", err
	}
	return fullPath, file.Close()
}
