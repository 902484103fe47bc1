package testutil

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kuberdash/pkg/contracts/domain"
)

// SalesCSV is a small dataset with a duplicate row and missing cells
const SalesCSV = `date,region,sales,units
2024-01-01,North,100,10
2024-01-02,South,,12
2024-01-03,,300,
2024-01-01,North,100,10
2024-01-04,East,400,40
`

// InventoryCSV has a different shape from SalesCSV and shares two columns
const InventoryCSV = `region,units,warehouse
North,10,A
South,12,B
`

// SalesTable returns the cleaned form of SalesCSV
func SalesTable() *domain.Table {
	day := func(d int) domain.Value {
		return domain.Timestamp(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC))
	}
	return domain.MustTable("sales.csv",
		domain.NewColumn("date", domain.ColumnTemporal, day(1), day(2), day(3), day(4)),
		domain.TextColumn("region", "North", "South", "Unknown", "East"),
		domain.NumberColumn("sales", 100, 800.0/3, 300, 400),
		domain.NumberColumn("units", 10, 12, 62.0/3, 40),
	)
}

// WriteFile writes content to name inside dir and returns the full path
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MultipartFile builds a multipart body with one file part and returns the
// body and its Content-Type header value
func MultipartFile(t testing.TB, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}
