// Package exporter writes tables as CSV or Excel files and builds the
// HTML download links served to the dashboard.
//
// Supported formats are csv and excel; any other name fails with
// domain.ErrUnsupportedFormat:
//
//	format, err := exporter.ParseFormat(r.URL.Query().Get("format"))
//	if err != nil {
//		return err
//	}
//	err = exporter.Export(w, table, format)
//
// CSVWriter can also persist an export to the configured exports directory.
package exporter
