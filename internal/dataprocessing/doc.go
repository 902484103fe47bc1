// Package dataprocessing turns uploaded files into typed tables and runs the
// table operations behind the dashboard.
//
// # Ingestion
//
// ParseFile reads CSV or XLSX input. Every column is typed exactly once, when
// the file is read: numeric when every present cell parses as a number,
// temporal when every present cell parses as a date, text otherwise.
// Cells spelled like "NA", "null" or left empty are missing.
//
//	table, err := dataprocessing.ParseFile("sales.csv", r)
//
// # Operations
//
//   - Clean drops duplicate rows, fills numeric gaps with the column mean
//     and text gaps with "Unknown"
//   - Compare reports shape, column set and cell differences of two tables
//   - QuickFilter, TimeFilter, TopN and ApplyColumnFilters narrow a table;
//     Apply chains them in that order
//   - Summarize and Describe produce headline figures and column statistics
//   - Correlate computes the Pearson matrix over numeric columns
//
// All operations are pure: they return new tables and never modify their
// input.
package dataprocessing
