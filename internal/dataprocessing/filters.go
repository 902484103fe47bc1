package dataprocessing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"kuberdash/pkg/contracts/domain"
)

// QuickFilter keeps the rows where any cell, as text, contains term
// case-insensitively. An empty term returns the table unchanged.
func QuickFilter(t *domain.Table, term string) *domain.Table {
	if term == "" {
		return t.Clone()
	}
	needle := strings.ToLower(term)

	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		for _, col := range t.Columns {
			v := col.Values[i]
			if v.Null {
				continue
			}
			if strings.Contains(strings.ToLower(v.Format(col.Type)), needle) {
				keep = append(keep, i)
				break
			}
		}
	}
	return t.SelectRows(keep)
}

// DetectTimeColumn returns the first column that is temporal or whose every
// present value parses as a date.
func DetectTimeColumn(t *domain.Table) (string, bool) {
	for _, col := range t.Columns {
		if col.Type == domain.ColumnTemporal {
			if col.MissingCount() < col.Len() {
				return col.Name, true
			}
			continue
		}
		if fullyTemporal(col) {
			return col.Name, true
		}
	}
	return "", false
}

// TimeFilter coerces the detected date column to temporal and keeps the rows
// whose time lies in the inclusive window. A nil window selects the column's
// full range. Rows with a missing time never match. Without a date column the
// table is returned unchanged and the window is nil.
func TimeFilter(t *domain.Table, window *domain.DateRange) (*domain.Table, *domain.TimeWindow) {
	name, ok := DetectTimeColumn(t)
	if !ok {
		return t.Clone(), nil
	}

	out := t.Clone()
	idx := out.ColumnIndex(name)
	out.Columns[idx] = CoerceTemporal(out.Columns[idx])
	col := out.Columns[idx]

	var lo, hi time.Time
	found := false
	for _, v := range col.Values {
		if v.Null {
			continue
		}
		if !found || v.Time.Before(lo) {
			lo = v.Time
		}
		if !found || v.Time.After(hi) {
			hi = v.Time
		}
		found = true
	}

	tw := &domain.TimeWindow{Column: name, Min: lo, Max: hi}
	tw.Selected = domain.DateRange{From: lo, To: hi}
	if window != nil {
		tw.Selected = *window
	}

	keep := make([]int, 0, out.NumRows())
	for i, v := range col.Values {
		if !v.Null && tw.Selected.Contains(v.Time) {
			keep = append(keep, i)
		}
	}
	return out.SelectRows(keep), tw
}

// TopN keeps the n rows with the largest values in column, largest first,
// ties in original row order. Missing values never rank. An empty column
// name selects the first numeric column. A table with no numeric column is
// returned unchanged whatever column is named.
func TopN(t *domain.Table, column string, n int) (*domain.Table, error) {
	numeric := t.ColumnsOfType(domain.ColumnNumeric)
	if len(numeric) == 0 {
		return t.Clone(), nil
	}
	if column == "" {
		column = numeric[0]
	}

	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if col.Type != domain.ColumnNumeric {
		return nil, fmt.Errorf("%w: top-n column %q is %s", domain.ErrInvalidColumnType, column, col.Type)
	}
	if n <= 0 {
		return t.SelectRows(nil), nil
	}

	ranked := make([]int, 0, col.Len())
	for i, v := range col.Values {
		if !v.Null {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return col.Values[ranked[a]].Num > col.Values[ranked[b]].Num
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return t.SelectRows(ranked), nil
}

// ApplyColumnFilters keeps the rows whose cell text equals one of the
// accepted values for every filtered column. Columns with no accepted values
// are ignored.
func ApplyColumnFilters(t *domain.Table, filters map[string][]string) (*domain.Table, error) {
	type accept struct {
		col    *domain.Column
		values map[string]struct{}
	}

	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	var checks []accept
	for _, name := range names {
		if len(filters[name]) == 0 {
			continue
		}
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(filters[name]))
		for _, v := range filters[name] {
			set[normalizeFilterValue(v, col.Type)] = struct{}{}
		}
		checks = append(checks, accept{col: col, values: set})
	}
	if len(checks) == 0 {
		return t.Clone(), nil
	}

	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		match := true
		for _, c := range checks {
			v := c.col.Values[i]
			if v.Null {
				match = false
				break
			}
			if _, ok := c.values[v.Format(c.col.Type)]; !ok {
				match = false
				break
			}
		}
		if match {
			keep = append(keep, i)
		}
	}
	return t.SelectRows(keep), nil
}

// normalizeFilterValue brings a query value into the cell text form so that
// "10.0" matches the numeric cell 10
func normalizeFilterValue(raw string, ct domain.ColumnType) string {
	switch ct {
	case domain.ColumnNumeric:
		if f, ok := TryParseNumber(raw); ok {
			return domain.Number(f).Format(ct)
		}
	case domain.ColumnTemporal:
		if ts, ok := TryParseTime(raw); ok {
			return domain.Timestamp(ts).Format(ct)
		}
	}
	return raw
}

// Apply runs the default composition: quick filter, time filter, column
// filters, then top-N. The time window is nil when the table has no date
// column.
func Apply(t *domain.Table, state domain.FilterState) (*domain.Table, *domain.TimeWindow, error) {
	out := QuickFilter(t, state.Search)
	out, window := TimeFilter(out, state.DateRange)

	out, err := ApplyColumnFilters(out, state.ColumnFilters)
	if err != nil {
		return nil, nil, err
	}

	if state.TopN != nil {
		out, err = TopN(out, state.TopN.Column, state.TopN.N)
		if err != nil {
			return nil, nil, err
		}
	}
	return out, window, nil
}
