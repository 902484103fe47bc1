package dataprocessing

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"kuberdash/pkg/contracts/domain"
)

// missingMarkers are the cell spellings read as missing values
var missingMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// extraDateLayouts are tried before cast's layout list
var extraDateLayouts = []string{
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// IsMissing reports whether a raw cell is a missing-value marker
func IsMissing(raw string) bool {
	_, ok := missingMarkers[strings.TrimSpace(raw)]
	return ok
}

// TryParseNumber parses a raw cell as a float. ok is false when the cell is
// not a number; it never panics or returns an error for control flow.
func TryParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// TryParseTime parses a raw cell as a date or timestamp
func TryParseTime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if _, isNum := TryParseNumber(s); isNum {
		return time.Time{}, false
	}
	for _, layout := range extraDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	t, err := cast.StringToDate(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// InferColumnType assigns the type tag for a column of raw cells. Numeric
// wins over temporal, temporal over text. A column with no present values is
// numeric.
func InferColumnType(raw []string) domain.ColumnType {
	numeric, temporal := true, true
	for _, cell := range raw {
		if IsMissing(cell) {
			continue
		}
		if numeric {
			if _, ok := TryParseNumber(cell); !ok {
				numeric = false
			}
		}
		if !numeric && temporal {
			if _, ok := TryParseTime(cell); !ok {
				temporal = false
			}
		}
		if !numeric && !temporal {
			return domain.ColumnText
		}
	}
	if numeric {
		return domain.ColumnNumeric
	}
	return domain.ColumnTemporal
}

// BuildColumn converts raw cells into a typed column
func BuildColumn(name string, raw []string) domain.Column {
	ct := InferColumnType(raw)
	values := make([]domain.Value, len(raw))
	for i, cell := range raw {
		values[i] = convertCell(cell, ct)
	}
	return domain.Column{Name: name, Type: ct, Values: values}
}

func convertCell(raw string, ct domain.ColumnType) domain.Value {
	if IsMissing(raw) {
		return domain.Missing()
	}
	switch ct {
	case domain.ColumnNumeric:
		if f, ok := TryParseNumber(raw); ok {
			return domain.Number(f)
		}
	case domain.ColumnTemporal:
		if t, ok := TryParseTime(raw); ok {
			return domain.Timestamp(t)
		}
	default:
		return domain.Text(raw)
	}
	return domain.Missing()
}

// CoerceTemporal converts a text column to temporal; unparseable cells
// become missing. Temporal columns are returned as copies.
func CoerceTemporal(c domain.Column) domain.Column {
	if c.Type == domain.ColumnTemporal {
		return c.Clone()
	}
	values := make([]domain.Value, len(c.Values))
	for i, v := range c.Values {
		if v.Null {
			values[i] = domain.Missing()
			continue
		}
		if t, ok := TryParseTime(v.Format(c.Type)); ok {
			values[i] = domain.Timestamp(t)
		} else {
			values[i] = domain.Missing()
		}
	}
	return domain.Column{Name: c.Name, Type: domain.ColumnTemporal, Values: values}
}

// fullyTemporal reports whether every present cell of a text column parses as
// a time and at least one cell is present
func fullyTemporal(c domain.Column) bool {
	if c.Type != domain.ColumnText {
		return false
	}
	present := 0
	for _, v := range c.Values {
		if v.Null {
			continue
		}
		if _, ok := TryParseTime(v.Str); !ok {
			return false
		}
		present++
	}
	return present > 0
}
