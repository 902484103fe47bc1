package dataprocessing

import (
	"fmt"
	"math"

	"kuberdash/pkg/contracts/domain"
)

// ColumnStats describes one column of a table
type ColumnStats struct {
	Name    string            `json:"name"`
	Type    domain.ColumnType `json:"type"`
	Count   int               `json:"count"`
	Missing int               `json:"missing"`
	Unique  int               `json:"unique"`
	Mean    *float64          `json:"mean,omitempty"`
	Min     *float64          `json:"min,omitempty"`
	Max     *float64          `json:"max,omitempty"`
}

// Summarize computes the headline cards over every numeric cell of the
// table: sum, row count, maximum and minimum.
func Summarize(t *domain.Table) (domain.Summary, error) {
	numeric := t.ColumnsOfType(domain.ColumnNumeric)
	if len(numeric) == 0 {
		return domain.Summary{}, fmt.Errorf("%w: no numeric columns", domain.ErrInsufficientData)
	}

	summary := domain.Summary{
		Max:            math.Inf(-1),
		Min:            math.Inf(1),
		Count:          t.NumRows(),
		NumericColumns: numeric,
	}
	present := false
	for _, name := range numeric {
		col, _ := t.Column(name)
		for _, v := range col.Values {
			if v.Null {
				continue
			}
			present = true
			summary.Sum += v.Num
			summary.Max = math.Max(summary.Max, v.Num)
			summary.Min = math.Min(summary.Min, v.Num)
		}
	}
	if !present {
		summary.Max, summary.Min = 0, 0
	}
	return summary, nil
}

// Describe returns per-column statistics in column order
func Describe(t *domain.Table) []ColumnStats {
	stats := make([]ColumnStats, 0, t.NumCols())
	for _, col := range t.Columns {
		s := ColumnStats{Name: col.Name, Type: col.Type}
		distinct := make(map[string]struct{})
		sum := 0.0
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range col.Values {
			if v.Null {
				s.Missing++
				continue
			}
			s.Count++
			distinct[cellKey(v, col.Type)] = struct{}{}
			if col.Type == domain.ColumnNumeric {
				sum += v.Num
				lo = math.Min(lo, v.Num)
				hi = math.Max(hi, v.Num)
			}
		}
		s.Unique = len(distinct)
		if col.Type == domain.ColumnNumeric && s.Count > 0 {
			mean := sum / float64(s.Count)
			s.Mean, s.Min, s.Max = &mean, &lo, &hi
		}
		stats = append(stats, s)
	}
	return stats
}
