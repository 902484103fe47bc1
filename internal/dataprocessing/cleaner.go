package dataprocessing

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"kuberdash/pkg/contracts/domain"
)

// DefaultTextPlaceholder replaces missing text cells
const DefaultTextPlaceholder = "Unknown"

// Cleaner removes duplicate rows and imputes missing values
type Cleaner struct {
	logger      *slog.Logger
	placeholder string
}

// NewCleaner creates a cleaner. An empty placeholder means DefaultTextPlaceholder.
func NewCleaner(logger *slog.Logger, placeholder string) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if placeholder == "" {
		placeholder = DefaultTextPlaceholder
	}
	return &Cleaner{
		logger:      logger.With(slog.String("component", "cleaner")),
		placeholder: placeholder,
	}
}

var defaultCleaner = NewCleaner(nil, "")

// Clean returns a de-duplicated, imputed copy of t using the default cleaner
func Clean(t *domain.Table) *domain.Table {
	out, _ := defaultCleaner.CleanWithReport(t)
	return out
}

// Clean returns a de-duplicated, imputed copy of t
func (c *Cleaner) Clean(t *domain.Table) *domain.Table {
	out, _ := c.CleanWithReport(t)
	return out
}

// CleanWithReport cleans t and describes what changed. The input is not
// modified.
//
// Rows are de-duplicated first so the numeric means are taken over distinct
// rows. Imputation can make two rows identical, so the table is de-duplicated
// once more afterwards; this also makes cleaning idempotent.
func (c *Cleaner) CleanWithReport(t *domain.Table) (*domain.Table, domain.CleaningReport) {
	report := domain.CleaningReport{
		RowsBefore: t.NumRows(),
		Imputed:    make(map[string]int),
	}

	deduped := DropDuplicates(t)
	out := deduped.Clone()

	for j := range out.Columns {
		col := &out.Columns[j]
		switch col.Type {
		case domain.ColumnNumeric:
			mean, ok := columnMean(*col)
			if !ok {
				if col.Len() > 0 {
					report.LeftMissing = append(report.LeftMissing, col.Name)
				}
				continue
			}
			filled := fillMissing(col, domain.Number(mean))
			if filled > 0 {
				report.Imputed[col.Name] = filled
			}
		case domain.ColumnText:
			filled := fillMissing(col, domain.Text(c.placeholder))
			if filled > 0 {
				report.Imputed[col.Name] = filled
			}
		}
	}

	out = DropDuplicates(out)
	report.RowsAfter = out.NumRows()
	report.DuplicatesRemoved = report.RowsBefore - report.RowsAfter

	c.logger.Debug("table cleaned",
		slog.String("table", t.Name),
		slog.Int("rows_before", report.RowsBefore),
		slog.Int("rows_after", report.RowsAfter),
		slog.Any("imputed", report.Imputed))

	return out, report
}

// DropDuplicates keeps the first occurrence of every distinct row, preserving
// order. Missing cells compare equal to each other.
func DropDuplicates(t *domain.Table) *domain.Table {
	n := t.NumRows()
	seen := make(map[string]struct{}, n)
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		key := rowKey(t, i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	return t.SelectRows(keep)
}

func rowKey(t *domain.Table, i int) string {
	var b strings.Builder
	for _, col := range t.Columns {
		b.WriteString(cellKey(col.Values[i], col.Type))
		b.WriteByte(0)
	}
	return b.String()
}

// cellKey encodes a cell so that equal cells (by Value.Equal) share a key
func cellKey(v domain.Value, ct domain.ColumnType) string {
	if v.Null {
		return "\x01"
	}
	switch ct {
	case domain.ColumnNumeric:
		if v.Num == 0 {
			return "n0"
		}
		return "n" + strconv.FormatFloat(v.Num, 'g', -1, 64)
	case domain.ColumnTemporal:
		return "t" + v.Time.UTC().Format(time.RFC3339Nano)
	default:
		return "s" + v.Str
	}
}

func columnMean(c domain.Column) (float64, bool) {
	sum, count := 0.0, 0
	for _, v := range c.Values {
		if v.Null {
			continue
		}
		sum += v.Num
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func fillMissing(c *domain.Column, with domain.Value) int {
	filled := 0
	for i, v := range c.Values {
		if v.Null {
			c.Values[i] = with
			filled++
		}
	}
	return filled
}
