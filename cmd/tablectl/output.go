package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"kuberdash/internal/dataprocessing"
	"kuberdash/pkg/contracts/domain"
)

// print writes v as indented JSON in json mode, otherwise runs pretty
func (o *rootOptions) print(cmd *cobra.Command, v any, pretty func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if o.output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	pretty(w)
	return nil
}

func newWriter(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	if title != "" {
		tw.SetTitle(title)
	}
	return tw
}

// renderTable prints at most limit rows of t; limit <= 0 prints all
func renderTable(w io.Writer, t *domain.Table, limit int) {
	if t.NumCols() == 0 {
		_, _ = fmt.Fprintln(w, "(empty table)")
		return
	}

	shown := t
	if limit > 0 && t.NumRows() > limit {
		shown = t.Head(limit)
	}

	tw := newWriter(w, "")
	header := make(table.Row, 0, t.NumCols())
	configs := make([]table.ColumnConfig, 0, t.NumCols())
	for _, c := range t.Columns {
		header = append(header, c.Name)
		if c.Type == domain.ColumnNumeric {
			configs = append(configs, table.ColumnConfig{Name: c.Name, Align: text.AlignRight})
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, rec := range shown.Records() {
		row := make(table.Row, len(rec))
		for i, cell := range rec {
			row[i] = cell
		}
		tw.AppendRow(row)
	}
	tw.Render()

	if shown.NumRows() < t.NumRows() {
		_, _ = fmt.Fprintf(w, "(%d of %d rows)\n", shown.NumRows(), t.NumRows())
		return
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", t.NumRows())
}

func renderReport(w io.Writer, r domain.CleaningReport) {
	tw := newWriter(w, "Cleaning")
	tw.AppendRows([]table.Row{
		{"rows before", r.RowsBefore},
		{"rows after", r.RowsAfter},
		{"duplicates removed", r.DuplicatesRemoved},
	})
	for _, name := range slices.Sorted(maps.Keys(r.Imputed)) {
		tw.AppendRow(table.Row{"imputed " + name, r.Imputed[name]})
	}
	if len(r.LeftMissing) > 0 {
		tw.AppendRow(table.Row{"left missing", strings.Join(r.LeftMissing, ", ")})
	}
	tw.Render()
}

func renderSummary(w io.Writer, s domain.Summary, stats []dataprocessing.ColumnStats) {
	cards := newWriter(w, "Summary")
	cards.AppendRows([]table.Row{
		{"sum", formatFloat(s.Sum)},
		{"count", s.Count},
		{"max", formatFloat(s.Max)},
		{"min", formatFloat(s.Min)},
	})
	cards.Render()

	tw := newWriter(w, "Columns")
	tw.AppendHeader(table.Row{"column", "type", "count", "missing", "unique", "mean", "min", "max"})
	for _, c := range stats {
		tw.AppendRow(table.Row{c.Name, c.Type, c.Count, c.Missing, c.Unique,
			formatOptional(c.Mean), formatOptional(c.Min), formatOptional(c.Max)})
	}
	tw.Render()
}

func renderCorrelation(w io.Writer, m *domain.CorrelationMatrix) {
	tw := newWriter(w, "Correlation")
	header := table.Row{""}
	for _, c := range m.Columns {
		header = append(header, c)
	}
	tw.AppendHeader(header)
	for i, name := range m.Columns {
		row := table.Row{name}
		for _, v := range m.Values[i] {
			row = append(row, formatFloat(float64(v)))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func renderComparison(w io.Writer, r domain.ComparisonResult) {
	tw := newWriter(w, "Comparison")
	tw.AppendRows([]table.Row{
		{"shape 1", fmt.Sprintf("%d x %d", r.Shape1.Rows, r.Shape1.Columns)},
		{"shape 2", fmt.Sprintf("%d x %d", r.Shape2.Rows, r.Shape2.Columns)},
		{"shapes differ", r.ShapeDiff},
		{"common columns", strings.Join(r.CommonColumns, ", ")},
		{"only in first", strings.Join(r.UniqueColumnsDF1, ", ")},
		{"only in second", strings.Join(r.UniqueColumnsDF2, ", ")},
	})
	if n, err := r.Differences(); err == nil {
		tw.AppendRow(table.Row{"differing cells", n})
	}
	tw.Render()

	matrix, err := r.DifferenceMatrix()
	if err != nil || len(matrix.Cells) == 0 {
		return
	}
	dw := newWriter(w, "Differences")
	header := table.Row{"row"}
	for _, c := range matrix.Columns {
		header = append(header, c)
	}
	dw.AppendHeader(header)
	for i, cells := range matrix.Cells {
		row := table.Row{i}
		for _, differs := range cells {
			mark := ""
			if differs {
				mark = "x"
			}
			row = append(row, mark)
		}
		dw.AppendRow(row)
	}
	dw.Render()
}

func renderChart(w io.Writer, spec *domain.ChartSpec) {
	title := fmt.Sprintf("%s: %s", spec.Kind, spec.Title)
	switch {
	case len(spec.Slices) > 0:
		tw := newWriter(w, title)
		tw.AppendHeader(table.Row{spec.NamesColumn, spec.ValuesColumn})
		for _, s := range spec.Slices {
			tw.AppendRow(table.Row{s.Label, formatFloat(s.Value)})
		}
		tw.Render()
	case spec.Matrix != nil:
		_, _ = fmt.Fprintln(w, title)
		renderCorrelation(w, spec.Matrix)
	default:
		tw := newWriter(w, title)
		tw.AppendHeader(table.Row{spec.XColumn, spec.YColumn})
		for _, p := range spec.Points {
			tw.AppendRow(table.Row{p.X, p.Y})
		}
		tw.Render()
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "-"
	}
	return strconv.FormatFloat(math.Round(f*1e4)/1e4, 'f', -1, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
