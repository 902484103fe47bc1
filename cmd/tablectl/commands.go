package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kuberdash/internal/charts"
	"kuberdash/internal/dataprocessing"
	"kuberdash/internal/exporter"
	"kuberdash/pkg/contracts/domain"
)

func newCleanCmd(opts *rootOptions) *cobra.Command {
	var (
		out  string
		rows int
	)

	cmd := &cobra.Command{
		Use:   "clean FILE",
		Short: "Remove duplicate rows and fill missing cells",
		Example: `  # Show the cleaning report and the first rows
  tablectl clean sales.csv

  # Write the cleaned table as a workbook
  tablectl clean sales.csv --out cleaned.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, report, err := opts.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out != "" {
				format, err := formatFromPath(out)
				if err != nil {
					return err
				}
				if err := opts.writeFile(out, t, format); err != nil {
					return err
				}
			}
			return opts.print(cmd, map[string]any{"report": report, "table": t}, func(w io.Writer) {
				renderReport(w, report)
				renderTable(w, t, rows)
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the cleaned table to this .csv or .xlsx file")
	cmd.Flags().IntVarP(&rows, "rows", "n", 20, "Rows to print (0 prints all)")
	return cmd
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare FILE1 FILE2",
		Short: "Compare the shape, columns and cells of two datasets",
		Long: `Compare two cleaned datasets. Column sets are always reported; the
cell-by-cell difference matrix is only computed when both shapes match.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			first, _, err := opts.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			second, _, err := opts.load(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			result := dataprocessing.Compare(first, second)
			return opts.print(cmd, result, func(w io.Writer) {
				renderComparison(w, result)
			})
		},
	}
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	ff := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "summary FILE",
		Short: "Print the summary cards and per-column statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, err := opts.loadFiltered(cmd.Context(), args[0], ff)
			if err != nil {
				return err
			}
			summary, err := dataprocessing.Summarize(t)
			if err != nil {
				return err
			}
			stats := dataprocessing.Describe(t)
			return opts.print(cmd, map[string]any{"summary": summary, "columns": stats}, func(w io.Writer) {
				renderSummary(w, summary, stats)
			})
		},
	}

	ff.register(cmd.Flags())
	return cmd
}

func newCorrCmd(opts *rootOptions) *cobra.Command {
	ff := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "corr FILE",
		Short: "Print the Pearson correlation matrix of the numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, err := opts.loadFiltered(cmd.Context(), args[0], ff)
			if err != nil {
				return err
			}
			matrix, err := dataprocessing.Correlate(t)
			if err != nil {
				return err
			}
			return opts.print(cmd, matrix, func(w io.Writer) {
				renderCorrelation(w, matrix)
			})
		},
	}

	ff.register(cmd.Flags())
	return cmd
}

func newFilterCmd(opts *rootOptions) *cobra.Command {
	var limit int
	ff := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Apply search, date range, column and top-n filters",
		Example: `  # Rows mentioning "north" in January
  tablectl filter sales.csv -q north --from 2024-01-01 --to 2024-01-31

  # The three best-selling rows of two regions
  tablectl filter sales.csv --filter region=North,East --top-column sales --top-n 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, window, err := opts.loadFiltered(cmd.Context(), args[0], ff)
			if err != nil {
				return err
			}
			return opts.print(cmd, map[string]any{"rows": t.NumRows(), "table": t, "time_window": window}, func(w io.Writer) {
				if window != nil {
					_, _ = fmt.Fprintf(w, "%s: %s to %s\n", window.Column,
						window.Min.Format("2006-01-02"), window.Max.Format("2006-01-02"))
				}
				renderTable(w, t, limit)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Rows to print (0 prints all)")
	ff.register(cmd.Flags())
	return cmd
}

func newChartCmd(opts *rootOptions) *cobra.Command {
	var (
		req           domain.ChartRequest
		kind          string
		renderAs      string
		out           string
		width, height int
	)
	ff := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "chart FILE",
		Short: "Build a chart specification or render it as an image",
		Example: `  # Line chart specification as JSON
  tablectl chart sales.csv --kind line --x date --y sales -o json

  # Pie chart rendered to SVG
  tablectl chart sales.csv --kind pie --values sales --names region --render svg --out sales.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Kind = domain.ChartKind(strings.ToLower(kind))
			if err := opts.validator.Struct(req); err != nil {
				return err
			}

			var format charts.ImageFormat
			if renderAs != "" {
				var err error
				if format, err = charts.ParseImageFormat(renderAs); err != nil {
					return err
				}
				if out == "" {
					return fmt.Errorf("--render requires --out")
				}
			}

			t, _, err := opts.loadFiltered(cmd.Context(), args[0], ff)
			if err != nil {
				return err
			}

			layout := charts.DefaultLayout()
			layout.Width, layout.Height = width, height
			spec, err := charts.NewFactory(layout, opts.logger).Build(t, req)
			if err != nil {
				return err
			}

			if format != "" {
				if err := opts.renderFile(out, spec, format); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
				return nil
			}
			return opts.print(cmd, spec, func(w io.Writer) {
				renderChart(w, spec)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&kind, "kind", "", "Chart kind (line|bar|pie|heatmap|correlation-matrix)")
	flags.StringVar(&req.X, "x", "", "X axis column (line, bar)")
	flags.StringVar(&req.Y, "y", "", "Numeric Y axis column (line, bar)")
	flags.StringVar(&req.Values, "values", "", "Numeric slice size column (pie)")
	flags.StringVar(&req.Names, "names", "", "Slice label column (pie)")
	flags.StringVar(&req.Title, "title", "", "Chart title")
	flags.StringVar(&renderAs, "render", "", "Render an image instead of printing the spec (png|svg)")
	flags.StringVar(&out, "out", "", "Image output path")
	flags.IntVar(&width, "width", charts.DefaultLayout().Width, "Chart width in pixels")
	flags.IntVar(&height, "height", charts.DefaultLayout().Height, "Chart height in pixels")
	ff.register(flags)
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		formatName string
		out        string
		link       bool
	)
	ff := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export the cleaned, filtered table as CSV or Excel",
		Example: `  # Cleaned workbook next to the input
  tablectl export sales.csv --format excel

  # HTML download link with the file embedded
  tablectl export sales.csv --link`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := exporter.ParseFormat(formatName)
			if err != nil {
				return err
			}
			t, _, err := opts.loadFiltered(cmd.Context(), args[0], ff)
			if err != nil {
				return err
			}

			if link {
				anchor, err := exporter.DownloadLink(t, exportName(out, t), format)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), anchor)
				return nil
			}

			if out == "" {
				out = format.Filename(t.Name)
			}
			if err := opts.writeFile(out, t, format); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", t.NumRows(), out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&formatName, "format", "f", string(exporter.FormatCSV), "Export format (csv|excel)")
	flags.StringVar(&out, "out", "", "Output path (default: <dataset name>.<ext> in the working directory)")
	flags.BoolVar(&link, "link", false, "Print an HTML download link instead of writing a file")
	ff.register(flags)
	return cmd
}

// exportName is the link filename: the --out base name, else the table name
func exportName(out string, t *domain.Table) string {
	if out != "" {
		return filepath.Base(out)
	}
	return t.Name
}

// formatFromPath picks the export format from a file extension
func formatFromPath(path string) (exporter.Format, error) {
	return exporter.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

func (o *rootOptions) writeFile(path string, t *domain.Table, format exporter.Format) error {
	if err := o.files.ValidateOutputDirectory(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exporter.Export(f, t, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	o.logger.Info("Table exported",
		slog.String("file", path),
		slog.String("format", string(format)),
		slog.Int("rows", t.NumRows()))
	return nil
}

func (o *rootOptions) renderFile(path string, spec *domain.ChartSpec, format charts.ImageFormat) error {
	if err := o.files.ValidateOutputDirectory(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := charts.Render(f, spec, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
