package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"kuberdash/internal/config"
	"kuberdash/internal/dataprocessing"
	"kuberdash/internal/infrastructure"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// rootOptions holds the persistent flags and the collaborators built from
// them before a subcommand runs
type rootOptions struct {
	output      string
	logLevel    string
	placeholder string
	maxSize     int64

	logger    *slog.Logger
	files     *validation.FileValidator
	cleaner   *dataprocessing.Cleaner
	validator *validation.Validator
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tablectl",
		Short: "Clean, compare, filter, chart and export tabular datasets",
		Long: `tablectl runs the dashboard's table pipeline over local CSV and XLSX files.

Every file is parsed and cleaned first: duplicate rows are removed, missing
numbers are replaced by the column mean and missing text by a placeholder.`,
		Version: config.AppVersion,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.output, "output", "o", outputTable, "Output format (table|json)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	flags.StringVar(&opts.placeholder, "placeholder", dataprocessing.DefaultTextPlaceholder, "Replacement for missing text cells")
	flags.Int64Var(&opts.maxSize, "max-size", 200<<20, "Largest input file in bytes (0 disables the check)")

	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{outputTable, outputJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(
		newCleanCmd(opts),
		newCompareCmd(opts),
		newSummaryCmd(opts),
		newCorrCmd(opts),
		newFilterCmd(opts),
		newChartCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	switch o.output {
	case outputTable, outputJSON:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", o.output, outputTable, outputJSON)
	}

	// log lines of one run share a trace id
	cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))

	o.logger = infrastructure.WithComponent(infrastructure.NewLogger(config.LoggingConfig{
		Level:  o.logLevel,
		Format: "text",
	}, cmd.ErrOrStderr()), "tablectl")
	o.files = validation.NewFileValidator(o.logger, o.maxSize, nil)
	o.cleaner = dataprocessing.NewCleaner(o.logger, o.placeholder)
	o.validator = validation.New()
	return nil
}

// load validates, parses and cleans a dataset file
func (o *rootOptions) load(ctx context.Context, path string) (*domain.Table, domain.CleaningReport, error) {
	if err := o.files.ValidateFile(path); err != nil {
		return nil, domain.CleaningReport{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.CleaningReport{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := dataprocessing.ParseFile(filepath.Base(path), f)
	if err != nil {
		return nil, domain.CleaningReport{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	t, report := o.cleaner.CleanWithReport(raw)
	o.logger.DebugContext(ctx, "Dataset loaded",
		slog.String("file", path),
		slog.String("table", t.String()),
		slog.Int("duplicates_removed", report.DuplicatesRemoved))
	return t, report, nil
}

// loadFiltered loads a dataset and applies the filter flags to it
func (o *rootOptions) loadFiltered(ctx context.Context, path string, ff *filterFlags) (*domain.Table, *domain.TimeWindow, error) {
	state, err := ff.state(o.validator)
	if err != nil {
		return nil, nil, err
	}
	t, _, err := o.load(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return dataprocessing.Apply(t, state)
}

// filterFlags mirrors the dashboard sidebar selection
type filterFlags struct {
	search    string
	from      string
	to        string
	topColumn string
	topN      int
	columns   []string
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.search, "search", "q", "", "Keep rows where any cell contains the term")
	fs.StringVar(&f.from, "from", "", "Start of the date range on the first date column")
	fs.StringVar(&f.to, "to", "", "End of the date range (open-ended when omitted)")
	fs.StringVar(&f.topColumn, "top-column", "", "Numeric column ranked by --top-n (default: first numeric column)")
	fs.IntVar(&f.topN, "top-n", 0, "Keep the n rows with the largest values")
	fs.StringArrayVar(&f.columns, "filter", nil, "Column filter as column=value[,value...] (repeatable)")
}

func (f *filterFlags) state(v *validation.Validator) (domain.FilterState, error) {
	state := domain.FilterState{Search: f.search}

	from, to := strings.TrimSpace(f.from), strings.TrimSpace(f.to)
	if from != "" || to != "" {
		dr := domain.DateRange{To: domain.OpenEnded}
		if from != "" {
			t, ok := dataprocessing.TryParseTime(from)
			if !ok {
				return state, fmt.Errorf("--from: cannot parse %q as a date", from)
			}
			dr.From = t
		}
		if to != "" {
			t, ok := dataprocessing.TryParseTime(to)
			if !ok {
				return state, fmt.Errorf("--to: cannot parse %q as a date", to)
			}
			dr.To = t
		}
		if dr.To.Before(dr.From) {
			return state, fmt.Errorf("--to must not be before --from")
		}
		state.DateRange = &dr
	}

	if f.topN != 0 || f.topColumn != "" {
		state.TopN = &domain.TopNSelector{Column: strings.TrimSpace(f.topColumn), N: f.topN}
	}

	for _, raw := range f.columns {
		column, values, ok := strings.Cut(raw, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return state, fmt.Errorf("--filter %q: want column=value[,value...]", raw)
		}
		if state.ColumnFilters == nil {
			state.ColumnFilters = map[string][]string{}
		}
		for _, part := range strings.Split(values, ",") {
			if part = strings.TrimSpace(part); part != "" {
				state.ColumnFilters[column] = append(state.ColumnFilters[column], part)
			}
		}
	}

	if err := v.Struct(state); err != nil {
		return state, err
	}
	return state, nil
}
