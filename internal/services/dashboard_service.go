package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"kuberdash/internal/charts"
	"kuberdash/internal/dataprocessing"
	"kuberdash/internal/exporter"
	"kuberdash/internal/infrastructure"
	"kuberdash/internal/session"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

// SessionStore is the per-session state and dataset storage the dashboard
// works against. *session.Manager implements it.
type SessionStore interface {
	State(id string) (domain.AppState, error)
	Apply(id string, ev session.Event) (domain.AppState, error)
	PutTable(id string, slot domain.Slot, t *domain.Table)
	Table(id string, slot domain.Slot) (*domain.Table, bool)
}

// DashboardConfig carries the limits and defaults of the dashboard
type DashboardConfig struct {
	MaxDatasetRows int
	RowLimit       int
	TopNMax        int
	Placeholder    string
}

// DashboardService ingests, filters, charts, exports and compares the
// datasets held in a session
type DashboardService struct {
	sessions     SessionStore
	files        *validation.FileValidator
	cleaner      *dataprocessing.Cleaner
	charts       *charts.Factory
	metrics      *infrastructure.BusinessMetrics
	cfg          DashboardConfig
	defaultTable *domain.Table
	logger       *slog.Logger
}

// UploadResult describes a stored upload
type UploadResult struct {
	Slot     domain.Slot           `json:"slot"`
	Filename string                `json:"filename"`
	Shape    domain.Shape          `json:"shape"`
	Columns  []domain.Column       `json:"columns"`
	Report   domain.CleaningReport `json:"report"`
	State    domain.AppState       `json:"state"`
}

// GridResult is one page of a filtered dataset
type GridResult struct {
	Table      *domain.Table      `json:"table"`
	TotalRows  int                `json:"total_rows"`
	Truncated  bool               `json:"truncated"`
	TimeWindow *domain.TimeWindow `json:"time_window,omitempty"`
}

// NewDashboardService creates the dashboard service. metrics may be nil.
func NewDashboardService(sessions SessionStore, files *validation.FileValidator, factory *charts.Factory,
	metrics *infrastructure.BusinessMetrics, cfg DashboardConfig, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if files == nil {
		files = validation.NewFileValidator(logger, 0, nil)
	}
	if factory == nil {
		factory = charts.NewFactory(charts.DefaultLayout(), logger)
	}

	return &DashboardService{
		sessions: sessions,
		files:    files,
		cleaner:  dataprocessing.NewCleaner(logger, cfg.Placeholder),
		charts:   factory,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With(slog.String("service", "dashboard")),
	}
}

// ParseSlot validates a slot name taken from a request
func ParseSlot(s string) (domain.Slot, error) {
	slot := domain.Slot(strings.ToLower(strings.TrimSpace(s)))
	if !slot.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
	}
	return slot, nil
}

// LoadDefaultDataset reads and cleans the bundled dataset served from the
// default slot
func (s *DashboardService) LoadDefaultDataset(path string) error {
	if err := s.files.ValidateFile(path); err != nil {
		return fmt.Errorf("default dataset: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open default dataset: %w", err)
	}
	defer f.Close()

	t, err := dataprocessing.ParseFile(path, f)
	if err != nil {
		return fmt.Errorf("failed to parse default dataset: %w", err)
	}
	cleaned, report := s.cleaner.CleanWithReport(t)
	s.defaultTable = cleaned

	s.logger.Info("Default dataset loaded",
		slog.String("path", path),
		slog.Int("rows", cleaned.NumRows()),
		slog.Int("columns", cleaned.NumCols()),
		slog.Int("duplicates_removed", report.DuplicatesRemoved))
	return nil
}

// HasDefaultDataset reports whether a bundled dataset is loaded
func (s *DashboardService) HasDefaultDataset() bool {
	return s.defaultTable != nil
}

// State returns the session's application state
func (s *DashboardService) State(ctx context.Context, sessionID string) (domain.AppState, error) {
	return s.sessions.State(sessionID)
}

// ApplyEvent applies a client-submitted event. Events raised only by the
// server (login, logout, upload) are rejected.
func (s *DashboardService) ApplyEvent(ctx context.Context, sessionID string, ev session.Event) (domain.AppState, error) {
	if !ev.Type.ClientEvent() {
		return domain.AppState{}, fmt.Errorf("%w: %q cannot be submitted by clients", session.ErrInvalidEvent, ev.Type)
	}
	state, err := s.sessions.Apply(sessionID, ev)
	if err != nil {
		return state, err
	}

	s.logger.InfoContext(ctx, "Session event applied",
		slog.String("event", string(ev.Type)),
		slog.String("page", string(state.Page)),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))
	return state, nil
}

// Upload validates, parses and cleans a dataset and stores it in slot
func (s *DashboardService) Upload(ctx context.Context, sessionID string, slot domain.Slot, filename string, size int64, r io.Reader) (*UploadResult, error) {
	start := time.Now()
	result, err := s.upload(ctx, sessionID, slot, filename, size, r)

	rows, dups, imputed := 0, 0, 0
	if result != nil {
		rows = result.Report.RowsBefore
		dups = result.Report.DuplicatesRemoved
		for _, n := range result.Report.Imputed {
			imputed += n
		}
	}
	infrastructure.RecordUpload(ctx, s.metrics, string(slot), rows, dups, imputed, time.Since(start), err)

	if err != nil {
		s.logger.WarnContext(ctx, "Upload rejected",
			slog.String("slot", string(slot)),
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Dataset uploaded",
		slog.String("slot", string(slot)),
		slog.String("filename", result.Filename),
		slog.Int("rows", result.Shape.Rows),
		slog.Int("columns", result.Shape.Columns),
		slog.Int("duplicates_removed", dups),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

func (s *DashboardService) upload(ctx context.Context, sessionID string, slot domain.Slot, filename string, size int64, r io.Reader) (*UploadResult, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	if !slot.Writable() {
		return nil, fmt.Errorf("%w: %s", ErrSlotReadOnly, slot)
	}
	if err := s.files.ValidateUpload(filename, size); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := dataprocessing.ParseFile(filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if s.cfg.MaxDatasetRows > 0 && raw.NumRows() > s.cfg.MaxDatasetRows {
		return nil, fmt.Errorf("%w: %d rows exceeds the limit of %d", ErrInvalidInput, raw.NumRows(), s.cfg.MaxDatasetRows)
	}

	cleaned, report := s.cleaner.CleanWithReport(raw)
	s.sessions.PutTable(sessionID, slot, cleaned)

	state, err := s.sessions.Apply(sessionID, session.Event{Type: session.EventDatasetUploaded, Slot: slot})
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		Slot:     slot,
		Filename: filename,
		Shape:    cleaned.Shape(),
		Columns:  cleaned.Columns,
		Report:   report,
		State:    state,
	}, nil
}

// Dataset returns the cleaned table stored in slot
func (s *DashboardService) Dataset(ctx context.Context, sessionID string, slot domain.Slot) (*domain.Table, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}

	if slot == domain.SlotDefault {
		state, err := s.sessions.State(sessionID)
		if err != nil {
			return nil, err
		}
		if !state.ShowDefault {
			return nil, ErrDefaultRemoved
		}
		if s.defaultTable == nil {
			return nil, fmt.Errorf("%w: no default dataset configured", ErrDatasetNotFound)
		}
		return s.defaultTable, nil
	}

	t, ok := s.sessions.Table(sessionID, slot)
	if !ok {
		return nil, fmt.Errorf("%w: nothing uploaded to %s", ErrDatasetNotFound, slot)
	}
	return t, nil
}

func (s *DashboardService) filtered(ctx context.Context, sessionID string, slot domain.Slot, filter domain.FilterState) (*domain.Table, *domain.TimeWindow, error) {
	t, err := s.Dataset(ctx, sessionID, slot)
	if err != nil {
		return nil, nil, err
	}
	if filter.TopN != nil && s.cfg.TopNMax > 0 && filter.TopN.N > s.cfg.TopNMax {
		return nil, nil, fmt.Errorf("%w: top_n must not exceed %d", ErrInvalidInput, s.cfg.TopNMax)
	}
	return dataprocessing.Apply(t, filter)
}

// Grid applies filter to the dataset and returns at most limit rows. A limit
// of zero falls back to the configured row limit, which may be unlimited.
func (s *DashboardService) Grid(ctx context.Context, sessionID string, slot domain.Slot, filter domain.FilterState, limit int) (*GridResult, error) {
	out, window, err := s.filtered(ctx, sessionID, slot, filter)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.cfg.RowLimit
	}
	total := out.NumRows()
	if limit > 0 && total > limit {
		out = out.Head(limit)
	}

	return &GridResult{
		Table:      out,
		TotalRows:  total,
		Truncated:  out.NumRows() < total,
		TimeWindow: window,
	}, nil
}

// Summary computes the summary cards of the filtered dataset
func (s *DashboardService) Summary(ctx context.Context, sessionID string, slot domain.Slot, filter domain.FilterState) (domain.Summary, error) {
	out, _, err := s.filtered(ctx, sessionID, slot, filter)
	if err != nil {
		return domain.Summary{}, err
	}
	return dataprocessing.Summarize(out)
}

// Chart builds a chart of the filtered dataset
func (s *DashboardService) Chart(ctx context.Context, sessionID string, slot domain.Slot, req domain.ChartRequest, filter domain.FilterState) (*domain.ChartSpec, error) {
	out, _, err := s.filtered(ctx, sessionID, slot, filter)
	if err != nil {
		return nil, err
	}

	spec, err := s.charts.Build(out, req)
	infrastructure.RecordChart(ctx, s.metrics, string(req.Kind), err)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Chart built",
		slog.String("slot", string(slot)),
		slog.String("kind", string(req.Kind)),
		slog.Int("rows", out.NumRows()))
	return spec, nil
}

// RenderChart builds a chart and draws it as an image onto w
func (s *DashboardService) RenderChart(ctx context.Context, w io.Writer, sessionID string, slot domain.Slot, req domain.ChartRequest, filter domain.FilterState, format charts.ImageFormat) error {
	spec, err := s.Chart(ctx, sessionID, slot, req, filter)
	if err != nil {
		return err
	}
	return charts.Render(w, spec, format)
}

// Correlation returns the pairwise correlation table of the numeric columns
func (s *DashboardService) Correlation(ctx context.Context, sessionID string, slot domain.Slot, filter domain.FilterState) (*domain.Table, error) {
	out, _, err := s.filtered(ctx, sessionID, slot, filter)
	if err != nil {
		return nil, err
	}
	return s.charts.CorrelationMatrix(out)
}

// Export writes the filtered dataset to w in format
func (s *DashboardService) Export(ctx context.Context, w io.Writer, sessionID string, slot domain.Slot, format exporter.Format, filter domain.FilterState) error {
	out, _, err := s.filtered(ctx, sessionID, slot, filter)
	if err == nil {
		if err = exporter.Export(w, out, format); err != nil {
			infrastructure.RecordSystemError(ctx, s.metrics, "exporter")
		}
	}
	infrastructure.RecordExport(ctx, s.metrics, string(format), err)
	return err
}

// DownloadLink renders the filtered dataset as an HTML download anchor
func (s *DashboardService) DownloadLink(ctx context.Context, sessionID string, slot domain.Slot, format exporter.Format, filename string, filter domain.FilterState) (string, error) {
	out, _, err := s.filtered(ctx, sessionID, slot, filter)
	if err != nil {
		return "", err
	}
	if filename == "" {
		filename = out.Name
	}

	link, err := exporter.DownloadLink(out, filename, format)
	infrastructure.RecordExport(ctx, s.metrics, string(format), err)
	return link, err
}

// Compare compares the datasets of the first and second slots
func (s *DashboardService) Compare(ctx context.Context, sessionID string) (domain.ComparisonResult, error) {
	first, err := s.Dataset(ctx, sessionID, domain.SlotFirst)
	if err != nil {
		return domain.ComparisonResult{}, err
	}
	second, err := s.Dataset(ctx, sessionID, domain.SlotSecond)
	if err != nil {
		return domain.ComparisonResult{}, err
	}

	result := dataprocessing.Compare(first, second)
	infrastructure.RecordComparison(ctx, s.metrics, !result.ShapeDiff)

	attrs := []any{
		slog.Bool("shape_diff", result.ShapeDiff),
		slog.Int("common_columns", len(result.CommonColumns)),
	}
	if n, err := result.Differences(); err == nil {
		attrs = append(attrs, slog.Int("differences", n))
	}
	s.logger.InfoContext(ctx, "Datasets compared", attrs...)
	return result, nil
}
