package charts

import (
	"fmt"
	"log/slog"
	"math"

	"kuberdash/internal/dataprocessing"
	"kuberdash/pkg/contracts/domain"
)

// Layout defaults
const (
	DefaultTemplate  = "plotly_white"
	DefaultHoverMode = "x unified"
	DefaultWidth     = 800
	DefaultHeight    = 500
)

// DefaultLayout returns the standard chart layout
func DefaultLayout() domain.ChartLayout {
	return domain.ChartLayout{
		Template:  DefaultTemplate,
		HoverMode: DefaultHoverMode,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
	}
}

// Factory builds chart specifications from tables. It never modifies the
// tables it reads.
type Factory struct {
	layout domain.ChartLayout
	logger *slog.Logger
}

// NewFactory creates a chart factory. Zero layout fields take the defaults.
func NewFactory(layout domain.ChartLayout, logger *slog.Logger) *Factory {
	def := DefaultLayout()
	if layout.Template == "" {
		layout.Template = def.Template
	}
	if layout.HoverMode == "" {
		layout.HoverMode = def.HoverMode
	}
	if layout.Width <= 0 {
		layout.Width = def.Width
	}
	if layout.Height <= 0 {
		layout.Height = def.Height
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		layout: layout,
		logger: logger.With(slog.String("component", "chart_factory")),
	}
}

// Layout returns the layout applied to every chart
func (f *Factory) Layout() domain.ChartLayout {
	return f.layout
}

// Build dispatches a chart request to the matching constructor
func (f *Factory) Build(t *domain.Table, req domain.ChartRequest) (*domain.ChartSpec, error) {
	switch req.Kind {
	case domain.ChartLine:
		return f.LineChart(t, req.X, req.Y, req.Title)
	case domain.ChartBar:
		return f.BarChart(t, req.X, req.Y, req.Title)
	case domain.ChartPie:
		return f.PieChart(t, req.Values, req.Names, req.Title)
	case domain.ChartHeatmap:
		return f.Heatmap(t, req.Title)
	case domain.ChartCorrelation:
		spec, err := f.Heatmap(t, req.Title)
		if err != nil {
			return nil, err
		}
		spec.Kind = domain.ChartCorrelation
		return spec, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedChart, req.Kind)
	}
}

// LineChart plots one point per row, x from any column and y from a numeric
// column
func (f *Factory) LineChart(t *domain.Table, x, y, title string) (*domain.ChartSpec, error) {
	if title == "" {
		title = fmt.Sprintf("%s vs %s", y, x)
	}
	return f.xyChart(domain.ChartLine, t, x, y, title)
}

// BarChart plots one bar per row. Repeated x categories are not aggregated.
func (f *Factory) BarChart(t *domain.Table, x, y, title string) (*domain.ChartSpec, error) {
	if title == "" {
		title = fmt.Sprintf("%s by %s", y, x)
	}
	return f.xyChart(domain.ChartBar, t, x, y, title)
}

func (f *Factory) xyChart(kind domain.ChartKind, t *domain.Table, x, y, title string) (*domain.ChartSpec, error) {
	xc, err := t.Column(x)
	if err != nil {
		return nil, err
	}
	yc, err := numericColumn(t, y)
	if err != nil {
		return nil, err
	}

	points := make([]domain.ChartPoint, t.NumRows())
	for i := range points {
		points[i] = domain.ChartPoint{
			X: xc.Values[i].Interface(xc.Type),
			Y: yc.Values[i].Interface(yc.Type),
		}
	}

	f.logger.Debug("chart built",
		slog.String("kind", string(kind)),
		slog.String("x", x),
		slog.String("y", y),
		slog.Int("points", len(points)))

	return &domain.ChartSpec{
		Kind:    kind,
		Title:   title,
		XColumn: x,
		YColumn: y,
		XType:   xc.Type,
		Points:  points,
		Layout:  f.layout,
	}, nil
}

// PieChart sums the values column per label of the names column. Missing
// values are skipped; negative values are rejected.
func (f *Factory) PieChart(t *domain.Table, values, names, title string) (*domain.ChartSpec, error) {
	vc, err := numericColumn(t, values)
	if err != nil {
		return nil, err
	}
	nc, err := t.Column(names)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = fmt.Sprintf("%s by %s", values, names)
	}

	index := make(map[string]int)
	var slices []domain.PieSlice
	for i, v := range vc.Values {
		if v.Null {
			continue
		}
		if v.Num < 0 || math.IsInf(v.Num, 0) {
			return nil, fmt.Errorf("%w: pie values in %q must be finite and non-negative, row %d is %v",
				domain.ErrInvalidColumnType, values, i, v.Num)
		}
		label := nc.Values[i].Format(nc.Type)
		if pos, ok := index[label]; ok {
			slices[pos].Value += v.Num
			continue
		}
		index[label] = len(slices)
		slices = append(slices, domain.PieSlice{Label: label, Value: v.Num})
	}

	return &domain.ChartSpec{
		Kind:         domain.ChartPie,
		Title:        title,
		ValuesColumn: values,
		NamesColumn:  names,
		Slices:       slices,
		Layout:       f.layout,
	}, nil
}

// Heatmap describes the Pearson correlation matrix of the numeric columns
func (f *Factory) Heatmap(t *domain.Table, title string) (*domain.ChartSpec, error) {
	matrix, err := dataprocessing.Correlate(t)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Correlation Heatmap"
	}
	return &domain.ChartSpec{
		Kind:   domain.ChartHeatmap,
		Title:  title,
		Matrix: matrix,
		Layout: f.layout,
	}, nil
}

// CorrelationMatrix returns the correlation matrix as a table. The first
// column, "column", labels the rows.
func (f *Factory) CorrelationMatrix(t *domain.Table) (*domain.Table, error) {
	return CorrelationTable(t)
}

// CorrelationTable is CorrelationMatrix without a factory
func CorrelationTable(t *domain.Table) (*domain.Table, error) {
	matrix, err := dataprocessing.Correlate(t)
	if err != nil {
		return nil, err
	}

	cols := make([]domain.Column, 0, len(matrix.Columns)+1)
	cols = append(cols, domain.TextColumn(labelColumn(matrix.Columns), matrix.Columns...))
	for j, name := range matrix.Columns {
		vals := make([]float64, len(matrix.Columns))
		for i := range matrix.Columns {
			vals[i] = float64(matrix.Values[i][j])
		}
		cols = append(cols, domain.NumberColumn(name, vals...))
	}
	return domain.NewTable("correlation", cols...)
}

// labelColumn avoids a clash with a numeric column already called "column"
func labelColumn(names []string) string {
	label := "column"
	for {
		clash := false
		for _, n := range names {
			if n == label {
				clash = true
				break
			}
		}
		if !clash {
			return label
		}
		label = "_" + label
	}
}

func numericColumn(t *domain.Table, name string) (*domain.Column, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Type != domain.ColumnNumeric {
		return nil, fmt.Errorf("%w: column %q is %s, expected numeric", domain.ErrInvalidColumnType, name, col.Type)
	}
	return col, nil
}
