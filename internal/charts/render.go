package charts

import (
	"fmt"
	"io"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"kuberdash/pkg/contracts/domain"
)

// ImageFormat is an output format of the renderer
type ImageFormat string

const (
	FormatPNG ImageFormat = "png"
	FormatSVG ImageFormat = "svg"
)

// ParseImageFormat validates a requested image format
func ParseImageFormat(s string) (ImageFormat, error) {
	switch ImageFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("%w: image format %q", domain.ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of the format
func (f ImageFormat) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f ImageFormat) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

var lineStyle = chart.Style{
	StrokeColor: drawing.ColorFromHex("636efa"),
	StrokeWidth: 2,
	DotWidth:    3,
	DotColor:    drawing.ColorFromHex("636efa"),
}

// Render draws line, bar and pie specs as an image. Heatmaps and
// correlation matrices are served as data only.
func Render(w io.Writer, spec *domain.ChartSpec, format ImageFormat) error {
	switch format {
	case FormatPNG, FormatSVG:
	default:
		return fmt.Errorf("%w: image format %q", domain.ErrUnsupportedFormat, format)
	}

	var err error
	switch spec.Kind {
	case domain.ChartLine:
		err = renderLine(w, spec, format)
	case domain.ChartBar:
		err = renderBar(w, spec, format)
	case domain.ChartPie:
		err = renderPie(w, spec, format)
	default:
		return fmt.Errorf("%w: %s charts cannot be rendered as images", domain.ErrUnsupportedChart, spec.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to render %s chart: %w", spec.Kind, err)
	}
	return nil
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

func renderLine(w io.Writer, spec *domain.ChartSpec, format ImageFormat) error {
	series, xAxis, ys, err := lineSeries(spec)
	if err != nil {
		return err
	}
	yAxis := chart.YAxis{Name: spec.YColumn}
	if lo, hi := minMax(ys); lo == hi {
		yAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	ch := chart.Chart{
		Title:      spec.Title,
		Width:      spec.Layout.Width,
		Height:     spec.Layout.Height,
		Background: background(),
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series:     []chart.Series{series},
	}
	return ch.Render(format.provider(), w)
}

// lineSeries converts the points with a present y into a go-chart series.
// go-chart needs two distinct x values, so a single point is padded.
func lineSeries(spec *domain.ChartSpec) (chart.Series, chart.XAxis, []float64, error) {
	xAxis := chart.XAxis{Name: spec.XColumn}

	switch spec.XType {
	case domain.ColumnTemporal:
		var xs []time.Time
		var ys []float64
		for _, p := range spec.Points {
			y, ok := p.Y.(float64)
			s, isStr := p.X.(string)
			if !ok || !isStr {
				continue
			}
			ts, err := time.Parse(time.RFC3339, s)
			if err != nil {
				continue
			}
			xs = append(xs, ts)
			ys = append(ys, y)
		}
		if len(xs) == 0 {
			return nil, xAxis, nil, fmt.Errorf("%w: no points to draw", domain.ErrInsufficientData)
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(time.Hour))
			ys = append(ys, ys[0])
		}
		xAxis.ValueFormatter = chart.TimeDateValueFormatter
		return chart.TimeSeries{Name: spec.YColumn, XValues: xs, YValues: ys, Style: lineStyle}, xAxis, ys, nil

	case domain.ColumnNumeric:
		var xs, ys []float64
		for _, p := range spec.Points {
			x, okX := p.X.(float64)
			y, okY := p.Y.(float64)
			if !okX || !okY {
				continue
			}
			xs = append(xs, x)
			ys = append(ys, y)
		}
		if len(xs) == 0 {
			return nil, xAxis, nil, fmt.Errorf("%w: no points to draw", domain.ErrInsufficientData)
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		if lo, hi := minMax(xs); lo == hi {
			xAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
		}
		return chart.ContinuousSeries{Name: spec.YColumn, XValues: xs, YValues: ys, Style: lineStyle}, xAxis, ys, nil

	default:
		// categories are placed at their row position and labelled with ticks
		var xs, ys []float64
		var ticks []chart.Tick
		for i, p := range spec.Points {
			y, ok := p.Y.(float64)
			if !ok {
				continue
			}
			xs = append(xs, float64(i))
			ys = append(ys, y)
			ticks = append(ticks, chart.Tick{Value: float64(i), Label: labelOf(p.X)})
		}
		if len(xs) == 0 {
			return nil, xAxis, nil, fmt.Errorf("%w: no points to draw", domain.ErrInsufficientData)
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
			ticks = append(ticks, chart.Tick{Value: xs[1], Label: ""})
		}
		xAxis.Ticks = ticks
		return chart.ContinuousSeries{Name: spec.YColumn, XValues: xs, YValues: ys, Style: lineStyle}, xAxis, ys, nil
	}
}

func renderBar(w io.Writer, spec *domain.ChartSpec, format ImageFormat) error {
	bars := make([]chart.Value, 0, len(spec.Points))
	for _, p := range spec.Points {
		y, ok := p.Y.(float64)
		if !ok {
			continue
		}
		bars = append(bars, chart.Value{Value: y, Label: labelOf(p.X)})
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars to draw", domain.ErrInsufficientData)
	}

	barWidth := spec.Layout.Width / (2 * len(bars))
	if barWidth < 4 {
		barWidth = 4
	}
	bc := chart.BarChart{
		Title:      spec.Title,
		Width:      spec.Layout.Width,
		Height:     spec.Layout.Height,
		Background: background(),
		BarWidth:   barWidth,
		Bars:       bars,
	}
	return bc.Render(format.provider(), w)
}

func renderPie(w io.Writer, spec *domain.ChartSpec, format ImageFormat) error {
	values := make([]chart.Value, 0, len(spec.Slices))
	total := 0.0
	for _, s := range spec.Slices {
		if s.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{Value: s.Value, Label: s.Label})
		total += s.Value
	}
	if len(values) == 0 || total == 0 {
		return fmt.Errorf("%w: pie has no positive slices", domain.ErrInsufficientData)
	}
	pc := chart.PieChart{
		Title:  spec.Title,
		Width:  spec.Layout.Width,
		Height: spec.Layout.Height,
		Values: values,
	}
	return pc.Render(format.provider(), w)
}

func minMax(vs []float64) (lo, hi float64) {
	for i, v := range vs {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi
}

func labelOf(x any) string {
	if x == nil {
		return "(missing)"
	}
	switch v := x.(type) {
	case string:
		return v
	case float64:
		return domain.Number(v).Format(domain.ColumnNumeric)
	default:
		return fmt.Sprint(v)
	}
}
