package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics holds all application-specific instruments
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Dataset metrics
	DatasetUploadsTotal metric.Int64Counter
	DatasetRowsIngested metric.Int64Counter
	CleaningDuration    metric.Float64Histogram
	DuplicatesRemoved   metric.Int64Counter
	CellsImputed        metric.Int64Counter

	// Analysis metrics
	ChartsBuiltTotal metric.Int64Counter
	ComparisonsTotal metric.Int64Counter
	ExportsTotal     metric.Int64Counter

	// Auth metrics
	AuthAttemptsTotal metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
}

// CreateBusinessMetrics creates the dashboard instruments on meter
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests"},
		{&m.DatasetUploadsTotal, "dataset_uploads_total", "Total number of dataset uploads"},
		{&m.DatasetRowsIngested, "dataset_rows_ingested_total", "Rows parsed from uploaded datasets"},
		{&m.DuplicatesRemoved, "cleaning_duplicates_removed_total", "Duplicate rows removed by cleaning"},
		{&m.CellsImputed, "cleaning_cells_imputed_total", "Missing cells filled by cleaning"},
		{&m.ChartsBuiltTotal, "charts_built_total", "Total number of charts built"},
		{&m.ComparisonsTotal, "comparisons_total", "Total number of dataset comparisons"},
		{&m.ExportsTotal, "exports_total", "Total number of dataset exports"},
		{&m.AuthAttemptsTotal, "auth_attempts_total", "Total number of login and signup attempts"},
		{&m.SystemErrors, "system_errors_total", "Total number of system errors"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.CleaningDuration, err = meter.Float64Histogram(
		"cleaning_duration_seconds",
		metric.WithDescription("Time spent parsing and cleaning an upload"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RegisterSessionGauge reports the live session count on every collection
func RegisterSessionGauge(meter metric.Meter, count func() int) error {
	_, err := meter.Int64ObservableGauge(
		"active_sessions",
		metric.WithDescription("Number of live dashboard sessions"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(count()))
			return nil
		}),
	)
	return err
}

func status(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "failure")
	}
	return attribute.String("status", "success")
}

// RecordUpload records an upload and its cleaning outcome
func RecordUpload(ctx context.Context, m *BusinessMetrics, slot string, rows, duplicates, imputed int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("slot", slot), status(err))
	m.DatasetUploadsTotal.Add(ctx, 1, attrs)
	m.CleaningDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		return
	}
	m.DatasetRowsIngested.Add(ctx, int64(rows))
	m.DuplicatesRemoved.Add(ctx, int64(duplicates))
	m.CellsImputed.Add(ctx, int64(imputed))
}

// RecordChart records a chart build
func RecordChart(ctx context.Context, m *BusinessMetrics, kind string, err error) {
	if m == nil {
		return
	}
	m.ChartsBuiltTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind), status(err)))
}

// RecordComparison records a comparison and whether the shapes matched
func RecordComparison(ctx context.Context, m *BusinessMetrics, shapeMatch bool) {
	if m == nil {
		return
	}
	m.ComparisonsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("shape_match", shapeMatch)))
}

// RecordExport records an export
func RecordExport(ctx context.Context, m *BusinessMetrics, format string, err error) {
	if m == nil {
		return
	}
	m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format), status(err)))
}

// RecordAuth records a login or signup attempt
func RecordAuth(ctx context.Context, m *BusinessMetrics, action string, err error) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action), status(err)))
}

// RecordSystemError records an unexpected failure in a component
func RecordSystemError(ctx context.Context, m *BusinessMetrics, component string) {
	if m == nil {
		return
	}
	m.SystemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}
