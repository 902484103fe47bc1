package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuberdash/internal/charts"
	"kuberdash/internal/services"
	"kuberdash/internal/shared/testutil"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

type datasetFixture struct {
	sessions *testSessions
	router   http.Handler
}

func newDatasetFixture(t *testing.T) *datasetFixture {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	sessions := newTestSessions(t)

	svc := services.NewDashboardService(sessions.mgr,
		validation.NewFileValidator(logger, 1<<20, nil),
		charts.NewFactory(charts.DefaultLayout(), logger),
		nil,
		services.DashboardConfig{MaxDatasetRows: 1000, TopNMax: 50},
		logger)

	h := NewDatasetHandler(svc, validation.New(), 1<<20, logger, newErrorHandler(t))
	return &datasetFixture{
		sessions: sessions,
		router: newRouter(sessions, map[string]http.Handler{
			"/api/datasets": h.Routes(),
			"/api/compare":  h.CompareRoutes(),
		}),
	}
}

func (f *datasetFixture) upload(t *testing.T, slot, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := testutil.MultipartFile(t, "file", filename, []byte(content))
	return do(t, f.router, http.MethodPost, "/api/datasets/"+slot, body, contentType)
}

func TestDatasetHandler_UploadAndGrid(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleAnalyst)

	rec := f.upload(t, "static", "sales.csv", testutil.SalesCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded struct {
		Slot   domain.Slot           `json:"slot"`
		Shape  domain.Shape          `json:"shape"`
		Report domain.CleaningReport `json:"report"`
		State  domain.AppState       `json:"state"`
	}
	decodeEnvelope(t, rec, &uploaded)
	assert.Equal(t, domain.SlotStatic, uploaded.Slot)
	assert.Equal(t, domain.Shape{Rows: 4, Columns: 4}, uploaded.Shape)
	assert.Equal(t, 1, uploaded.Report.DuplicatesRemoved)
	assert.True(t, uploaded.State.Uploaded[domain.SlotStatic])

	rec = do(t, f.router, http.MethodGet, "/api/datasets/static", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var grid struct {
		Table struct {
			Shape domain.Shape `json:"shape"`
			Rows  [][]any      `json:"rows"`
		} `json:"table"`
		TotalRows int  `json:"total_rows"`
		Truncated bool `json:"truncated"`
	}
	decodeEnvelope(t, rec, &grid)
	assert.Equal(t, 4, grid.TotalRows)
	assert.False(t, grid.Truncated)
	assert.Len(t, grid.Table.Rows, 4)
}

func TestDatasetHandler_GridFilters(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleAnalyst)
	require.Equal(t, http.StatusCreated, f.upload(t, "static", "sales.csv", testutil.SalesCSV).Code)

	tests := []struct {
		name      string
		query     string
		wantRows  int
		wantTotal int
	}{
		{name: "column filter", query: "filter.region=North,East", wantRows: 2, wantTotal: 2},
		{name: "search", query: "q=south", wantRows: 1, wantTotal: 1},
		{name: "top n", query: "top_column=sales&top_n=2", wantRows: 2, wantTotal: 2},
		{name: "open ended date range", query: "from=2024-01-03", wantRows: 2, wantTotal: 2},
		{name: "row limit", query: "limit=3", wantRows: 3, wantTotal: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.router, http.MethodGet, "/api/datasets/static?"+tt.query, nil, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var grid struct {
				Table struct {
					Rows [][]any `json:"rows"`
				} `json:"table"`
				TotalRows int `json:"total_rows"`
			}
			decodeEnvelope(t, rec, &grid)
			assert.Len(t, grid.Table.Rows, tt.wantRows)
			assert.Equal(t, tt.wantTotal, grid.TotalRows)
		})
	}
}

func TestDatasetHandler_Errors(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleAnalyst)
	require.Equal(t, http.StatusCreated, f.upload(t, "static", "sales.csv", testutil.SalesCSV).Code)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{name: "unknown slot", method: http.MethodGet, target: "/api/datasets/third", wantStatus: http.StatusBadRequest},
		{name: "empty slot", method: http.MethodGet, target: "/api/datasets/first", wantStatus: http.StatusNotFound},
		{name: "no default dataset", method: http.MethodGet, target: "/api/datasets/default", wantStatus: http.StatusNotFound},
		{name: "to before from", method: http.MethodGet, target: "/api/datasets/static?from=2024-02-01&to=2024-01-01", wantStatus: http.StatusBadRequest},
		{name: "bad date", method: http.MethodGet, target: "/api/datasets/static?from=yesterday", wantStatus: http.StatusBadRequest},
		{name: "bad top n", method: http.MethodGet, target: "/api/datasets/static?top_column=sales&top_n=many", wantStatus: http.StatusBadRequest},
		{name: "unknown filter column", method: http.MethodGet, target: "/api/datasets/static?filter.city=Paris", wantStatus: http.StatusUnprocessableEntity},
		{name: "bad export format", method: http.MethodGet, target: "/api/datasets/static/export?format=pdf", wantStatus: http.StatusBadRequest},
		{name: "compare without datasets", method: http.MethodGet, target: "/api/compare", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.router, tt.method, tt.target, nil, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantStatus, decodeProblem(t, rec).Status)
		})
	}
}

func TestDatasetHandler_UploadRejected(t *testing.T) {
	tests := []struct {
		name       string
		role       domain.Role
		slot       string
		filename   string
		wantStatus int
	}{
		{name: "anonymous", slot: "first", filename: "sales.csv", wantStatus: http.StatusUnauthorized},
		{name: "viewer", role: domain.RoleViewer, slot: "first", filename: "sales.csv", wantStatus: http.StatusForbidden},
		{name: "default slot", role: domain.RoleAnalyst, slot: "default", filename: "sales.csv", wantStatus: http.StatusForbidden},
		{name: "text file", role: domain.RoleAnalyst, slot: "first", filename: "sales.txt", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDatasetFixture(t)
			if tt.role != "" {
				f.sessions.login(t, tt.role)
			}
			rec := f.upload(t, tt.slot, tt.filename, testutil.SalesCSV)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestDatasetHandler_UploadMissingFilePart(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleAnalyst)

	body, contentType := testutil.MultipartFile(t, "attachment", "sales.csv", []byte(testutil.SalesCSV))
	rec := do(t, f.router, http.MethodPost, "/api/datasets/first", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetHandler_Summary(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleAnalyst)
	require.Equal(t, http.StatusCreated, f.upload(t, "static", "sales.csv", testutil.SalesCSV).Code)

	rec := do(t, f.router, http.MethodGet, "/api/datasets/static/summary", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary domain.Summary
	decodeEnvelope(t, rec, &summary)
	assert.Equal(t, 4, summary.Count)
}

func TestDatasetHandler_Chart(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleAnalyst)
	require.Equal(t, http.StatusCreated, f.upload(t, "static", "sales.csv", testutil.SalesCSV).Code)

	t.Run("spec", func(t *testing.T) {
		rec := do(t, f.router, http.MethodPost, "/api/datasets/static/charts",
			strings.NewReader(`{"kind":"bar","x":"region","y":"sales"}`), "application/json")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var spec struct {
			Kind domain.ChartKind `json:"kind"`
		}
		decodeEnvelope(t, rec, &spec)
		assert.Equal(t, domain.ChartBar, spec.Kind)
	})

	t.Run("png", func(t *testing.T) {
		rec := do(t, f.router, http.MethodPost, "/api/datasets/static/charts?render=png",
			strings.NewReader(`{"kind":"bar","x":"region","y":"sales"}`), "application/json")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	})

	t.Run("invalid request", func(t *testing.T) {
		rec := do(t, f.router, http.MethodPost, "/api/datasets/static/charts",
			strings.NewReader(`{"kind":"bar"}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("text column on y axis", func(t *testing.T) {
		rec := do(t, f.router, http.MethodPost, "/api/datasets/static/charts",
			strings.NewReader(`{"kind":"line","x":"date","y":"region"}`), "application/json")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unknown render format", func(t *testing.T) {
		rec := do(t, f.router, http.MethodPost, "/api/datasets/static/charts?render=gif",
			strings.NewReader(`{"kind":"bar","x":"region","y":"sales"}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDatasetHandler_Correlation(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleAnalyst)
	require.Equal(t, http.StatusCreated, f.upload(t, "static", "sales.csv", testutil.SalesCSV).Code)

	rec := do(t, f.router, http.MethodGet, "/api/datasets/static/correlation", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var corr struct {
		Shape domain.Shape `json:"shape"`
	}
	decodeEnvelope(t, rec, &corr)
	assert.Equal(t, 2, corr.Shape.Rows)
}

func TestDatasetHandler_Export(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleViewer)

	// viewers may download but not upload, so seed the slot directly
	f.sessions.mgr.PutTable(f.sessions.id, domain.SlotStatic, testutil.SalesTable())

	t.Run("csv", func(t *testing.T) {
		rec := do(t, f.router, http.MethodGet, "/api/datasets/static/export?format=csv", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=sales.csv`)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "date,region,sales,units\n"))
	})

	t.Run("excel with filename", func(t *testing.T) {
		rec := do(t, f.router, http.MethodGet, "/api/datasets/static/export?format=excel&filename=report", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=report.xlsx`)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
	})

	t.Run("download link", func(t *testing.T) {
		rec := do(t, f.router, http.MethodGet, "/api/datasets/static/download-link?format=csv&filename=report", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out map[string]string
		decodeEnvelope(t, rec, &out)
		assert.Contains(t, out["link"], `href="data:file/csv;base64,`)
		assert.Contains(t, out["link"], `download="report.csv"`)
	})

	t.Run("unsafe filename", func(t *testing.T) {
		rec := do(t, f.router, http.MethodGet, "/api/datasets/static/download-link?filename=..%2Fetc", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDatasetHandler_Compare(t *testing.T) {
	f := newDatasetFixture(t)
	f.sessions.login(t, domain.RoleAnalyst)
	require.Equal(t, http.StatusCreated, f.upload(t, "first", "sales.csv", testutil.SalesCSV).Code)
	require.Equal(t, http.StatusCreated, f.upload(t, "second", "inventory.csv", testutil.InventoryCSV).Code)

	rec := do(t, f.router, http.MethodGet, "/api/compare", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		ShapeDiff     bool     `json:"shape_diff"`
		CommonColumns []string `json:"common_columns"`
		Differences   *int     `json:"differences"`
	}
	decodeEnvelope(t, rec, &result)
	assert.True(t, result.ShapeDiff)
	assert.ElementsMatch(t, []string{"region", "units"}, result.CommonColumns)
	assert.Nil(t, result.Differences)
}
