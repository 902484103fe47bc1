package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chiRouter(h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h)
	return r
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusUnprocessableEntity, TypeInvalidColumnType, "Invalid Column Type",
		"column region is not numeric", "/api/datasets/first/charts").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, TypeInvalidColumnType, got["type"])
	assert.Equal(t, float64(422), got["status"], "extensions cannot override standard members")
	assert.Equal(t, "abc", got["trace_id"])
	assert.Equal(t, "/api/datasets/first/charts", got["instance"])
}

func TestProblemDetails_OmitsEmptyMembers(t *testing.T) {
	pd := &ProblemDetails{Type: TypeInternal, Title: "Internal Server Error", Status: 500}

	data, err := json.Marshal(pd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"/errors/internal","title":"Internal Server Error","status":500}`, string(data))

	pd.WithExtension("trace_id", "x")
	assert.Equal(t, "x", pd.Extensions["trace_id"])
}

func TestWriteProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProblem(rec, NewProblemDetails(http.StatusConflict, TypeShapeMismatch, "Shape Mismatch", "3x2 vs 4x2", ""))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ProblemContentType, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":"/errors/comparison/shape-mismatch","title":"Shape Mismatch","status":409,"detail":"3x2 vs 4x2"}`, rec.Body.String())
}

func TestProblemDetails_Render(t *testing.T) {
	r := chiRouter(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, NewProblemDetails(http.StatusTeapot, "/errors/teapot", "Teapot", "", ""))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/errors/teapot"`)
}
