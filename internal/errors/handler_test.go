package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuberdash/internal/infrastructure"
	"kuberdash/internal/security"
	"kuberdash/internal/services"
	"kuberdash/internal/session"
	"kuberdash/internal/shared/testutil"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestNewErrorHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	h := NewErrorHandler(logger, true)
	assert.True(t, h.includeStack)
	assert.NotNil(t, h.logger)

	assert.NotNil(t, NewErrorHandler(nil, false).logger)
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	h := NewErrorHandler(nil, false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"canceled", fmt.Errorf("upload: %w", context.Canceled), http.StatusGatewayTimeout, TypeTimeout},
		{"api error", ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, TypeUnsupportedMedia},
		{"invalid column type", fmt.Errorf("line chart: %w", domain.ErrInvalidColumnType), http.StatusUnprocessableEntity, TypeInvalidColumnType},
		{"column not found", fmt.Errorf("top n: %w", domain.ErrColumnNotFound), http.StatusUnprocessableEntity, TypeColumnNotFound},
		{"insufficient data", domain.ErrInsufficientData, http.StatusUnprocessableEntity, TypeInsufficientData},
		{"invalid table", domain.ErrInvalidTable, http.StatusUnprocessableEntity, TypeInvalidTable},
		{"unsupported format", domain.ErrUnsupportedFormat, http.StatusBadRequest, TypeUnsupportedFormat},
		{"upload extension", validation.ErrUnsupportedExtension, http.StatusBadRequest, TypeUnsupportedFormat},
		{"unsupported chart", domain.ErrUnsupportedChart, http.StatusBadRequest, TypeUnsupportedChart},
		{"shape mismatch", domain.ErrShapeMismatch, http.StatusConflict, TypeShapeMismatch},
		{"dataset not found", fmt.Errorf("slot first: %w", services.ErrDatasetNotFound), http.StatusNotFound, TypeDataNotFound},
		{"default removed", services.ErrDefaultRemoved, http.StatusNotFound, TypeDataNotFound},
		{"read-only slot", services.ErrSlotReadOnly, http.StatusForbidden, TypeSlotReadOnly},
		{"invalid slot", services.ErrInvalidSlot, http.StatusBadRequest, TypeValidation},
		{"bad credentials", security.ErrInvalidCredentials, http.StatusUnauthorized, TypeInvalidCredentials},
		{"user exists", security.ErrUserExists, http.StatusConflict, TypeUserExists},
		{"empty credentials", security.ErrEmptyCredentials, http.StatusBadRequest, TypeValidation},
		{"password mismatch", services.ErrPasswordMismatch, http.StatusBadRequest, TypeValidation},
		{"no session", session.ErrNoSession, http.StatusUnauthorized, TypeUnauthorized},
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized, TypeUnauthorized},
		{"permission denied", services.ErrPermissionDenied, http.StatusForbidden, TypeForbidden},
		{"invalid event", session.ErrInvalidEvent, http.StatusBadRequest, TypeInvalidEvent},
		{"file too large", validation.ErrFileTooLarge, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"max bytes reader", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"temporary file", validation.ErrTemporaryFile, http.StatusBadRequest, TypeValidation},
		{"unavailable", services.ErrServiceUnavailable, http.StatusServiceUnavailable, TypeServiceDown},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/datasets/first", nil)
			problem := h.ErrorToProblem(tt.err, req)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/datasets/first", problem.Instance)
			assert.NotEmpty(t, problem.Title)
		})
	}
}

func TestErrorHandler_InternalDetailIsGeneric(t *testing.T) {
	h := NewErrorHandler(nil, false)
	problem := h.ErrorToProblem(fmt.Errorf("open /secret/path: permission denied"), nil)

	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.NotContains(t, problem.Detail, "/secret/path")
	assert.Empty(t, problem.Instance)
}

func TestErrorHandler_ValidationErrors(t *testing.T) {
	h := NewErrorHandler(nil, false)
	err := validation.Errors{{Field: "username", Tag: "required", Message: "username is required"}}

	problem := h.ErrorToProblem(fmt.Errorf("signup: %w", err), nil)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Equal(t, TypeValidation, problem.Type)
	assert.Contains(t, problem.Detail, "username is required")

	fields, ok := problem.Extensions["errors"].([]validation.FieldError)
	require.True(t, ok)
	assert.Equal(t, "username", fields[0].Field)
}

func TestApiErrorToProblem(t *testing.T) {
	tests := []struct {
		err      *APIError
		wantType string
	}{
		{ErrValidationFailed, TypeValidation},
		{ErrInvalidRequest, TypeValidation},
		{ErrMissingContentType, TypeValidation},
		{ErrPayloadTooLarge, TypePayloadTooLarge},
		{ErrUnsupportedMediaType, TypeUnsupportedMedia},
		{New(http.StatusTeapot, "TEAPOT", "unmapped"), TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.ErrorCode, func(t *testing.T) {
			problem := apiErrorToProblem(tt.err, "/x")
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.err.StatusCode, problem.Status)
			assert.Equal(t, http.StatusText(tt.err.StatusCode), problem.Title)
			assert.Equal(t, tt.err.ErrorCode, problem.Extensions["error_code"])
		})
	}

	withDetails := ErrValidation("top_n", "top_n must be at least 1")
	problem := apiErrorToProblem(withDetails, "/x")
	assert.Equal(t, withDetails.Details, problem.Extensions["details"])
}

func TestErrorHandler_HandleError(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	t.Run("nil error writes nothing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
		assert.Equal(t, 0, rec.Body.Len())
	})

	t.Run("client error", func(t *testing.T) {
		logs.Clear()
		req := httptest.NewRequest(http.MethodGet, "/api/compare", nil)
		req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-123"))
		rec := httptest.NewRecorder()

		h.HandleError(rec, req, fmt.Errorf("compare: %w", domain.ErrShapeMismatch))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, ProblemContentType, rec.Header().Get("Content-Type"))

		body := decodeProblem(t, rec)
		assert.Equal(t, TypeShapeMismatch, body["type"])
		assert.Equal(t, float64(http.StatusConflict), body["status"])
		assert.Equal(t, "trace-123", body["trace_id"])
		assert.Equal(t, "/api/compare", body["instance"])

		testutil.AssertLogContains(t, logs, slog.LevelWarn, "request failed")
		testutil.AssertNoErrors(t, logs)
	})

	t.Run("server error", func(t *testing.T) {
		logs.Clear()
		rec := httptest.NewRecorder()
		h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeProblem(t, rec)
		_, hasStack := body["stack"]
		assert.False(t, hasStack)
		testutil.AssertLogContains(t, logs, slog.LevelError, "request failed")
	})
}

func TestErrorHandler_HandleErrorIncludesStack(t *testing.T) {
	h := NewErrorHandler(nil, true)
	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))

	body := decodeProblem(t, rec)
	assert.Contains(t, body["stack"], "goroutine")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	rec := httptest.NewRecorder()
	h.HandlePanic(rec, httptest.NewRequest(http.MethodPost, "/api/datasets/first", nil), "nil map write")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, body["type"])
	assert.Equal(t, "nil map write", body["panic"])
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewErrorHandler(nil, false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeMethodNotAllowed, body["type"])
	assert.True(t, strings.Contains(body["detail"].(string), "DELETE"))
}

func TestGetStackTrace(t *testing.T) {
	assert.Contains(t, getStackTrace(), "TestGetStackTrace")
}
