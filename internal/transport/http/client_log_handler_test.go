package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuberdash/internal/shared/testutil"
)

func postClientLog(t *testing.T, h *ClientLogHandler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/log/client", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestClientLogHandler_Handle(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{name: "valid log entry", body: `{"level":"info","message":"grid rendered","data":{"rows":4}}`, expectedStatus: http.StatusOK},
		{name: "missing level", body: `{"message":"no level"}`, expectedStatus: http.StatusOK},
		{name: "missing message", body: `{"level":"info"}`, expectedStatus: http.StatusOK},
		{name: "empty body", body: ``, expectedStatus: http.StatusBadRequest},
		{name: "invalid JSON", body: `invalid json`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			rec := postClientLog(t, NewClientLogHandler(logger), []byte(tt.body))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				var response map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
				assert.Equal(t, true, response["success"])
			} else {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), "Invalid request format")
			}
		})
	}
}

func TestClientLogHandler_LogLevels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"fatal", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			body, err := json.Marshal(LogRequest{Level: tt.level, Message: "from " + tt.level, Source: "grid.js"})
			require.NoError(t, err)

			rec := postClientLog(t, NewClientLogHandler(logger), body)
			require.Equal(t, http.StatusOK, rec.Code)

			testutil.AssertLogContains(t, logs, tt.want, "from "+tt.level)
			testutil.AssertLogAttr(t, logs, "client_source", "grid.js")
		})
	}
}

func TestClientLogHandler_TruncatesMessage(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	body, err := json.Marshal(LogRequest{Level: "info", Message: strings.Repeat("x", maxClientMessage+100)})
	require.NoError(t, err)

	rec := postClientLog(t, NewClientLogHandler(logger), body)
	require.Equal(t, http.StatusOK, rec.Code)

	records := logs.GetRecords()
	require.Len(t, records, 1)
	assert.Len(t, records[0].Message, maxClientMessage)
}

func TestClientLogHandler_SpecialCharacters(t *testing.T) {
	for _, msg := range []string{
		"unicode: 你好世界 🌍",
		"Test with \"quotes\" and 'apostrophes'",
		"Test with\nnewlines\nand\ttabs",
		"Test with <html>tags</html>",
	} {
		logger, logs := testutil.NewTestLogger(t)
		body, err := json.Marshal(LogRequest{Level: "info", Message: msg})
		require.NoError(t, err)

		rec := postClientLog(t, NewClientLogHandler(logger), body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, logs.ContainsMessage(msg))
	}
}
