package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"kuberdash/internal/infrastructure"
)

const maxLoggedBody = 64 * 1024

// sensitiveFields are redacted from logged request bodies
var sensitiveFields = []string{
	"password", "confirm_password", "new_password",
	"token", "secret", "session_secret", "api_key",
}

// ErrorMiddleware logs every request at a level chosen by its status and
// converts panics into problem responses
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// multipart uploads are never buffered
		var requestBody []byte
		if r.Body != nil && r.ContentLength > 0 && r.ContentLength <= maxLoggedBody &&
			!strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				m.handler.HandlePanic(ww, r, rec)
			}
			m.logRequest(r, ww, start, requestBody)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *ErrorMiddleware) logRequest(r *http.Request, ww middleware.WrapResponseWriter, start time.Time, requestBody []byte) {
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}

	logLevel := slog.LevelInfo
	if status >= 400 && status < 500 {
		logLevel = slog.LevelWarn
	} else if status >= 500 {
		logLevel = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.Int("bytes", ww.BytesWritten()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("trace_id", infrastructure.GetTraceID(r.Context())),
	}

	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}

	if status >= 400 && len(requestBody) > 0 {
		bodyStr := sanitizeRequestBody(string(requestBody))
		if len(bodyStr) > 500 {
			bodyStr = bodyStr[:500] + "..."
		}
		attrs = append(attrs, slog.String("request_body", bodyStr))
	}

	m.logger.LogAttrs(r.Context(), logLevel, "http request", attrs...)
}

// sanitizeRequestBody redacts credential fields from a JSON body. Bodies
// that are not JSON objects are dropped entirely.
func sanitizeRequestBody(body string) string {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return "[non-json body omitted]"
	}

	for _, field := range sensitiveFields {
		if _, exists := data[field]; exists {
			data[field] = "[REDACTED]"
		}
	}

	sanitized, _ := json.Marshal(data)
	return string(sanitized)
}
