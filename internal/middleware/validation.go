package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	apierrors "kuberdash/internal/errors"
)

// ValidationMiddleware rejects oversized or malformed JSON request bodies
// before they reach a handler
type ValidationMiddleware struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxBodySize int64) *ValidationMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	return &ValidationMiddleware{
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		maxBodySize:  maxBodySize,
	}
}

// ValidateJSON checks that JSON bodies fit the size limit and parse. Other
// content types pass through untouched.
func (m *ValidationMiddleware) ValidateJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType != "application/json" || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.maxBodySize {
			m.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge.WithDetails(
				map[string]interface{}{
					"max_size": m.maxBodySize,
					"size":     r.ContentLength,
				},
			))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, m.maxBodySize))
		if err != nil {
			m.logger.WarnContext(r.Context(), "failed to read request body",
				slog.String("error", err.Error()),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			m.errorHandler.HandleError(w, r, err)
			return
		}

		if len(body) > 0 && !json.Valid(body) {
			m.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest.WithDetails("Request body contains invalid JSON"))
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// ContentTypeValidator ensures requests with a body use one of the allowed
// media types
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				if r.ContentLength == 0 {
					next.ServeHTTP(w, r)
					return
				}
				errorHandler.HandleError(w, r, apierrors.ErrMissingContentType)
				return
			}

			mediaType, _, err := mime.ParseMediaType(contentType)
			if err == nil {
				for _, allowed := range contentTypes {
					if strings.EqualFold(mediaType, allowed) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			errorHandler.HandleError(w, r, apierrors.ErrUnsupportedMediaType.WithDetails(
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

// QueryParamValidator parses and range-checks query parameters, answering
// with a problem response on failure
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt validates an integer query parameter. The second result is
// false when a response has already been written.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max int, defaultValue int) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}

	if intValue < min || intValue > max {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}

	return intValue, true
}

// ValidateEnum validates an enum query parameter
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return a, true
		}
	}

	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}
