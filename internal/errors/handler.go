package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"kuberdash/internal/infrastructure"
	"kuberdash/internal/security"
	"kuberdash/internal/services"
	"kuberdash/internal/session"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

// Common error types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeUnauthorized     = "/errors/unauthorized"
	TypeForbidden        = "/errors/forbidden"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeUnsupportedMedia = "/errors/unsupported-media-type"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
)

// Domain-specific error types
const (
	TypeInvalidColumnType  = "/errors/data/invalid-column-type"
	TypeColumnNotFound     = "/errors/data/column-not-found"
	TypeInsufficientData   = "/errors/data/insufficient-data"
	TypeInvalidTable       = "/errors/data/invalid-table"
	TypeUnsupportedFormat  = "/errors/data/unsupported-format"
	TypeDataNotFound       = "/errors/data/not-found"
	TypeSlotReadOnly       = "/errors/data/slot-read-only"
	TypeUnsupportedChart   = "/errors/chart/unsupported"
	TypeShapeMismatch      = "/errors/comparison/shape-mismatch"
	TypeInvalidCredentials = "/errors/auth/invalid-credentials"
	TypeUserExists         = "/errors/auth/user-exists"
	TypeInvalidEvent       = "/errors/session/invalid-event"
)

// problemMapping maps a sentinel error to its problem type. Entries are
// checked in order with errors.Is; the first match wins.
type problemMapping struct {
	target error
	status int
	typ    string
	title  string
}

var problemMappings = []problemMapping{
	// request shape
	{validation.ErrFileTooLarge, http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large"},
	{validation.ErrEmptyFile, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{validation.ErrTemporaryFile, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{validation.ErrMissingFilename, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{services.ErrInvalidInput, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{services.ErrInvalidSlot, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{services.ErrPasswordMismatch, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{security.ErrEmptyCredentials, http.StatusBadRequest, TypeValidation, "Validation Failed"},
	{session.ErrInvalidEvent, http.StatusBadRequest, TypeInvalidEvent, "Invalid Event"},

	// table data
	{domain.ErrUnsupportedFormat, http.StatusBadRequest, TypeUnsupportedFormat, "Unsupported Format"},
	{domain.ErrUnsupportedChart, http.StatusBadRequest, TypeUnsupportedChart, "Unsupported Chart"},
	{domain.ErrInvalidColumnType, http.StatusUnprocessableEntity, TypeInvalidColumnType, "Invalid Column Type"},
	{domain.ErrColumnNotFound, http.StatusUnprocessableEntity, TypeColumnNotFound, "Column Not Found"},
	{domain.ErrInsufficientData, http.StatusUnprocessableEntity, TypeInsufficientData, "Insufficient Data"},
	{domain.ErrInvalidTable, http.StatusUnprocessableEntity, TypeInvalidTable, "Invalid Table"},
	{domain.ErrShapeMismatch, http.StatusConflict, TypeShapeMismatch, "Shape Mismatch"},

	// datasets
	{services.ErrDatasetNotFound, http.StatusNotFound, TypeDataNotFound, "Dataset Not Found"},
	{services.ErrDefaultRemoved, http.StatusNotFound, TypeDataNotFound, "Dataset Not Found"},
	{services.ErrSlotReadOnly, http.StatusForbidden, TypeSlotReadOnly, "Dataset Slot Read-Only"},

	// auth
	{security.ErrInvalidCredentials, http.StatusUnauthorized, TypeInvalidCredentials, "Invalid Credentials"},
	{security.ErrUserExists, http.StatusConflict, TypeUserExists, "User Already Exists"},
	{security.ErrUserNotFound, http.StatusNotFound, TypeNotFound, "User Not Found"},
	{session.ErrNoSession, http.StatusUnauthorized, TypeUnauthorized, "Unauthorized"},
	{services.ErrUnauthenticated, http.StatusUnauthorized, TypeUnauthorized, "Unauthorized"},
	{services.ErrPermissionDenied, http.StatusForbidden, TypeForbidden, "Forbidden"},

	{services.ErrServiceUnavailable, http.StatusServiceUnavailable, TypeServiceDown, "Service Unavailable"},
}

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
		infrastructure.RecordError(ctx, err)
	}
	h.logger.Log(ctx, level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("type", problem.Type),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	WriteProblem(w, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := ""
	if r != nil {
		instance = r.URL.Path
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			instance,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, instance)
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			fieldErrs.Error(),
			instance,
		).WithExtension("errors", []validation.FieldError(fieldErrs))
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			fmt.Sprintf("The request body exceeds the maximum allowed size of %d bytes", maxBytes.Limit),
			instance,
		)
	}

	for _, m := range problemMappings {
		if errors.Is(err, m.target) {
			return NewProblemDetails(m.status, m.typ, m.title, err.Error(), instance)
		}
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		instance,
	)
}

// apiErrorToProblem converts APIError to ProblemDetails
func apiErrorToProblem(apiErr *APIError, instance string) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case ErrValidationFailed.ErrorCode, ErrInvalidRequest.ErrorCode, ErrMissingContentType.ErrorCode:
		problemType = TypeValidation
	case ErrPayloadTooLarge.ErrorCode:
		problemType = TypePayloadTooLarge
	case ErrUnsupportedMediaType.ErrorCode:
		problemType = TypeUnsupportedMedia
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		instance,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	WriteProblem(w, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	WriteProblem(w, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	WriteProblem(w, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
