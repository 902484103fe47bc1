package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apierrors "kuberdash/internal/errors"
)

// maxClientMessage bounds the message length recorded from the browser
const maxClientMessage = 2048

// ClientLogHandler handles client-side logging requests
type ClientLogHandler struct {
	logger *slog.Logger
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		logger: logger.With(slog.String("handler", "client_log")),
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty"`
}

// Handle processes POST /api/log/client
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteProblem(w, apierrors.NewProblemDetails(
			http.StatusBadRequest,
			apierrors.TypeValidation,
			"Invalid Request",
			"Invalid request format",
			r.URL.Path,
		))
		return
	}

	if len(req.Message) > maxClientMessage {
		req.Message = req.Message[:maxClientMessage]
	}

	attrs := []slog.Attr{
		slog.String("client_source", req.Source),
		slog.String("timestamp", time.Now().Format(time.RFC3339)),
	}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}

	h.logger.LogAttrs(r.Context(), clientLevel(req.Level), req.Message, attrs...)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// clientLevel maps a browser log level, defaulting to info
func clientLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
