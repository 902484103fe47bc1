package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "kuberdash/internal/errors"
	"kuberdash/internal/middleware"
	"kuberdash/internal/session"
	"kuberdash/internal/validation"
)

// SessionHandler exposes the per-session application state
type SessionHandler struct {
	service      DashboardServiceInterface
	validator    *validation.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service DashboardServiceInterface, validator *validation.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	if validator == nil {
		validator = validation.New()
	}
	return &SessionHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "session")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/session routes. Reading the state is open to
// anonymous sessions so the client can render the login page; events
// require a login.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetState)
	r.With(middleware.RequireAuth(h.errorHandler)).Post("/events", h.PostEvent)
	return r
}

// GetState handles GET /api/session
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	state, err := h.service.State(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, state)
}

// PostEvent handles POST /api/session/events
func (h *SessionHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var ev session.Event
	if err := decodeJSON(r, &ev, h.validator); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	state, err := h.service.ApplyEvent(r.Context(), id, ev)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, state)
}
