package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "kuberdash/internal/errors"
	"kuberdash/internal/middleware"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

// SignupRequest is the body of POST /api/auth/signup
type SignupRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=64,username"`
	Password        string `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// RoleRequest is the body of PUT /api/users/{username}/role
type RoleRequest struct {
	Role domain.Role `json:"role" validate:"required,oneof=admin analyst viewer"`
}

// AuthHandler handles sign-up, login, logout and user administration
type AuthHandler struct {
	service      AuthServiceInterface
	validator    *validation.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthServiceInterface, validator *validation.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AuthHandler {
	if validator == nil {
		validator = validation.New()
	}
	return &AuthHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "auth")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/auth routes
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	return r
}

// UserRoutes returns the /api/users routes. They require manage_users.
func (h *AuthHandler) UserRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(middleware.RequirePermission(domain.PermManageUsers, h.errorHandler))

	r.Get("/", h.ListUsers)
	r.Put("/{username}/role", h.SetRole)
	return r
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req, h.validator); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	user, err := h.service.Signup(r.Context(), req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	respond(w, r, http.StatusCreated, user)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var req LoginRequest
	if err := decodeJSON(r, &req, h.validator); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	state, user, err := h.service.Login(r.Context(), id, req.Username, req.Password)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, map[string]interface{}{
		"user":  user,
		"state": state,
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	state, err := h.service.Logout(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, state)
}

// ListUsers handles GET /api/users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, users)
}

// SetRole handles PUT /api/users/{username}/role
func (h *AuthHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req RoleRequest
	if err := decodeJSON(r, &req, h.validator); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.service.SetRole(r.Context(), username, req.Role); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "role updated",
		slog.String("username", username),
		slog.String("role", string(req.Role)),
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	respond(w, r, http.StatusOK, map[string]interface{}{
		"username": username,
		"role":     req.Role,
	})
}
