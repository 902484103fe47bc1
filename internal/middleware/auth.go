package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "kuberdash/internal/errors"
	"kuberdash/internal/services"
	"kuberdash/pkg/contracts/domain"
)

const (
	sessionIDKey contextKey = "session-id"
	appStateKey  contextKey = "app-state"
)

// SessionLoader resolves the session of a request, creating one if needed
type SessionLoader interface {
	Load(w http.ResponseWriter, r *http.Request) (string, domain.AppState, error)
}

// WithSession stores the session id and state snapshot in ctx
func WithSession(ctx context.Context, id string, state domain.AppState) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, id)
	return context.WithValue(ctx, appStateKey, state)
}

// SessionFromContext returns the session loaded by the Session middleware
func SessionFromContext(ctx context.Context) (string, domain.AppState, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	if !ok || id == "" {
		return "", domain.AppState{}, false
	}
	state, ok := ctx.Value(appStateKey).(domain.AppState)
	return id, state, ok
}

// Session loads (or starts) the caller's session and stores a snapshot of
// its state in the request context
func Session(loader SessionLoader, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "session_middleware"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, state, err := loader.Load(w, r)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to load session",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path))
				errorHandler.HandleError(w, r, fmt.Errorf("load session: %w", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), id, state)))
		})
	}
}

// RequireAuth rejects requests whose session is not logged in
func RequireAuth(errorHandler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, state, ok := SessionFromContext(r.Context())
			if !ok || !state.Authenticated {
				errorHandler.HandleError(w, r, services.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission rejects requests whose role lacks perm. It implies
// RequireAuth.
func RequirePermission(perm domain.Permission, errorHandler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, state, ok := SessionFromContext(r.Context())
			if !ok || !state.Authenticated {
				errorHandler.HandleError(w, r, services.ErrUnauthenticated)
				return
			}
			if !state.Role.Can(perm) {
				errorHandler.HandleError(w, r,
					fmt.Errorf("%w: role %q lacks %q", services.ErrPermissionDenied, state.Role, perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
