package services

import (
	"context"
	"fmt"
	"log/slog"

	"kuberdash/internal/infrastructure"
	"kuberdash/internal/security"
	"kuberdash/internal/session"
	"kuberdash/pkg/contracts/domain"
)

// UserStore is the credential store used for sign-up and login.
// *security.UserStore implements it.
type UserStore interface {
	Register(username, password string) (*security.User, error)
	Authenticate(username, password string) (*security.User, error)
	SetRole(username string, role domain.Role) error
	List() ([]security.User, error)
}

// AuthService handles sign-up, login, logout and user administration
type AuthService struct {
	users    UserStore
	sessions SessionStore
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewAuthService creates the auth service. metrics may be nil.
func NewAuthService(users UserStore, sessions SessionStore, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger.With(slog.String("service", "auth")),
	}
}

// Signup registers a new user. The password must be entered twice.
func (s *AuthService) Signup(ctx context.Context, username, password, confirm string) (*security.User, error) {
	var (
		user *security.User
		err  error
	)
	if password != confirm {
		err = ErrPasswordMismatch
	} else {
		user, err = s.users.Register(username, password)
	}
	infrastructure.RecordAuth(ctx, s.metrics, "signup", err)

	if err != nil {
		s.logger.WarnContext(ctx, "Signup failed",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "User signed up",
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)))
	return user, nil
}

// Login authenticates the user and marks the session as logged in
func (s *AuthService) Login(ctx context.Context, sessionID, username, password string) (domain.AppState, *security.User, error) {
	user, err := s.users.Authenticate(username, password)
	infrastructure.RecordAuth(ctx, s.metrics, "login", err)
	if err != nil {
		s.logger.WarnContext(ctx, "Login failed",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return domain.AppState{}, nil, err
	}

	state, err := s.sessions.Apply(sessionID, session.Event{
		Type:     session.EventLoginSucceeded,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return domain.AppState{}, nil, err
	}

	s.logger.InfoContext(ctx, "User logged in",
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)))
	return state, user, nil
}

// Logout clears the session's login and uploaded datasets
func (s *AuthService) Logout(ctx context.Context, sessionID string) (domain.AppState, error) {
	before, err := s.sessions.State(sessionID)
	if err != nil {
		return domain.AppState{}, err
	}

	state, err := s.sessions.Apply(sessionID, session.Event{Type: session.EventLoggedOut})
	if err != nil {
		return domain.AppState{}, err
	}

	if before.Authenticated {
		s.logger.InfoContext(ctx, "User logged out", slog.String("username", before.Username))
	}
	return state, nil
}

// Users lists registered users
func (s *AuthService) Users(ctx context.Context) ([]security.User, error) {
	return s.users.List()
}

// SetRole changes a user's role
func (s *AuthService) SetRole(ctx context.Context, username string, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if err := s.users.SetRole(username, role); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "User role changed",
		slog.String("username", username),
		slog.String("role", string(role)))
	return nil
}
