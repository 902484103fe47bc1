package http

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kuberdash/internal/security"
	"kuberdash/internal/services"
	"kuberdash/internal/shared/testutil"
	"kuberdash/pkg/contracts/domain"
)

// MockAuthService is a mock for AuthServiceInterface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, username, password, confirm string) (*security.User, error) {
	args := m.Called(ctx, username, password, confirm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, sessionID, username, password string) (domain.AppState, *security.User, error) {
	args := m.Called(ctx, sessionID, username, password)
	var user *security.User
	if args.Get(1) != nil {
		user = args.Get(1).(*security.User)
	}
	return args.Get(0).(domain.AppState), user, args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, sessionID string) (domain.AppState, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.AppState), args.Error(1)
}

func (m *MockAuthService) Users(ctx context.Context) ([]security.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]security.User), args.Error(1)
}

func (m *MockAuthService) SetRole(ctx context.Context, username string, role domain.Role) error {
	return m.Called(ctx, username, role).Error(0)
}

func newAuthRouter(t *testing.T, svc *MockAuthService) (*testSessions, http.Handler) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	sessions := newTestSessions(t)
	h := NewAuthHandler(svc, nil, logger, newErrorHandler(t))
	return sessions, newRouter(sessions, map[string]http.Handler{
		"/api/auth":  h.Routes(),
		"/api/users": h.UserRoutes(),
	})
}

func TestAuthHandler_Signup(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockAuthService)
		wantStatus int
	}{
		{
			name: "created",
			body: `{"username":"ada","password":"secret1","confirm_password":"secret1"}`,
			setup: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "ada", "secret1", "secret1").
					Return(&security.User{Username: "ada", Role: domain.RoleAnalyst}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "password mismatch",
			body: `{"username":"ada","password":"secret1","confirm_password":"secret2"}`,
			setup: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "ada", "secret1", "secret2").Return(nil, services.ErrPasswordMismatch)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "existing user",
			body: `{"username":"ada","password":"secret1","confirm_password":"secret1"}`,
			setup: func(m *MockAuthService) {
				m.On("Signup", mock.Anything, "ada", "secret1", "secret1").Return(nil, security.ErrUserExists)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "short password",
			body:       `{"username":"ada","password":"abc","confirm_password":"abc"}`,
			setup:      func(*MockAuthService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad username",
			body:       `{"username":"a d","password":"secret1","confirm_password":"secret1"}`,
			setup:      func(*MockAuthService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			tt.setup(svc)
			_, router := newAuthRouter(t, svc)

			rec := do(t, router, http.MethodPost, "/api/auth/signup", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	svc := new(MockAuthService)
	sessions, router := newAuthRouter(t, svc)

	state := domain.InitialState()
	state.Authenticated = true
	state.Username = "ada"
	state.Role = domain.RoleAnalyst
	svc.On("Login", mock.Anything, sessions.id, "ada", "secret1").
		Return(state, &security.User{Username: "ada", Role: domain.RoleAnalyst}, nil)
	svc.On("Login", mock.Anything, sessions.id, "ada", "wrong").
		Return(domain.AppState{}, nil, security.ErrInvalidCredentials)

	rec := do(t, router, http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"ada","password":"secret1"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		User  security.User   `json:"user"`
		State domain.AppState `json:"state"`
	}
	decodeEnvelope(t, rec, &out)
	assert.Equal(t, "ada", out.User.Username)
	assert.True(t, out.State.Authenticated)

	rec = do(t, router, http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"ada","password":"wrong"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "wrong")

	rec = do(t, router, http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"ada"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestAuthHandler_Logout(t *testing.T) {
	svc := new(MockAuthService)
	sessions, router := newAuthRouter(t, svc)
	svc.On("Logout", mock.Anything, sessions.id).Return(domain.InitialState(), nil)

	rec := do(t, router, http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state domain.AppState
	decodeEnvelope(t, rec, &state)
	assert.False(t, state.Authenticated)
	svc.AssertExpectations(t)
}

func TestAuthHandler_UserRoutes(t *testing.T) {
	t.Run("requires manage_users", func(t *testing.T) {
		svc := new(MockAuthService)
		sessions, router := newAuthRouter(t, svc)
		sessions.login(t, domain.RoleAnalyst)

		rec := do(t, router, http.MethodGet, "/api/users", nil, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		svc.AssertNotCalled(t, "Users", mock.Anything)
	})

	t.Run("list", func(t *testing.T) {
		svc := new(MockAuthService)
		sessions, router := newAuthRouter(t, svc)
		sessions.login(t, domain.RoleAdmin)
		svc.On("Users", mock.Anything).Return([]security.User{
			{Username: "ada", Role: domain.RoleAdmin},
			{Username: "bob", Role: domain.RoleViewer},
		}, nil)

		rec := do(t, router, http.MethodGet, "/api/users", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var users []security.User
		decodeEnvelope(t, rec, &users)
		assert.Len(t, users, 2)
		svc.AssertExpectations(t)
	})

	t.Run("set role", func(t *testing.T) {
		svc := new(MockAuthService)
		sessions, router := newAuthRouter(t, svc)
		sessions.login(t, domain.RoleAdmin)
		svc.On("SetRole", mock.Anything, "bob", domain.RoleAnalyst).Return(nil)
		svc.On("SetRole", mock.Anything, "zed", domain.RoleAnalyst).Return(security.ErrUserNotFound)

		rec := do(t, router, http.MethodPut, "/api/users/bob/role", strings.NewReader(`{"role":"analyst"}`), "application/json")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, router, http.MethodPut, "/api/users/zed/role", strings.NewReader(`{"role":"analyst"}`), "application/json")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(t, router, http.MethodPut, "/api/users/bob/role", strings.NewReader(`{"role":"root"}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertExpectations(t)
	})
}
