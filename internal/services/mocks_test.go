package services

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kuberdash/internal/security"
	"kuberdash/internal/session"
	"kuberdash/pkg/contracts/domain"
)

// MockUserStore is a mock for the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Register(username, password string) (*security.User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.User), args.Error(1)
}

func (m *MockUserStore) Authenticate(username, password string) (*security.User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.User), args.Error(1)
}

func (m *MockUserStore) SetRole(username string, role domain.Role) error {
	return m.Called(username, role).Error(0)
}

func (m *MockUserStore) List() ([]security.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]security.User), args.Error(1)
}

func (m *MockUserStore) Count() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

// newSession starts a real session manager and opens one session on it
func newSession(t *testing.T) (*session.Manager, string) {
	t.Helper()

	mgr, err := session.NewManager(session.Config{
		Secret:  []byte("0123456789abcdef0123456789abcdef"),
		Timeout: time.Minute,
	}, nil)
	require.NoError(t, err)

	id, _, err := mgr.Load(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	return mgr, id
}
