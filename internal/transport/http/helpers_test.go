package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	apierrors "kuberdash/internal/errors"
	"kuberdash/internal/middleware"
	"kuberdash/internal/session"
	"kuberdash/internal/shared/testutil"
	"kuberdash/pkg/contracts/domain"
)

// envelope is the decoded success response
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// problem is the decoded error response
type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// testSessions wraps a real session manager with one open session
type testSessions struct {
	mgr *session.Manager
	id  string
}

func newTestSessions(t *testing.T) *testSessions {
	t.Helper()

	mgr, err := session.NewManager(session.Config{
		Secret:  []byte("0123456789abcdef0123456789abcdef"),
		Timeout: time.Minute,
	}, nil)
	require.NoError(t, err)

	id, _, err := mgr.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return &testSessions{mgr: mgr, id: id}
}

// login moves the session into the authenticated state
func (s *testSessions) login(t *testing.T, role domain.Role) {
	t.Helper()
	_, err := s.mgr.Apply(s.id, session.Event{Type: session.EventLoginSucceeded, Username: "ada", Role: role})
	require.NoError(t, err)
}

// middleware stores the current state of the session in the request
// context, as the session middleware does for a cookie-bearing request
func (s *testSessions) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, err := s.mgr.State(s.id)
		if err == nil {
			r = r.WithContext(middleware.WithSession(r.Context(), s.id, state))
		}
		next.ServeHTTP(w, r)
	})
}

func newErrorHandler(t *testing.T) *apierrors.ErrorHandler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return apierrors.NewErrorHandler(logger, false)
}

func newRouter(sessions *testSessions, mounts map[string]http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(sessions.middleware)
	for pattern, h := range mounts {
		r.Mount(pattern, h)
	}
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.Equal(t, "success", env.Status)
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem {
	t.Helper()
	var p problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p), rec.Body.String())
	return p
}
