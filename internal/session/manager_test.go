package session

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuberdash/pkg/contracts/domain"
)

func newTestManager(t *testing.T, timeout time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		CookieName: "test_session",
		Timeout:    timeout,
	}, nil)
	require.NoError(t, err)
	m.Start()
	t.Cleanup(m.Stop)
	return m
}

// withCookies copies the response cookies onto a fresh request
func withCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(Config{}, nil)
	assert.Error(t, err)
}

func TestLoadCreatesSession(t *testing.T) {
	m := newTestManager(t, time.Hour)

	rec := httptest.NewRecorder()
	id, state, err := m.Load(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Len(t, id, 21, "nanoid default length")
	assert.Equal(t, domain.InitialState(), state)
	assert.Equal(t, 1, m.Count())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotContains(t, cookies[0].Value, id, "cookie is signed and encoded")
}

func TestLoadReusesSession(t *testing.T) {
	m := newTestManager(t, time.Hour)

	rec := httptest.NewRecorder()
	id, _, err := m.Load(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	_, err = m.Apply(id, Event{Type: EventThemeChanged, Theme: domain.ThemeLight})
	require.NoError(t, err)

	again := httptest.NewRecorder()
	id2, state, err := m.Load(again, withCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, domain.ThemeLight, state.Theme)
	assert.Empty(t, again.Result().Cookies(), "no new cookie for a live session")
}

func TestLoadRejectsForgedCookie(t *testing.T) {
	m := newTestManager(t, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "forged"})

	_, err := m.ID(req)
	assert.ErrorIs(t, err, ErrNoSession)

	id, state, err := m.Load(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.False(t, state.Authenticated)
}

func TestApply(t *testing.T) {
	m := newTestManager(t, time.Hour)
	id, _, err := m.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	state, err := m.Apply(id, Event{Type: EventLoginSucceeded, Username: "alice", Role: domain.RoleAnalyst})
	require.NoError(t, err)
	assert.True(t, state.Authenticated)

	_, err = m.Apply(id, Event{Type: EventNavigate, Page: "Nowhere"})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	stored, err := m.State(id)
	require.NoError(t, err)
	assert.Equal(t, domain.PageHome, stored.Page)
	assert.True(t, stored.Authenticated)

	_, err = m.Apply("missing", Event{Type: EventShowLogin})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestApplyConcurrentEventsAreNotLost(t *testing.T) {
	m := newTestManager(t, time.Hour)
	id, _, err := m.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	events := []Event{
		{Type: EventLoginSucceeded, Username: "alice", Role: domain.RoleAnalyst},
		{Type: EventThemeChanged, Theme: domain.ThemeLight},
		{Type: EventDatasetUploaded, Slot: domain.SlotStatic},
		{Type: EventDatasetUploaded, Slot: domain.SlotFirst},
		{Type: EventDatasetUploaded, Slot: domain.SlotSecond},
		{Type: EventDefaultRemoved},
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		for _, ev := range events {
			wg.Add(1)
			go func(ev Event) {
				defer wg.Done()
				<-start
				_, err := m.Apply(id, ev)
				assert.NoError(t, err)
			}(ev)
		}
	}
	close(start)
	wg.Wait()

	state, err := m.State(id)
	require.NoError(t, err)
	assert.True(t, state.Authenticated)
	assert.Equal(t, domain.ThemeLight, state.Theme)
	assert.False(t, state.ShowDefault)
	assert.Equal(t, map[domain.Slot]bool{
		domain.SlotStatic: true,
		domain.SlotFirst:  true,
		domain.SlotSecond: true,
	}, state.Uploaded)
}

func TestTables(t *testing.T) {
	m := newTestManager(t, time.Hour)
	id, _, err := m.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	table := domain.MustTable("t", domain.NumberColumn("a", 1))
	m.PutTable(id, domain.SlotFirst, table)

	got, ok := m.Table(id, domain.SlotFirst)
	require.True(t, ok)
	assert.Same(t, table, got)

	_, ok = m.Table(id, domain.SlotSecond)
	assert.False(t, ok)
	_, ok = m.Table("other", domain.SlotFirst)
	assert.False(t, ok, "tables are not shared across sessions")

	_, err = m.Apply(id, Event{Type: EventLoginSucceeded, Username: "alice"})
	require.NoError(t, err)
	_, err = m.Apply(id, Event{Type: EventLoggedOut})
	require.NoError(t, err)
	_, ok = m.Table(id, domain.SlotFirst)
	assert.False(t, ok, "logout drops uploaded tables")
}

func TestSessionExpiry(t *testing.T) {
	m := newTestManager(t, 50*time.Millisecond)
	id, _, err := m.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	m.PutTable(id, domain.SlotStatic, domain.MustTable("t", domain.NumberColumn("a", 1)))

	time.Sleep(120 * time.Millisecond)

	_, err = m.State(id)
	assert.ErrorIs(t, err, ErrNoSession)
	_, ok := m.Table(id, domain.SlotStatic)
	assert.False(t, ok)
}

func TestDestroy(t *testing.T) {
	m := newTestManager(t, time.Hour)
	rec := httptest.NewRecorder()
	id, _, err := m.Load(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	out := httptest.NewRecorder()
	require.NoError(t, m.Destroy(out, withCookies(rec), id))

	_, err = m.State(id)
	assert.ErrorIs(t, err, ErrNoSession)

	cookies := out.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestManager_StartStopIdempotent(t *testing.T) {
	m, err := NewManager(Config{Secret: []byte("0123456789abcdef0123456789abcdef")}, nil)
	require.NoError(t, err)

	m.Stop()
	m.Start()
	m.Start()
	m.Stop()
	m.Stop()
}
