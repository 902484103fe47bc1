package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jellydator/ttlcache/v3"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"kuberdash/pkg/contracts/domain"
)

const sessionIDKey = "sid"

// ErrNoSession is returned when a request carries no known session
var ErrNoSession = errors.New("no active session")

// Config configures the session manager
type Config struct {
	Secret      []byte
	CookieName  string
	Secure      bool
	Timeout     time.Duration
	MaxSessions uint64
}

type tableKey struct {
	session string
	slot    domain.Slot
}

// Manager tracks per-session application state and uploaded tables. The
// cookie only carries a random session id; state and tables live in memory
// and expire after the configured idle timeout.
type Manager struct {
	cookies    *sessions.CookieStore
	cookieName string
	timeout    time.Duration
	states     *ttlcache.Cache[string, domain.AppState]
	tables     *ttlcache.Cache[tableKey, *domain.Table]
	logger     *slog.Logger

	mu      sync.Mutex
	running bool

	// applyMu serializes read-transition-write of session states
	applyMu sync.Mutex
}

// NewManager creates a session manager. Call Start to begin expiring
// idle sessions and Stop on shutdown.
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	cookies := sessions.NewCookieStore(cfg.Secret)
	cookies.Options.Path = "/"
	cookies.Options.HttpOnly = true
	cookies.Options.Secure = cfg.Secure
	cookies.Options.SameSite = http.SameSiteLaxMode
	cookies.Options.MaxAge = 0

	stateOpts := []ttlcache.Option[string, domain.AppState]{
		ttlcache.WithTTL[string, domain.AppState](cfg.Timeout),
	}
	if cfg.MaxSessions > 0 {
		stateOpts = append(stateOpts, ttlcache.WithCapacity[string, domain.AppState](cfg.MaxSessions))
	}

	m := &Manager{
		cookies:    cookies,
		cookieName: cfg.CookieName,
		timeout:    cfg.Timeout,
		states:     ttlcache.New[string, domain.AppState](stateOpts...),
		tables: ttlcache.New[tableKey, *domain.Table](
			ttlcache.WithTTL[tableKey, *domain.Table](cfg.Timeout),
		),
		logger: logger.With(slog.String("component", "session_manager")),
	}

	// tables of an expired or evicted session go with it
	m.states.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, domain.AppState]) {
		m.dropTables(item.Key())
		m.logger.Debug("Session evicted",
			slog.String("session_id", item.Key()),
			slog.Int("reason", int(reason)))
	})

	return m, nil
}

// Start runs the expiry loops in the background until Stop is called
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	go m.states.Start()
	go m.tables.Start()
}

// Stop ends the expiry loops. It does nothing if they are not running.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.states.Stop()
	m.tables.Stop()
}

// Timeout returns the idle timeout
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Load returns the session id and state of the request, creating a new
// session (and setting the cookie) when the request has none or its
// session expired.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (string, domain.AppState, error) {
	if id, err := m.ID(r); err == nil {
		if item := m.states.Get(id); item != nil {
			return id, item.Value().Clone(), nil
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", domain.AppState{}, fmt.Errorf("failed to generate session id: %w", err)
	}

	sess, _ := m.cookies.Get(r, m.cookieName)
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", domain.AppState{}, fmt.Errorf("failed to save session cookie: %w", err)
	}

	state := domain.InitialState()
	m.states.Set(id, state, ttlcache.DefaultTTL)
	m.logger.Debug("Session created", slog.String("session_id", id))
	return id, state.Clone(), nil
}

// ID returns the session id carried by the request cookie
func (m *Manager) ID(r *http.Request) (string, error) {
	sess, err := m.cookies.Get(r, m.cookieName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	id, ok := sess.Values[sessionIDKey].(string)
	if !ok || id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

// State returns the stored state of a session
func (m *Manager) State(id string) (domain.AppState, error) {
	item := m.states.Get(id)
	if item == nil {
		return domain.AppState{}, ErrNoSession
	}
	return item.Value().Clone(), nil
}

// Apply runs ev against the session state and stores the result
func (m *Manager) Apply(id string, ev Event) (domain.AppState, error) {
	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	item := m.states.Get(id)
	if item == nil {
		return domain.AppState{}, ErrNoSession
	}

	next, err := Transition(item.Value(), ev)
	if err != nil {
		return item.Value().Clone(), err
	}
	m.states.Set(id, next, ttlcache.DefaultTTL)

	if ev.Type == EventLoggedOut {
		m.dropTables(id)
	}

	m.logger.Debug("Session state transition",
		slog.String("session_id", id),
		slog.String("event", string(ev.Type)),
		slog.String("page", string(next.Page)))

	return next.Clone(), nil
}

// PutTable stores a table in a session slot
func (m *Manager) PutTable(id string, slot domain.Slot, t *domain.Table) {
	m.tables.Set(tableKey{session: id, slot: slot}, t, ttlcache.DefaultTTL)
}

// Table returns the table stored in a session slot
func (m *Manager) Table(id string, slot domain.Slot) (*domain.Table, bool) {
	item := m.tables.Get(tableKey{session: id, slot: slot})
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Destroy forgets the session and expires its cookie
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request, id string) error {
	m.states.Delete(id)
	m.dropTables(id)

	sess, _ := m.cookies.Get(r, m.cookieName)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	return m.states.Len()
}

func (m *Manager) dropTables(id string) {
	for _, slot := range []domain.Slot{domain.SlotDefault, domain.SlotStatic, domain.SlotFirst, domain.SlotSecond} {
		m.tables.Delete(tableKey{session: id, slot: slot})
	}
}
