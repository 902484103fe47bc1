package security

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"kuberdash/pkg/contracts/domain"
)

var (
	// ErrUserExists is returned when registering a taken username
	ErrUserExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned when a login does not match a stored user
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrEmptyCredentials is returned when a username or password is blank
	ErrEmptyCredentials = errors.New("username and password are required")

	// ErrUserNotFound is returned when an operation names an unknown user
	ErrUserNotFound = errors.New("user not found")
)

// DefaultRole is assigned to newly registered users
const DefaultRole = domain.RoleAnalyst

// UserRecord is the persisted form of one user
type UserRecord struct {
	PasswordHash string      `json:"password_hash"`
	Salt         string      `json:"salt"`
	Role         domain.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
}

// User is the public view of an authenticated user
type User struct {
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// UserStore is a flat-file credential store keyed by username. Every
// operation reads the file so that external edits are picked up; writes are
// serialized and replace the file atomically.
type UserStore struct {
	path   string
	hash   HashConfig
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

// StoreOption configures a UserStore
type StoreOption func(*UserStore)

// WithHashConfig overrides the scrypt parameters
func WithHashConfig(cfg HashConfig) StoreOption {
	return func(s *UserStore) { s.hash = cfg }
}

// WithLogger sets the store logger
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *UserStore) { s.logger = logger }
}

// NewUserStore creates a store backed by the JSON file at path. The file is
// created on first registration.
func NewUserStore(path string, opts ...StoreOption) *UserStore {
	s := &UserStore{
		path:   path,
		hash:   DefaultHashConfig(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "user_store"))
	return s
}

// Path returns the backing file path
func (s *UserStore) Path() string {
	return s.path
}

// Register adds a new user with the default role
func (s *UserStore) Register(username, password string) (*User, error) {
	return s.RegisterWithRole(username, password, DefaultRole)
}

// RegisterWithRole adds a new user with the given role
func (s *UserStore) RegisterWithRole(username, password string, role domain.Role) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	if _, exists := users[username]; exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	salt, err := NewSalt(s.hash.SaltLen)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password, salt, s.hash)
	if err != nil {
		return nil, err
	}

	record := UserRecord{
		PasswordHash: hash,
		Salt:         hex.EncodeToString(salt),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	users[username] = record
	if err := s.save(users); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		slog.String("username", username),
		slog.String("role", string(role)))

	return &User{Username: username, Role: record.Role, CreatedAt: record.CreatedAt}, nil
}

// Authenticate returns the user iff the stored hash equals the hash of the
// supplied password
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	s.mu.Lock()
	users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	record, ok := users[username]
	if !ok {
		// unknown users still pay for one hash
		_, _ = HashPassword(password, []byte("unknown-user-salt"), s.hash)
		return nil, ErrInvalidCredentials
	}

	salt, err := hex.DecodeString(record.Salt)
	if err != nil {
		s.logger.Error("Corrupt salt in user store", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}
	if !VerifyPassword(password, salt, record.PasswordHash, s.hash) {
		return nil, ErrInvalidCredentials
	}

	role := record.Role
	if !role.Valid() {
		role = DefaultRole
	}
	return &User{Username: username, Role: role, CreatedAt: record.CreatedAt}, nil
}

// SetRole changes the role of an existing user
func (s *UserStore) SetRole(username string, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	record, ok := users[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	record.Role = role
	users[username] = record
	return s.save(users)
}

// List returns all users sorted by name
func (s *UserStore) List() ([]User, error) {
	s.mu.Lock()
	users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]User, 0, len(users))
	for name, record := range users {
		out = append(out, User{Username: name, Role: record.Role, CreatedAt: record.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Count returns the number of stored users
func (s *UserStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// load reads the user map; a missing file is an empty store
func (s *UserStore) load() (map[string]UserRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]UserRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user store: %w", err)
	}

	users := map[string]UserRecord{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse user store: %w", err)
	}
	return users, nil
}

// save writes the user map to a temp file and renames it into place
func (s *UserStore) save(users map[string]UserRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create user store directory: %w", err)
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set user store permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace user store: %w", err)
	}
	return nil
}
