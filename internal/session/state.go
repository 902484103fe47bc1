package session

import (
	"errors"
	"fmt"

	"kuberdash/pkg/contracts/domain"
)

// ErrInvalidEvent is returned for unknown events or events carrying an
// invalid payload. The state is left unchanged.
var ErrInvalidEvent = errors.New("invalid event")

// EventType names a state transition
type EventType string

const (
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoggedOut       EventType = "logged_out"
	EventNavigate        EventType = "navigate"
	EventThemeChanged    EventType = "theme_changed"
	EventDefaultRemoved  EventType = "default_removed"
	EventShowSignup      EventType = "show_signup"
	EventShowLogin       EventType = "show_login"
	EventDatasetUploaded EventType = "dataset_uploaded"
)

// Event is a user interaction applied to the application state
type Event struct {
	Type     EventType    `json:"type" validate:"required"`
	Username string       `json:"username,omitempty"`
	Role     domain.Role  `json:"role,omitempty"`
	Page     domain.Page  `json:"page,omitempty"`
	Theme    domain.Theme `json:"theme,omitempty"`
	Slot     domain.Slot  `json:"slot,omitempty"`
}

// ClientEvent reports whether a client may submit the event directly.
// Authentication and upload events are raised by the server only.
func (e EventType) ClientEvent() bool {
	switch e {
	case EventNavigate, EventThemeChanged, EventDefaultRemoved, EventShowSignup, EventShowLogin:
		return true
	}
	return false
}

// Transition applies ev to s and returns the resulting state. s is not
// modified.
func Transition(s domain.AppState, ev Event) (domain.AppState, error) {
	next := s.Clone()

	switch ev.Type {
	case EventLoginSucceeded:
		if ev.Username == "" {
			return s, fmt.Errorf("%w: login without username", ErrInvalidEvent)
		}
		next.Authenticated = true
		next.Username = ev.Username
		next.Role = ev.Role
		if !next.Role.Valid() {
			next.Role = domain.RoleViewer
		}

	case EventLoggedOut:
		next.Authenticated = false
		next.Username = ""
		next.Role = ""
		next.Page = domain.PageHome
		next.Uploaded = map[domain.Slot]bool{}

	case EventNavigate:
		if !validPage(ev.Page) {
			return s, fmt.Errorf("%w: unknown page %q", ErrInvalidEvent, ev.Page)
		}
		next.Page = ev.Page

	case EventThemeChanged:
		if ev.Theme != domain.ThemeDark && ev.Theme != domain.ThemeLight {
			return s, fmt.Errorf("%w: unknown theme %q", ErrInvalidEvent, ev.Theme)
		}
		next.Theme = ev.Theme

	case EventDefaultRemoved:
		next.ShowDefault = false

	case EventShowSignup:
		next.ShowLogin = false

	case EventShowLogin:
		next.ShowLogin = true

	case EventDatasetUploaded:
		if !ev.Slot.Writable() {
			return s, fmt.Errorf("%w: slot %q does not accept uploads", ErrInvalidEvent, ev.Slot)
		}
		next.Uploaded[ev.Slot] = true

	default:
		return s, fmt.Errorf("%w: %q", ErrInvalidEvent, ev.Type)
	}

	return next, nil
}

func validPage(p domain.Page) bool {
	for _, known := range domain.Pages {
		if p == known {
			return true
		}
	}
	return false
}
