package domain

// Page is a dashboard page
type Page string

const (
	PageHome       Page = "Home"
	PageStatic     Page = "Static Data"
	PageComparison Page = "Dynamic Comparison"
	PageSettings   Page = "Settings"
)

// Pages lists navigation targets in sidebar order
var Pages = []Page{PageHome, PageStatic, PageComparison, PageSettings}

// Theme is the UI colour scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Slot names a dataset position within a session
type Slot string

const (
	SlotDefault Slot = "default"
	SlotStatic  Slot = "static"
	SlotFirst   Slot = "first"
	SlotSecond  Slot = "second"
)

// Writable reports whether uploads may target the slot
func (s Slot) Writable() bool {
	return s == SlotStatic || s == SlotFirst || s == SlotSecond
}

// Valid reports whether the slot is known
func (s Slot) Valid() bool {
	return s == SlotDefault || s.Writable()
}

// Role is a user role from the credential store
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAnalyst Role = "analyst"
	RoleViewer  Role = "viewer"
)

// Permission is an action a role may perform
type Permission string

const (
	PermRead        Permission = "read"
	PermWrite       Permission = "write"
	PermDelete      Permission = "delete"
	PermUpload      Permission = "upload"
	PermDownload    Permission = "download"
	PermManageUsers Permission = "manage_users"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin:   {PermRead, PermWrite, PermDelete, PermUpload, PermDownload, PermManageUsers},
	RoleAnalyst: {PermRead, PermWrite, PermUpload, PermDownload},
	RoleViewer:  {PermRead, PermDownload},
}

// Can reports whether the role grants the permission
func (r Role) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// Valid reports whether the role is known
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// AppState is the per-session application state. It is treated as an
// immutable value: transitions return a new state.
type AppState struct {
	Authenticated bool          `json:"authenticated"`
	Username      string        `json:"username,omitempty"`
	Role          Role          `json:"role,omitempty"`
	Page          Page          `json:"page"`
	Theme         Theme         `json:"theme"`
	ShowDefault   bool          `json:"show_default"`
	ShowLogin     bool          `json:"show_login"`
	Uploaded      map[Slot]bool `json:"uploaded"`
}

// InitialState is the state of a fresh session
func InitialState() AppState {
	return AppState{
		Page:        PageHome,
		Theme:       ThemeDark,
		ShowDefault: true,
		ShowLogin:   true,
		Uploaded:    map[Slot]bool{},
	}
}

// Clone returns a copy that shares no mutable data with s
func (s AppState) Clone() AppState {
	up := make(map[Slot]bool, len(s.Uploaded))
	for k, v := range s.Uploaded {
		up[k] = v
	}
	s.Uploaded = up
	return s
}
