// Package session holds the per-session dashboard state.
//
// AppState changes only through Transition, a pure function of the old
// state and an Event. Manager binds states and uploaded tables to a signed
// session cookie and expires them after the idle timeout.
package session
