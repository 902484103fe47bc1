// Package security implements the dashboard credential store: a JSON file
// mapping usernames to salted scrypt password hashes and roles.
//
//	store := security.NewUserStore(paths.UsersFile, security.WithLogger(logger))
//	if _, err := store.Register("alice", "secret"); err != nil { ... }
//	user, err := store.Authenticate("alice", "secret")
//
// Login succeeds iff the stored hash equals the hash of the supplied
// password under the stored salt.
package security
