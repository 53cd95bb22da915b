// Package model defines the data structures used throughout the application.
package model

import "strings"

// User represents a registered account in the local credential store.
//
// The normalized email is the unique key — no two users may share one, and
// it also names the user's task namespace (see the task package). The ID is
// an opaque xid string generated at registration; it exists so other records
// can reference a user without depending on the email.
//
// WHY IS THE PASSWORD STORED IN PLAIN TEXT?
// This is a local credential store — the user table lives in a file on the
// same machine as the tasks it protects, and login is an exact string
// compare by contract. Hashing would protect nothing here (anyone who can
// read the hash can read the tasks next to it) and is deliberately out of
// scope. Do not copy this pattern into anything networked.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`    // normalized: trimmed + lowercased
	Password  string `json:"password"` // plain text, local store only
}

// NormalizeEmail trims surrounding whitespace and lowercases an email
// address. Every place that treats an email as a key — account lookup,
// duplicate detection, namespace derivation — must go through this one
// function, otherwise "User@Foo.com " and "user@foo.com" would silently
// become two different accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
