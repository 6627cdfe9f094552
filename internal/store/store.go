// Package store implements the access-control store: the authoritative set of
// authorized identities and a deduplicated access log. All mutating operations
// on one store instance are serialized, so concurrent jobs cannot interleave a
// read-then-write and lose an entry.
package store

import (
	"errors"
	"strings"
)

// ErrWrite means the backing store could not be persisted; the in-memory
// intent is lost and the caller must report the operation as failed.
var ErrWrite = errors.New("store write failed")

type Store interface {
	// IsAuthorized returns true iff identity is non-empty and present in the
	// authorized-user set.
	IsAuthorized(identity string) (bool, error)

	// AddUser adds an identity to the authorized-user set, returning false if
	// it was already present.
	AddUser(identity string) (bool, error)

	// RemoveUser removes an identity from the authorized-user set, returning
	// false if it was absent.
	RemoveUser(identity string) (bool, error)

	// ListUsers returns the authorized identities in insertion order.
	ListUsers() ([]string, error)

	// LogAccess appends an identity to the access log unless it is already
	// there. Safe to call on every successful authorization check.
	LogAccess(identity string) error

	// AccessLog returns every identity that has ever passed authorization,
	// in insertion order.
	AccessLog() ([]string, error)

	Close() error
}

// NormalizeHandle strips surrounding whitespace and a leading "@" from a
// chat handle. Identities are stored and compared in this form.
func NormalizeHandle(identity string) string {
	return strings.TrimPrefix(strings.TrimSpace(identity), "@")
}
