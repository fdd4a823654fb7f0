// Package store implements the durable registries for accounts and comments.
//
// State lives in small JSON files under a data directory: one account
// registry, one comment partition for the default account and one partition
// per additional account. Every mutation is a whole-file read-modify-write,
// serialized per partition so concurrent writers (a webhook delivery racing a
// sync tick) cannot lose updates.
package store

import (
	"errors"
)

// DefaultAccountID is the reserved id of the pre-provisioned account. It owns
// the default comment partition and can never be deleted.
const DefaultAccountID = "default"

var (
	// ErrNotFound is returned when an account or comment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDefaultAccountProtected is returned when a caller tries to delete
	// the default account.
	ErrDefaultAccountProtected = errors.New("default account cannot be deleted")
)
