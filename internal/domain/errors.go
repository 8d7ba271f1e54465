package domain

import "errors"

var (
	// ErrNotFound means there is no session record for the peer.
	ErrNotFound = errors.New("session not found")

	// ErrSessionExists is returned when initializing over an existing record.
	ErrSessionExists = errors.New("session already exists")

	// ErrOutOfOrder means a received sequence number is not exactly the
	// next expected one. No state was changed.
	ErrOutOfOrder = errors.New("packet out of order")

	// ErrAuthenticationFailure covers AEAD tag mismatches and tampered
	// headers. No plaintext is released and no state was changed.
	ErrAuthenticationFailure = errors.New("packet authentication failed")

	// ErrConcurrencyConflict means the optimistic update ran out of retries.
	ErrConcurrencyConflict = errors.New("concurrent update conflict: too many retries")

	// ErrSerialization means a persisted record is corrupt. It is fatal for
	// that peer and must never be treated as absence.
	ErrSerialization = errors.New("corrupt session record")

	// ErrVersionConflict is a single failed compare-and-swap at the store.
	ErrVersionConflict = errors.New("store version conflict")

	// ErrLocked is returned when secret material is needed while the vault
	// is locked.
	ErrLocked = errors.New("vault is locked")
)
