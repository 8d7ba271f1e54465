package interfaces

import (
	"context"

	domaintypes "dissent/internal/domain/types"
)

// SecretStore is the external secret storage contract: single-key
// operations, each atomic on its own, no multi-key transactions.
//
// Every write bumps a per-key Version maintained by the store.
// CompareAndSwap only writes when the current version equals expected;
// expected 0 means "create only if absent". A miss returns
// ErrVersionConflict.
type SecretStore interface {
	Get(ctx context.Context, key string) ([]byte, domaintypes.Version, error)
	Set(ctx context.Context, key string, value []byte) (domaintypes.Version, error)
	CompareAndSwap(
		ctx context.Context,
		key string,
		expected domaintypes.Version,
		value []byte,
	) (domaintypes.Version, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// SessionStore persists one SessionRecord per peer on top of a SecretStore.
type SessionStore interface {
	LoadSession(
		ctx context.Context,
		peer domaintypes.PeerID,
	) (domaintypes.SessionRecord, domaintypes.Version, error)
	CreateSession(
		ctx context.Context,
		peer domaintypes.PeerID,
		record domaintypes.SessionRecord,
	) (domaintypes.Version, error)
	SaveSession(
		ctx context.Context,
		peer domaintypes.PeerID,
		record domaintypes.SessionRecord,
		expected domaintypes.Version,
	) (domaintypes.Version, error)
	DeleteSession(ctx context.Context, peer domaintypes.PeerID) error
	ListSessions(ctx context.Context) ([]domaintypes.PeerID, error)
}
