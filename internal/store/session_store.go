package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dissent/internal/domain"
)

// PeerKeyPrefix prefixes every session key in the secret store.
const PeerKeyPrefix = "peer:"

// SessionStore persists SessionRecords on any SecretStore.
type SessionStore struct {
	secrets domain.SecretStore
}

// NewSessionStore wraps secrets.
func NewSessionStore(secrets domain.SecretStore) *SessionStore {
	return &SessionStore{secrets: secrets}
}

// PeerKey returns the secret store key holding peer's record.
func PeerKey(peer domain.PeerID) string { return PeerKeyPrefix + string(peer) }

// LoadSession reads and decodes peer's record. A missing record is
// ErrNotFound; an unreadable one is ErrSerialization.
func (s *SessionStore) LoadSession(
	ctx context.Context,
	peer domain.PeerID,
) (domain.SessionRecord, domain.Version, error) {
	raw, v, err := s.secrets.Get(ctx, PeerKey(peer))
	if err != nil {
		return domain.SessionRecord{}, 0, err
	}
	rec, err := UnmarshalRecord(raw)
	if err != nil {
		return domain.SessionRecord{}, 0, fmt.Errorf("load %s: %w", peer, err)
	}
	return rec, v, nil
}

// CreateSession stores rec only if peer has no record yet.
func (s *SessionStore) CreateSession(
	ctx context.Context,
	peer domain.PeerID,
	rec domain.SessionRecord,
) (domain.Version, error) {
	v, err := s.SaveSession(ctx, peer, rec, 0)
	if errors.Is(err, domain.ErrVersionConflict) {
		return 0, domain.ErrSessionExists
	}
	return v, err
}

// SaveSession stores rec if peer's record is still at expected.
func (s *SessionStore) SaveSession(
	ctx context.Context,
	peer domain.PeerID,
	rec domain.SessionRecord,
	expected domain.Version,
) (domain.Version, error) {
	raw, err := MarshalRecord(rec)
	if err != nil {
		return 0, err
	}
	return s.secrets.CompareAndSwap(ctx, PeerKey(peer), expected, raw)
}

// DeleteSession removes peer's record.
func (s *SessionStore) DeleteSession(ctx context.Context, peer domain.PeerID) error {
	return s.secrets.Delete(ctx, PeerKey(peer))
}

// ListSessions returns the peers that have a stored record.
func (s *SessionStore) ListSessions(ctx context.Context) ([]domain.PeerID, error) {
	keys, err := s.secrets.List(ctx, PeerKeyPrefix)
	if err != nil {
		return nil, err
	}
	peers := make([]domain.PeerID, 0, len(keys))
	for _, k := range keys {
		peers = append(peers, domain.PeerID(strings.TrimPrefix(k, PeerKeyPrefix)))
	}
	return peers, nil
}

var _ domain.SessionStore = (*SessionStore)(nil)
