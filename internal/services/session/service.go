package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dissent/internal/crypto"
	"dissent/internal/domain"
	"dissent/internal/protocol/ratchet"
)

// Service implements domain.SessionService on a SessionStore.
type Service struct {
	store   domain.SessionStore
	updater *Updater
}

// New constructs a session Service. The options configure the Updater that
// every mutating call goes through.
func New(store domain.SessionStore, opts ...UpdaterOption) *Service {
	return &Service{
		store:   store,
		updater: NewUpdater(store, opts...),
	}
}

// Initialize creates peer's record from root, or from a fresh random root
// when root is nil. An existing record is never overwritten.
func (s *Service) Initialize(
	ctx context.Context,
	peer domain.PeerID,
	root *domain.SymmetricKey,
	direction domain.Direction,
) (domain.SessionRecord, error) {
	if direction == "" {
		direction = domain.MeToThem
	}

	var (
		rec domain.SessionRecord
		err error
	)
	if root != nil {
		rec, err = ratchet.NewSession(*root, direction)
	} else {
		rec, err = ratchet.NewRandomSession(direction)
	}
	if err != nil {
		return domain.SessionRecord{}, err
	}
	rec.SessionID = uuid.NewString()
	rec.UpdatedAt = s.updater.now().UTC()

	if _, err := s.store.CreateSession(ctx, peer, rec); err != nil {
		rec.Wipe()
		if errors.Is(err, domain.ErrSessionExists) {
			return domain.SessionRecord{}, fmt.Errorf("%s: %w", peer, err)
		}
		return domain.SessionRecord{}, err
	}

	s.updater.touch()
	s.updater.logger.Info("session initialized",
		"peer", peer,
		"session", rec.SessionID,
		"direction", rec.Direction,
		"local_key", crypto.FingerprintX25519(rec.LocalDH.Public),
	)
	return rec, nil
}

// Send encrypts plaintext on peer's sending chain.
func (s *Service) Send(
	ctx context.Context,
	peer domain.PeerID,
	plaintext []byte,
) (domain.Packet, error) {
	var pkt domain.Packet
	rec, err := s.updater.Update(ctx, peer, func(draft *domain.SessionRecord) error {
		var err error
		pkt, err = ratchet.Encode(draft, plaintext, nil)
		return err
	})
	if err != nil {
		return domain.Packet{}, err
	}
	defer rec.Wipe()

	s.updater.logger.Debug("packet sealed",
		"peer", peer, "session", rec.SessionID, "seq", pkt.Header.Seq, "epoch", pkt.Header.Epoch)
	return pkt, nil
}

// SendRotating replaces the local key pair, advances the ratchet against
// the installed peer key and encrypts plaintext under the new epoch. The
// packet advertises the new public key so the peer reaches the same epoch
// when it decodes. Requires a prior InstallPeerKey.
func (s *Service) SendRotating(
	ctx context.Context,
	peer domain.PeerID,
	plaintext []byte,
) (domain.Packet, error) {
	var (
		pkt domain.Packet
		pub domain.X25519Public
	)
	rec, err := s.updater.Update(ctx, peer, func(draft *domain.SessionRecord) error {
		var err error
		if pub, err = ratchet.RotateAndAdvance(draft); err != nil {
			return err
		}
		pkt, err = ratchet.Encode(draft, plaintext, &pub)
		return err
	})
	if err != nil {
		return domain.Packet{}, err
	}
	defer rec.Wipe()

	s.updater.logger.Info("local key rotated in band",
		"peer", peer,
		"session", rec.SessionID,
		"epoch", rec.Epoch,
		"local_key", crypto.FingerprintX25519(pub),
	)
	return pkt, nil
}

// Receive authenticates and decrypts pkt on peer's receiving chain.
func (s *Service) Receive(
	ctx context.Context,
	peer domain.PeerID,
	pkt domain.Packet,
) ([]byte, error) {
	var plaintext []byte
	rec, err := s.updater.Update(ctx, peer, func(draft *domain.SessionRecord) error {
		pt, err := ratchet.Decode(draft, pkt)
		if err != nil {
			return err
		}
		plaintext = pt
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer rec.Wipe()

	if len(pkt.Header.NewPeerPublicKey) > 0 {
		s.updater.logger.Info("peer key rotated in band",
			"peer", peer, "session", rec.SessionID, "epoch", rec.Epoch)
	}
	return plaintext, nil
}

// RotateLocalKey replaces the local key pair and returns the new public key.
// Chains change once both sides have installed each other's current key.
func (s *Service) RotateLocalKey(ctx context.Context, peer domain.PeerID) (domain.X25519Public, error) {
	var pub domain.X25519Public
	rec, err := s.updater.Update(ctx, peer, func(draft *domain.SessionRecord) error {
		var err error
		pub, err = ratchet.RotateOnSend(draft)
		return err
	})
	if err != nil {
		return domain.X25519Public{}, err
	}
	defer rec.Wipe()

	s.updater.logger.Info("local key rotated",
		"peer", peer, "session", rec.SessionID, "local_key", crypto.FingerprintX25519(pub))
	return pub, nil
}

// InstallPeerKey runs a receive-side ratchet step with peerPublic.
func (s *Service) InstallPeerKey(
	ctx context.Context,
	peer domain.PeerID,
	peerPublic domain.X25519Public,
) (domain.SessionRecord, error) {
	rec, err := s.updater.Update(ctx, peer, func(draft *domain.SessionRecord) error {
		return ratchet.RotateOnReceive(draft, peerPublic)
	})
	if err != nil {
		return domain.SessionRecord{}, err
	}

	s.updater.logger.Info("peer key installed",
		"peer", peer,
		"session", rec.SessionID,
		"epoch", rec.Epoch,
		"peer_key", crypto.FingerprintX25519(peerPublic),
	)
	return rec, nil
}

// Get returns peer's record.
func (s *Service) Get(ctx context.Context, peer domain.PeerID) (domain.SessionRecord, error) {
	rec, _, err := s.store.LoadSession(ctx, peer)
	return rec, err
}

// Has reports whether peer has a record. A corrupt record is an error, not
// absence.
func (s *Service) Has(ctx context.Context, peer domain.PeerID) (bool, error) {
	rec, _, err := s.store.LoadSession(ctx, peer)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	rec.Wipe()
	return true, nil
}

// List returns every peer with a stored record.
func (s *Service) List(ctx context.Context) ([]domain.PeerID, error) {
	return s.store.ListSessions(ctx)
}

// Delete removes peer's record.
func (s *Service) Delete(ctx context.Context, peer domain.PeerID) error {
	if err := s.store.DeleteSession(ctx, peer); err != nil {
		return err
	}
	s.updater.logger.Info("session deleted", "peer", peer)
	return nil
}

var _ domain.SessionService = (*Service)(nil)
