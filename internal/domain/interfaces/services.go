package interfaces

import (
	"context"

	domaintypes "dissent/internal/domain/types"
)

// SessionService is the caller-facing surface of the session ratchet.
// Every mutating call is a single optimistic update of the peer's record.
type SessionService interface {
	Initialize(
		ctx context.Context,
		peer domaintypes.PeerID,
		root *domaintypes.SymmetricKey,
		direction domaintypes.Direction,
	) (domaintypes.SessionRecord, error)
	Send(ctx context.Context, peer domaintypes.PeerID, plaintext []byte) (domaintypes.Packet, error)
	SendRotating(
		ctx context.Context,
		peer domaintypes.PeerID,
		plaintext []byte,
	) (domaintypes.Packet, error)
	Receive(ctx context.Context, peer domaintypes.PeerID, packet domaintypes.Packet) ([]byte, error)
	RotateLocalKey(ctx context.Context, peer domaintypes.PeerID) (domaintypes.X25519Public, error)
	InstallPeerKey(
		ctx context.Context,
		peer domaintypes.PeerID,
		peerPublic domaintypes.X25519Public,
	) (domaintypes.SessionRecord, error)
	Get(ctx context.Context, peer domaintypes.PeerID) (domaintypes.SessionRecord, error)
	Has(ctx context.Context, peer domaintypes.PeerID) (bool, error)
	List(ctx context.Context) ([]domaintypes.PeerID, error)
	Delete(ctx context.Context, peer domaintypes.PeerID) error
}

// PassphraseSource lends the unlocked passphrase to fn. The slice must not
// be retained after fn returns.
type PassphraseSource interface {
	WithPassphrase(fn func(passphrase []byte) error) error
}

// PassphraseVerifier checks a candidate passphrase before a vault unlocks.
type PassphraseVerifier interface {
	VerifyPassphrase(passphrase []byte) error
}
