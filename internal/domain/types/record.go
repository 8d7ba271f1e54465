package types

import (
	"time"

	"dissent/internal/util/memzero"
)

// RecordFormatVersion is the format tag written into new records.
const RecordFormatVersion = 1

// MaxSeq is the largest chain sequence a record can hold. Persisted records
// are canonical JSON, whose numbers are IEEE doubles.
const MaxSeq = 1<<53 - 1

// ChainState is one directional symmetric ratchet.
type ChainState struct {
	ChainKey SymmetricKey
	Seq      uint64
}

// DHKeyPair is the current local X25519 key pair.
type DHKeyPair struct {
	Private X25519Private
	Public  X25519Public
}

// SessionRecord is the persisted per-peer ratchet state.
//
// Direction is the label of our sending chain; the peer's record carries
// the opposite label. PeerDHPublic is nil until the first rotation.
type SessionRecord struct {
	Version      int
	SessionID    string
	Direction    Direction
	RootKey      SymmetricKey
	Send         ChainState
	Recv         ChainState
	LocalDH      DHKeyPair
	PeerDHPublic *X25519Public
	Epoch        uint32
	UpdatedAt    time.Time
}

// Clone returns an owned copy of r that shares no memory with it.
func (r SessionRecord) Clone() SessionRecord {
	out := r
	if r.PeerDHPublic != nil {
		pk := *r.PeerDHPublic
		out.PeerDHPublic = &pk
	}
	return out
}

// Wipe zeroizes the secret material held by r.
func (r *SessionRecord) Wipe() {
	memzero.Zero(r.RootKey[:])
	memzero.Zero(r.Send.ChainKey[:])
	memzero.Zero(r.Recv.ChainKey[:])
	memzero.Zero(r.LocalDH.Private[:])
}
