package ratchet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"

	"dissent/internal/crypto"
	"dissent/internal/domain"
	"dissent/internal/util/memzero"
)

var (
	// ErrEpochExhausted is returned when a rotation would wrap the epoch.
	ErrEpochExhausted = errors.New("ratchet: epoch counter exhausted")

	// ErrSequenceExhausted is returned when a chain would wrap its sequence.
	ErrSequenceExhausted = errors.New("ratchet: sequence counter exhausted")

	// ErrNoPeerKey is returned when an operation needs the peer's DH public
	// key before one was ever installed.
	ErrNoPeerKey = errors.New("ratchet: no peer public key installed")

	errInvalidDirection = errors.New("ratchet: record has no valid direction")
)

// GenerateKeypair returns a fresh X25519 key pair.
func GenerateKeypair() (domain.DHKeyPair, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.DHKeyPair{}, err
	}
	return domain.DHKeyPair{Private: priv, Public: pub}, nil
}

// NewRandomRoot returns 32 bytes of fresh root key material.
func NewRandomRoot() (root domain.SymmetricKey, err error) {
	_, err = rand.Read(root[:])
	return root, err
}

// NewSession builds an epoch-0 record from root. Both chains are derived
// from root with the labels implied by dir, and a fresh local key pair is
// generated. The peer must use the same root with the opposite direction.
func NewSession(root domain.SymmetricKey, dir domain.Direction) (domain.SessionRecord, error) {
	if !dir.Valid() {
		return domain.SessionRecord{}, fmt.Errorf("new session: %w", errInvalidDirection)
	}
	kp, err := GenerateKeypair()
	if err != nil {
		return domain.SessionRecord{}, err
	}
	st := domain.SessionRecord{
		Version:   domain.RecordFormatVersion,
		Direction: dir,
		RootKey:   root,
		LocalDH:   kp,
		Epoch:     0,
	}
	resetChains(&st)
	return st, nil
}

// NewRandomSession is NewSession with a freshly generated root. The root
// must reach the peer over a trusted channel before it can decode anything.
func NewRandomSession(dir domain.Direction) (domain.SessionRecord, error) {
	root, err := NewRandomRoot()
	if err != nil {
		return domain.SessionRecord{}, err
	}
	defer memzero.Zero(root[:])
	return NewSession(root, dir)
}

// RotateOnReceive installs peer as the peer's DH public key.
//
//	shared  = DH(local.priv, peer)
//	rootKey = HKDF("root-update", rootKey || shared)
//
// Both chains are then re-derived from the new root with sequence 0 and the
// epoch is incremented. It runs for every arriving key; there is no
// same-epoch special case.
func RotateOnReceive(st *domain.SessionRecord, peer domain.X25519Public) error {
	if !st.Direction.Valid() {
		return errInvalidDirection
	}
	if st.Epoch == math.MaxUint32 {
		return ErrEpochExhausted
	}

	shared, err := crypto.DH(st.LocalDH.Private, peer)
	if err != nil {
		return fmt.Errorf("dh: %w", err)
	}
	mix := make([]byte, 0, 64)
	mix = append(mix, st.RootKey[:]...)
	mix = append(mix, shared[:]...)
	newRoot := crypto.HKDFKey(crypto.LabelRootUpdate, mix)
	memzero.Zero(mix)
	memzero.Zero(shared[:])

	st.RootKey = newRoot
	memzero.Zero(newRoot[:])
	resetChains(st)
	pk := peer
	st.PeerDHPublic = &pk
	st.Epoch++
	return nil
}

// RotateOnSend replaces the local key pair and returns the new public key
// for the next outgoing header. Root and chains are untouched: the rotation
// takes effect when the peer runs RotateOnReceive with the returned key.
func RotateOnSend(st *domain.SessionRecord) (domain.X25519Public, error) {
	kp, err := GenerateKeypair()
	if err != nil {
		return domain.X25519Public{}, err
	}
	memzero.Zero(st.LocalDH.Private[:])
	st.LocalDH = kp
	memzero.Zero(kp.Private[:])
	return st.LocalDH.Public, nil
}

// RotateAndAdvance rotates the local key pair and immediately mixes the new
// private key with the installed peer key, so the next Encode already runs
// under the epoch the peer will reach when it receives the advertised key.
func RotateAndAdvance(st *domain.SessionRecord) (domain.X25519Public, error) {
	if st.PeerDHPublic == nil {
		return domain.X25519Public{}, ErrNoPeerKey
	}
	pub, err := RotateOnSend(st)
	if err != nil {
		return domain.X25519Public{}, err
	}
	if err := RotateOnReceive(st, *st.PeerDHPublic); err != nil {
		return domain.X25519Public{}, err
	}
	return pub, nil
}

// resetChains derives both chains from the current root and zeroes their
// sequence numbers.
func resetChains(st *domain.SessionRecord) {
	st.Send = domain.ChainState{
		ChainKey: crypto.HKDFKey(st.Direction.ChainLabel(), st.RootKey[:]),
	}
	st.Recv = domain.ChainState{
		ChainKey: crypto.HKDFKey(st.Direction.Opposite().ChainLabel(), st.RootKey[:]),
	}
}
