package domain

import (
	interfaces "dissent/internal/domain/interfaces"
	types "dissent/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	PeerID        = types.PeerID
	Fingerprint   = types.Fingerprint
	Direction     = types.Direction
	Version       = types.Version
	X25519Public  = types.X25519Public
	X25519Private = types.X25519Private
	SymmetricKey  = types.SymmetricKey
	ChainState    = types.ChainState
	DHKeyPair     = types.DHKeyPair
	SessionRecord = types.SessionRecord
	PacketHeader  = types.PacketHeader
	Packet        = types.Packet
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	SecretStore        = interfaces.SecretStore
	SessionStore       = interfaces.SessionStore
	SessionService     = interfaces.SessionService
	PassphraseSource   = interfaces.PassphraseSource
	PassphraseVerifier = interfaces.PassphraseVerifier
)

// Direction labels.
const (
	MeToThem = types.MeToThem
	ThemToMe = types.ThemToMe
)

// RecordFormatVersion is the format tag written into new records.
const RecordFormatVersion = types.RecordFormatVersion

// MaxSeq is the largest chain sequence a record can hold.
const MaxSeq = types.MaxSeq

// ParseDirection validates s as a Direction.
func ParseDirection(s string) (Direction, error) { return types.ParseDirection(s) }
