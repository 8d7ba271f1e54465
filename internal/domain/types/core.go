package types

import "fmt"

// PeerID identifies the remote party of a pairwise session.
type PeerID string

// String returns the string form of the peer identifier.
func (p PeerID) String() string { return string(p) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Direction labels one of the two directional chains of a session.
type Direction string

const (
	MeToThem Direction = "me->them"
	ThemToMe Direction = "them->me"
)

// Valid reports whether d is one of the two known labels.
func (d Direction) Valid() bool { return d == MeToThem || d == ThemToMe }

// Opposite returns the label of the other direction.
func (d Direction) Opposite() Direction {
	if d == ThemToMe {
		return MeToThem
	}
	return ThemToMe
}

// ChainLabel is the HKDF label used to derive this direction's chain key.
func (d Direction) ChainLabel() string { return "ck:" + string(d) }

// ParseDirection validates s as a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown direction %q (want %q or %q)", s, MeToThem, ThemToMe)
	}
	return d, nil
}

// Version is a store-maintained write counter. Zero means "absent".
type Version uint64
