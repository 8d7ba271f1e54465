package crypto

import (
	"crypto/ecdh"
	"crypto/x509"
	"errors"
	"fmt"

	"dissent/internal/domain"
)

// ErrNotX25519 is returned when DER input holds a key of another algorithm.
var ErrNotX25519 = errors.New("crypto: DER key is not X25519")

// MarshalPrivateDER encodes priv as PKCS#8 DER.
func MarshalPrivateDER(priv domain.X25519Private) ([]byte, error) {
	k, err := ecdh.X25519().NewPrivateKey(priv.Slice())
	if err != nil {
		return nil, err
	}
	return x509.MarshalPKCS8PrivateKey(k)
}

// MarshalPublicDER encodes pub as SubjectPublicKeyInfo DER.
func MarshalPublicDER(pub domain.X25519Public) ([]byte, error) {
	k, err := ecdh.X25519().NewPublicKey(pub.Slice())
	if err != nil {
		return nil, err
	}
	return x509.MarshalPKIXPublicKey(k)
}

// ParsePrivateDER decodes a PKCS#8 DER X25519 private key.
func ParsePrivateDER(der []byte) (priv domain.X25519Private, err error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return priv, fmt.Errorf("parse pkcs8: %w", err)
	}
	ek, ok := k.(*ecdh.PrivateKey)
	if !ok || ek.Curve() != ecdh.X25519() {
		return priv, ErrNotX25519
	}
	copy(priv[:], ek.Bytes())
	return priv, nil
}

// ParsePublicDER decodes a SubjectPublicKeyInfo DER X25519 public key.
func ParsePublicDER(der []byte) (pub domain.X25519Public, err error) {
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return pub, fmt.Errorf("parse spki: %w", err)
	}
	ek, ok := k.(*ecdh.PublicKey)
	if !ok || ek.Curve() != ecdh.X25519() {
		return pub, ErrNotX25519
	}
	copy(pub[:], ek.Bytes())
	return pub, nil
}
