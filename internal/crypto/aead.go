package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"dissent/internal/domain"
)

// TagSize is the AES-GCM authentication tag length.
const TagSize = 16

// ErrOpen is returned for any AEAD verification failure.
var ErrOpen = errors.New("crypto: message authentication failed")

func newGCM(key domain.SymmetricKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.Slice())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithTagSize(block, TagSize)
}

// SealGCM encrypts plaintext with AES-256-GCM and returns the ciphertext and
// the detached tag.
func SealGCM(key domain.SymmetricKey, nonce [NonceSize]byte, plaintext, aad []byte) (ct, tag []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	sealed := aead.Seal(nil, nonce[:], plaintext, aad)
	n := len(sealed) - TagSize
	return sealed[:n:n], sealed[n:], nil
}

// OpenGCM verifies and decrypts a detached-tag AES-256-GCM message.
// No plaintext is returned unless the tag verifies.
func OpenGCM(key domain.SymmetricKey, nonce [NonceSize]byte, ct, tag, aad []byte) ([]byte, error) {
	if len(tag) != TagSize {
		return nil, ErrOpen
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	pt, err := aead.Open(nil, nonce[:], sealed, aad)
	if err != nil {
		return nil, ErrOpen
	}
	return pt, nil
}
