package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"

	"dissent/internal/domain"
)

// Derivation labels. Both peers must agree on these byte-for-byte.
const (
	LabelRootUpdate = "root-update"
	LabelStep       = "step"
	labelMsg        = "msg"
	labelNonce      = "nonce"
)

// NonceSize is the AES-GCM nonce length derived per message.
const NonceSize = 12

var zeroSalt = make([]byte, sha256.Size)

// HKDF expands ikm under label with a 32-byte zero salt into n bytes.
func HKDF(label string, ikm []byte, n int) []byte {
	r := hkdf.New(sha256.New, ikm, zeroSalt, []byte(label))
	out := make([]byte, n)
	// HKDF-SHA-256 only fails past 255*32 bytes of output.
	_, _ = io.ReadFull(r, out)
	return out
}

// HKDFKey is HKDF with a 32-byte output written into a SymmetricKey.
func HKDFKey(label string, ikm []byte) (k domain.SymmetricKey) {
	out := HKDF(label, ikm, len(k))
	copy(k[:], out)
	Wipe(out)
	return k
}

// HMAC returns HMAC-SHA-256(key, data).
func HMAC(key, data []byte) (sum [32]byte) {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	copy(sum[:], h.Sum(nil))
	return sum
}

// NextChainKey steps a chain key forward: HMAC(ck, "step").
func NextChainKey(ck domain.SymmetricKey) domain.SymmetricKey {
	return domain.SymmetricKey(HMAC(ck.Slice(), []byte(LabelStep)))
}

// DerivePerMessage returns the message key and nonce for seq under ck.
//
//	messageKey = HMAC(ck, "msg"   || be64(seq))
//	nonce      = HMAC(ck, "nonce" || be64(seq))[:12]
func DerivePerMessage(ck domain.SymmetricKey, seq uint64) (mk domain.SymmetricKey, nonce [NonceSize]byte) {
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], seq)

	mk = domain.SymmetricKey(HMAC(ck.Slice(), append([]byte(labelMsg), be[:]...)))

	n := HMAC(ck.Slice(), append([]byte(labelNonce), be[:]...))
	copy(nonce[:], n[:NonceSize])
	Wipe(n[:])
	return mk, nonce
}
