package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"dissent/internal/domain"
)

// fingerprintBytes is how much of the SHA-256 digest is shown to users.
const fingerprintBytes = 10

// FingerprintX25519 identifies a ratchet public key in logs and CLI output
// without revealing it: the first 10 bytes of its SHA-256, hex encoded.
func FingerprintX25519(pub domain.X25519Public) domain.Fingerprint {
	sum := sha256.Sum256(pub[:])
	return domain.Fingerprint(hex.EncodeToString(sum[:fingerprintBytes]))
}
