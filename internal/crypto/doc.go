// Package crypto exposes the primitives the session ratchet is built on.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - DER codecs for X25519 keys: PKCS#8 private, SPKI public
//   - HKDF-SHA-256 with a zero salt, HMAC-SHA-256, the chain step and the
//     per-message key/nonce derivation (HKDF, HMAC, NextChainKey,
//     DerivePerMessage)
//   - AES-256-GCM with a detached 16-byte tag (SealGCM, OpenGCM)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Key material is passed as fixed-size array types defined in
// internal/domain. Callers own every returned secret and should Wipe
// single-use keys as soon as they are consumed.
package crypto
