// Package ratchet implements the pairwise session ratchet: a DH ratchet that
// re-keys the root whenever a peer public key arrives, two directional
// HMAC chains stepped once per message, and the AES-256-GCM packet codec
// built on top of them.
//
// A record holds a root key and two chains (send and receive). Each message
// steps its chain forward so message keys are forward secure. When a peer
// X25519 public key is installed, the root absorbs the new shared secret and
// both chains are re-derived from it with their directional labels.
//
// The two peers of a session use opposite Direction labels, so one side's
// send chain is always the other side's receive chain.
//
// Concurrency: a SessionRecord is NOT safe for concurrent use. Callers must
// go through the session updater, which works on private drafts.
package ratchet
