// Package vault holds the unlock passphrase in memory for a bounded time.
//
// A Handle is either Locked or Unlocked. Unlocking copies the passphrase
// into a buffer the handle owns; every path back to Locked (explicit lock,
// auto-lock timer, Close) zeroizes that buffer.
package vault
