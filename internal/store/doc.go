// Package store provides the secret storage backends and the session record
// persistence layered on top of them.
//
// Every backend implements domain.SecretStore: single-key reads and writes
// with a store-maintained version counter and a native compare-and-swap.
//
//   - MemoryStore: process-local map, for tests and ephemeral sessions
//   - FileStore: one JSON file per key, optionally sealed with a passphrase
//   - RedisStore: a hash per key, writes go through Lua scripts
//   - SQLiteStore: a single table with a version column
//
// SessionStore maps peers to "peer:<id>" keys on any backend and owns the
// record codec.
package store
