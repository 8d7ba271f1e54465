// Package session runs the pairwise session ratchet against persisted
// records.
//
// Every operation that changes a record is one optimistic update: load the
// record and its store version, mutate a private draft, then write it back
// with a compare-and-swap. Concurrent writers retry instead of locking.
package session
