// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [CredentialRepository] : Identity provider tokens, implementing session.TokenStore
//   - [TranscriptionRepository] : History of successful transcriptions with soft deletes
//
// Sequence numbers give history entries stable, human-readable numbers (#1, #2, ...) independent of their IDs.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
