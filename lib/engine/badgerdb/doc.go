// Package badgerdb implements the engine.KVEngine interface on top of
// BadgerDB, providing the persistent storage backend for managed stores.
//
// The package focuses on:
//   - Durable, ordered key-value storage with atomic write batches
//   - Multiple named partitions inside one badger instance
//   - Per-write durability selection (synced vs. buffered commits)
//   - Error classification so callers can detect corruption and I/O
//     failures without matching badger message strings
//
// Key Components:
//
//   - badgerEngine: The engine structure wrapping one *badger.DB. All
//     operations run through badger transactions; single-key writes and
//     batch commits each use one Update transaction, which badger applies
//     atomically.
//
//   - partition: A named key space inside the shared instance. Stored keys
//     are prefixed with "<name>\x00"; the NUL separator guarantees that no
//     partition name is a prefix of another partition's key space, so
//     prefix iteration never leaks keys across partitions.
//
//   - writeBatch: Collects puts and deletes for one partition and commits
//     them in a single transaction. Either every operation is applied or
//     none is.
//
//   - badgerIterator: A prefix-bounded iterator over one partition backed
//     by a read transaction. Keys come back in ascending byte order with
//     the partition prefix stripped.
//
// Durability Mapping:
//
// Badger has no per-write sync flag, writes always go through the value
// log. WriteOptions.Sync is therefore implemented as an explicit value log
// sync after the commit, and WriteOptions.DisableWAL simply skips that
// sync: the commit stays buffered and may be lost on a hard crash, which
// is the contract fast partitions opt into.
//
// Read-only opens are enforced twice: badger itself rejects writes on a
// read-only instance, and the engine guards every mutating entry point so
// callers get a stable NotSupported status instead of a backend-specific
// error.
package badgerdb
