// Package engine provides a standardized interface for embedded ordered
// key-value storage engines. It defines the KVEngine boundary that allows
// managed stores to run on different backends while abstracting
// implementation details.
//
// The package focuses on:
//   - A unified interface for partitioned, ordered key-value operations
//   - Classified error reporting for corruption and I/O failures
//   - Per-write durability selection
//   - Feature discovery through capability flags
//
// Key Components:
//
//   - KVEngine Interface: The core interface that all engine adapters must
//     satisfy. It provides single-key operations (Put, Get, Delete), ranged
//     operations (DeleteRange, NewIterator), atomic batches (NewBatch),
//     metadata retrieval (GetInfo) and lifecycle control (Close).
//
//   - Partitions: Every engine instance is opened with a fixed list of
//     named partitions. A partition is an isolated key space: keys never
//     collide across partitions and iteration stays inside one partition.
//     Partition handles are resolved once at open time and passed back into
//     every operation, so the hot path never does name lookups.
//
//   - Status: The classified error type shared by all adapters. Callers use
//     IsCorruption, IsIOError and IsNotFound instead of matching message
//     strings of a specific backend.
//
//   - Durability Options: WriteOptions select the durability of a single
//     commit. Sync forces the write to stable storage before returning,
//     DisableWAL marks the write as allowed to be lost on crash. Stores use
//     this to give high-volume partitions a fast lossy write path while
//     keeping everything else durable.
//
//   - Feature Flags: The Feature type defines capability flags that
//     adapters advertise through the SupportsFeature method. The shared
//     test suite uses them to skip tests an engine cannot satisfy.
//
//   - LogSink: Engines log through an injected sink instead of writing
//     files or calling a global logger. Sinks must never call back into the
//     engine that is logging.
//
// Key ordering: keys within a partition are totally ordered by
// byte-lexicographic comparison, and iterators always walk in ascending
// order. Adapters must preserve this regardless of their internal layout.
//
// Related Packages:
//
// The badgerdb package (github.com/cellardb/cellar/lib/engine/badgerdb)
// implements the interface on BadgerDB for durable storage. The ephemeral
// package (github.com/cellardb/cellar/lib/engine/ephemeral) implements it
// with in-memory B-trees for tests and throwaway stores.
//
// The testing package (github.com/cellardb/cellar/lib/engine/testing)
// provides a standardized conformance suite and benchmarks:
//   - RunEngineTests: Runs a standardized test suite to validate adapters
//   - RunEngineBenchmarks: Provides performance benchmarks for comparing adapters
package engine
